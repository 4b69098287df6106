package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/homebuddy/cropkit/pkg/dob"
)

var (
	dobInit    string
	dobDay     int
	dobMonth   int
	dobYear    int
	dobOptions bool
)

var dobCmd = &cobra.Command{
	Use:   "dob",
	Short: "Assemble a YYYY-MM-DD date of birth from picker values",
	Long: `Assemble a date of birth the way the picker does: start from --init, apply
--day, --month and --year in that order, and print the result once all three are set.`,
	Args: cobra.NoArgs,
	RunE: runDOB,
}

func init() {
	dobCmd.Flags().StringVar(&dobInit, "init", "", "Initial ISO date, e.g. 1990-06-15")
	dobCmd.Flags().IntVar(&dobDay, "day", 0, "Day of month (1-31)")
	dobCmd.Flags().IntVar(&dobMonth, "month", 0, "Month (1-12)")
	dobCmd.Flags().IntVar(&dobYear, "year", 0, "Year within the last 100 years")
	dobCmd.Flags().BoolVar(&dobOptions, "options", false, "Print the picker options instead")
}

func runDOB(cmd *cobra.Command, args []string) error {
	a := dob.New(dob.WithOnChange(func(iso string) {
		logger.Debug("date of birth changed", zap.String("iso", iso))
	}))

	if dobOptions {
		return printJSON(cmd, map[string][]dob.PickerOption{
			"day":   dob.DayOptions(),
			"month": dob.MonthOptions(),
			"year":  a.YearOptions(),
		})
	}

	a.Initialize(dobInit)
	for _, step := range []struct {
		field dob.Field
		value int
		set   bool
	}{
		{dob.Day, dobDay, cmd.Flags().Changed("day")},
		{dob.Month, dobMonth, cmd.Flags().Changed("month")},
		{dob.Year, dobYear, cmd.Flags().Changed("year")},
	} {
		if !step.set {
			continue
		}
		if _, _, err := a.Set(step.field, step.value); err != nil {
			return fmt.Errorf("--%s: %w", step.field, err)
		}
	}

	iso, complete := a.Current()
	return printJSON(cmd, struct {
		Selection dob.Selection `json:"selection"`
		ISO       string        `json:"iso,omitempty"`
		Complete  bool          `json:"complete"`
	}{a.Selection(), iso, complete})
}
