package dob

import (
	"strconv"
	"time"
)

// PickerOption is one entry of a picker list
type PickerOption struct {
	Label string `json:"label"`
	Value int    `json:"value"`
}

// DayOptions lists days 1 through 31
func DayOptions() []PickerOption {
	out := make([]PickerOption, 0, 31)
	for d := 1; d <= 31; d++ {
		out = append(out, PickerOption{Label: strconv.Itoa(d), Value: d})
	}
	return out
}

// MonthOptions lists the months with their English names
func MonthOptions() []PickerOption {
	out := make([]PickerOption, 0, 12)
	for m := time.January; m <= time.December; m++ {
		out = append(out, PickerOption{Label: m.String(), Value: int(m)})
	}
	return out
}

// YearOptions lists YearSpan years, newest first, ending at now's year
func YearOptions(now time.Time) []PickerOption {
	current := now.Year()
	out := make([]PickerOption, 0, YearSpan)
	for y := current; y > current-YearSpan; y-- {
		out = append(out, PickerOption{Label: strconv.Itoa(y), Value: y})
	}
	return out
}

// YearOptions lists the years this assembler accepts
func (a *Assembler) YearOptions() []PickerOption {
	return YearOptions(a.now())
}
