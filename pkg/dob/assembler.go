// Package dob assembles a date of birth from independently picked day, month and year.
package dob

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// ErrOutOfRange is returned when a picked value falls outside its field's range
var ErrOutOfRange = errors.New("dob: value out of range")

// Field identifies one of the three pickers
type Field int

const (
	Day Field = iota
	Month
	Year
)

func (f Field) String() string {
	switch f {
	case Day:
		return "day"
	case Month:
		return "month"
	case Year:
		return "year"
	}
	return fmt.Sprintf("field(%d)", int(f))
}

// YearSpan is how many years the year picker offers, ending at the current year
const YearSpan = 100

// Selection is the three optional fields; zero means unset
type Selection struct {
	Day   int `json:"day,omitempty"`
	Month int `json:"month,omitempty"`
	Year  int `json:"year,omitempty"`
}

// Complete reports whether all three fields are set
func (s Selection) Complete() bool {
	return s.Day != 0 && s.Month != 0 && s.Year != 0
}

// ISO formats a complete selection as YYYY-MM-DD by plain integer formatting
func (s Selection) ISO() (string, bool) {
	if !s.Complete() {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", s.Year, s.Month, s.Day), true
}

// Option configures an Assembler
type Option func(*Assembler)

// WithClock overrides the clock used for the year range
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// WithOnChange registers a callback fired whenever Set completes a date
func WithOnChange(fn func(iso string)) Option {
	return func(a *Assembler) { a.onChange = fn }
}

// Assembler holds a date-of-birth selection in progress
type Assembler struct {
	mu       sync.Mutex
	sel      Selection
	lastInit *string
	now      func() time.Time
	onChange func(string)
}

// New creates an Assembler with all fields unset
func New(opts ...Option) *Assembler {
	a := &Assembler{now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Selection returns a copy of the current fields
func (a *Assembler) Selection() Selection {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sel
}

// Current returns the assembled date when all fields are set
func (a *Assembler) Current() (string, bool) {
	return a.Selection().ISO()
}

// Set updates one field. It returns the YYYY-MM-DD string only once all three
// fields are set; a partial selection returns complete == false and no error.
func (a *Assembler) Set(field Field, value int) (iso string, complete bool, err error) {
	if err := a.check(field, value); err != nil {
		return "", false, err
	}

	a.mu.Lock()
	switch field {
	case Day:
		a.sel.Day = value
	case Month:
		a.sel.Month = value
	case Year:
		a.sel.Year = value
	}
	iso, complete = a.sel.ISO()
	onChange := a.onChange
	a.mu.Unlock()

	if complete && onChange != nil {
		onChange(iso)
	}
	return iso, complete, nil
}

// Clear resets all fields to unset
func (a *Assembler) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sel = Selection{}
}

// Initialize loads the fields from an incoming ISO date.
//
// An empty value clears the selection. A value equal to the last one seen is ignored
// so in-progress edits survive repeated initialization with the same input. Only the
// leading YYYY-MM-DD is read; an unparseable value leaves the fields unset.
func (a *Assembler) Initialize(value string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.lastInit != nil && *a.lastInit == value {
		return
	}
	a.lastInit = &value

	if value == "" {
		a.sel = Selection{}
		return
	}

	sel, err := ParseISO(value)
	if err != nil {
		a.sel = Selection{}
		return
	}
	a.sel = sel
}

// ParseISO reads the leading YYYY-MM-DD of value into a Selection.
// The date must exist on the calendar; any time suffix is ignored.
func ParseISO(value string) (Selection, error) {
	if len(value) < 10 {
		return Selection{}, fmt.Errorf("dob: %q is not a YYYY-MM-DD date", value)
	}
	date := value[:10]
	if len(value) > 10 && value[10] != 'T' && value[10] != ' ' {
		return Selection{}, fmt.Errorf("dob: %q is not a YYYY-MM-DD date", value)
	}

	// time.Parse validates the calendar; the fields come from the digits themselves
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return Selection{}, fmt.Errorf("dob: %w", err)
	}
	year, _ := strconv.Atoi(date[0:4])
	month, _ := strconv.Atoi(date[5:7])
	day, _ := strconv.Atoi(date[8:10])

	return Selection{Day: day, Month: month, Year: year}, nil
}

func (a *Assembler) check(field Field, value int) error {
	lo, hi := a.bounds(field)
	if value < lo || value > hi {
		return fmt.Errorf("%w: %s %d not in [%d,%d]", ErrOutOfRange, field, value, lo, hi)
	}
	return nil
}

func (a *Assembler) bounds(field Field) (int, int) {
	switch field {
	case Day:
		return 1, 31
	case Month:
		return 1, 12
	case Year:
		current := a.now().Year()
		return current - (YearSpan - 1), current
	}
	return 1, 0
}
