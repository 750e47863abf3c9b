package airport

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFilter is returned for search filters that cannot be evaluated
var ErrInvalidFilter = errors.New("invalid filter")

// LengthSelector compares a runway length against a filter value
type LengthSelector string

const (
	LengthEqual       LengthSelector = "eq"
	LengthGreaterThan LengthSelector = "gt"
	LengthLessThan    LengthSelector = "lt"
)

// RunwayLength matches runways by length in feet
type RunwayLength struct {
	Selector LengthSelector `json:"selector"`
	Length   int            `json:"length"`
}

// Fits reports whether a runway of lengthFT satisfies the filter. The
// comparisons are strict.
func (r RunwayLength) Fits(lengthFT int) bool {
	switch r.Selector {
	case LengthEqual:
		return lengthFT == r.Length
	case LengthGreaterThan:
		return lengthFT > r.Length
	case LengthLessThan:
		return lengthFT < r.Length
	}
	return false
}

// FitsAny reports whether any runway with a known length fits
func (r RunwayLength) FitsAny(runways []Runway) bool {
	for _, rw := range runways {
		if rw.LengthFT != nil && r.Fits(*rw.LengthFT) {
			return true
		}
	}
	return false
}

// Validate checks the selector is known and the length is not negative
func (r RunwayLength) Validate() error {
	switch r.Selector {
	case LengthEqual, LengthGreaterThan, LengthLessThan:
	default:
		return fmt.Errorf("%w: unknown runway length selector %q", ErrInvalidFilter, r.Selector)
	}
	if r.Length < 0 {
		return fmt.Errorf("%w: runway length %d is negative", ErrInvalidFilter, r.Length)
	}
	return nil
}

// Filter selects airports. Zero fields match everything.
type Filter struct {
	Class        Class         `json:"airportType,omitempty"`
	RunwayLength *RunwayLength `json:"runwayLength,omitempty"`
	Countries    []string      `json:"countries,omitempty"` // country names, any case
}

// Matches reports whether apt passes every set field of the filter
func (f Filter) Matches(apt *Airport) bool {
	if f.Class != "" && apt.Class != f.Class {
		return false
	}
	if f.RunwayLength != nil && !f.RunwayLength.FitsAny(apt.Runways) {
		return false
	}
	if len(f.Countries) > 0 && !f.hasCountry(apt.CountryName) {
		return false
	}
	return true
}

func (f Filter) hasCountry(name string) bool {
	for _, c := range f.Countries {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// Validate checks the class and runway length
func (f Filter) Validate() error {
	switch f.Class {
	case "", ClassLarge, ClassMedium, ClassSmall, ClassHeliport, ClassSeaplaneBase, ClassBalloonport, ClassClosed:
	default:
		return fmt.Errorf("%w: unknown airport type %q", ErrInvalidFilter, f.Class)
	}
	if f.RunwayLength != nil {
		return f.RunwayLength.Validate()
	}
	return nil
}

// TotalMinutes is the time in minutes
func (t Time) TotalMinutes() int {
	return t.Hour*60 + t.Minutes
}
