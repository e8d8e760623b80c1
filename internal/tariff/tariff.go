package tariff

import (
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	ErrInvalidInterval         = errors.New("tariff: check-out is before check-in")
	ErrInvalidDuration         = errors.New("tariff: duration must be a positive integer")
	ErrUnrecognizedBookingMode = errors.New("tariff: unrecognized booking mode")
	ErrNegativeTariff          = errors.New("tariff: amounts must not be negative")
)

// Tariff is the pricing table attached to a room. Amounts are whole currency units.
type Tariff struct {
	HourlyFirst      int64 `json:"hourly_first"`
	HourlySecond     int64 `json:"hourly_second"`
	HourlyAdditional int64 `json:"hourly_additional"`
	DailyRate        int64 `json:"daily_rate"`
	MonthlyRate      int64 `json:"monthly_rate"`
}

// Default is the price list new rooms get when none is supplied.
func Default() Tariff {
	return Tariff{
		HourlyFirst:      80000,
		HourlySecond:     40000,
		HourlyAdditional: 20000,
		DailyRate:        500000,
		MonthlyRate:      12000000,
	}
}

func (t Tariff) Validate() error {
	fields := []struct {
		name string
		v    int64
	}{
		{"hourly_first", t.HourlyFirst},
		{"hourly_second", t.HourlySecond},
		{"hourly_additional", t.HourlyAdditional},
		{"daily_rate", t.DailyRate},
		{"monthly_rate", t.MonthlyRate},
	}
	for _, f := range fields {
		if f.v < 0 {
			return errors.Wrapf(ErrNegativeTariff, "%s=%d", f.name, f.v)
		}
	}
	return nil
}

func (t Tariff) IsZero() bool { return t == Tariff{} }

type BookingMode string

const (
	Hourly  BookingMode = "hourly"
	Daily   BookingMode = "daily"
	Monthly BookingMode = "monthly"
)

func (m BookingMode) Valid() bool {
	switch m {
	case Hourly, Daily, Monthly:
		return true
	}
	return false
}

// ParseBookingMode is case-insensitive; an empty string means hourly.
func ParseBookingMode(s string) (BookingMode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return Hourly, nil
	}
	m := BookingMode(s)
	if !m.Valid() {
		return "", errors.Wrapf(ErrUnrecognizedBookingMode, "%q", s)
	}
	return m, nil
}
