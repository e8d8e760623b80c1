package tariff

import (
	"fmt"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
)

const (
	day           = 24 * time.Hour
	daysPerMonth  = 30
	TypeHourly    = "hourly"
	TypeDaily     = "daily_hourly"
	TypeMonthly   = "monthly"
	currencyLabel = "VND"
)

// CostCalculation is the result of pricing one interval.
type CostCalculation struct {
	TotalCost       int64   `json:"total_cost"`
	DurationHours   float64 `json:"duration_hours"`
	DurationDays    int64   `json:"duration_days"`
	CalculationType string  `json:"calculation_type"`
	Details         string  `json:"details"`
}

// ComputeElapsedCost prices the stay [start, end] against t.
//
// Stays of 30 full days or more are billed pro rata by month, stays of one
// full day or more by day plus a tiered surcharge for the leftover hours, and
// anything shorter by the hourly tiers. The total is rounded half-up to a
// whole currency unit.
func ComputeElapsedCost(start, end time.Time, t Tariff) (CostCalculation, error) {
	if end.Before(start) {
		return CostCalculation{}, errors.Wrapf(ErrInvalidInterval, "start=%s end=%s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	elapsed := end.Sub(start)
	hours := elapsed.Hours()
	days := int64(elapsed / day)

	var (
		cost    float64
		kind    string
		details string
	)
	switch {
	case days >= daysPerMonth:
		months := float64(days) / daysPerMonth
		cost = months * float64(t.MonthlyRate)
		kind = TypeMonthly
		details = fmt.Sprintf("%.1f months x %s %s", months, humanize.Comma(t.MonthlyRate), currencyLabel)

	case days >= 1:
		remaining := hours - float64(days)*24
		cost = float64(days) * float64(t.DailyRate)
		if remaining > 0 {
			cost += tiered(remaining, t)
		}
		kind = TypeDaily
		details = fmt.Sprintf("%d days x %s + %.1fh", days, humanize.Comma(t.DailyRate), remaining)

	default:
		cost = tiered(hours, t)
		kind = TypeHourly
		details = hourlyDetails(hours, t)
	}

	return CostCalculation{
		TotalCost:       roundAmount(cost),
		DurationHours:   math.Round(hours*100) / 100,
		DurationDays:    days,
		CalculationType: kind,
		Details:         details,
	}, nil
}

// ComputeCommittedCost is the amount fixed at check-in for a booking of
// duration units of mode. Durations must be positive, and the booked span
// must fit in a time.Duration (about 292 years).
func ComputeCommittedCost(t Tariff, mode BookingMode, duration int) (int64, error) {
	if err := checkDuration(mode, duration); err != nil {
		return 0, err
	}
	switch mode {
	case Hourly:
		return roundAmount(tiered(float64(duration), t)), nil
	case Daily:
		return t.DailyRate * int64(duration), nil
	case Monthly:
		return t.MonthlyRate * int64(duration), nil
	}
	return 0, errors.Wrapf(ErrUnrecognizedBookingMode, "%q", mode)
}

// PlannedCheckOut projects the checkout time of a booking. A month is 30 days.
func PlannedCheckOut(checkIn time.Time, mode BookingMode, duration int) (time.Time, error) {
	if err := checkDuration(mode, duration); err != nil {
		return time.Time{}, err
	}
	switch mode {
	case Hourly:
		return checkIn.Add(time.Duration(duration) * time.Hour), nil
	case Daily:
		return checkIn.Add(time.Duration(duration) * day), nil
	case Monthly:
		return checkIn.Add(time.Duration(duration*daysPerMonth) * day), nil
	}
	return time.Time{}, errors.Wrapf(ErrUnrecognizedBookingMode, "%q", mode)
}

// unitOf is the length of one booked unit of mode; zero for unknown modes.
func unitOf(mode BookingMode) time.Duration {
	switch mode {
	case Hourly:
		return time.Hour
	case Daily:
		return day
	case Monthly:
		return daysPerMonth * day
	}
	return 0
}

func checkDuration(mode BookingMode, duration int) error {
	if duration <= 0 {
		return errors.Wrapf(ErrInvalidDuration, "duration=%d", duration)
	}
	if u := unitOf(mode); u > 0 && int64(duration) > math.MaxInt64/int64(u) {
		return errors.Wrapf(ErrInvalidDuration, "duration=%d %s overflows", duration, mode)
	}
	return nil
}

// tiered: first hour, second hour, then a flat rate per extra (fractional) hour.
func tiered(hours float64, t Tariff) float64 {
	switch {
	case hours <= 1:
		return float64(t.HourlyFirst)
	case hours <= 2:
		return float64(t.HourlyFirst + t.HourlySecond)
	default:
		return float64(t.HourlyFirst+t.HourlySecond) + (hours-2)*float64(t.HourlyAdditional)
	}
}

func hourlyDetails(hours float64, t Tariff) string {
	switch {
	case hours <= 1:
		return fmt.Sprintf("first hour: %s %s", humanize.Comma(t.HourlyFirst), currencyLabel)
	case hours <= 2:
		return fmt.Sprintf("2 hours: %s + %s %s",
			humanize.Comma(t.HourlyFirst), humanize.Comma(t.HourlySecond), currencyLabel)
	default:
		return fmt.Sprintf("first 2 hours + %.1fh x %s %s",
			hours-2, humanize.Comma(t.HourlyAdditional), currencyLabel)
	}
}

// roundAmount rounds half away from zero; amounts are never negative here, so
// this is round-half-up.
func roundAmount(v float64) int64 {
	return int64(math.Round(v))
}
