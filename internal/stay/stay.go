// Package stay drives a room through check-in, live cost preview and
// checkout. It holds no state of its own and never reads the wall clock:
// callers pass the time of every operation and persist the result.
//
// Callers must serialize mutations of the same room (see
// domain.RoomRepository.MutateRoom); two concurrent check-ins on one room
// would otherwise both see it empty.
package stay

import (
	"fmt"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"

	"hotelops/internal/domain"
	"hotelops/internal/tariff"
)

// Calculation methods recorded on previews and bills.
const (
	MethodActualTimeHourly = "actual_time_hourly"
	MethodFallback         = "fallback_calculation"
	MethodDefault          = "default_calculation"

	MethodRealTimeHourly = "real_time_hourly"
	MethodFixedDuration  = "fixed_duration"
	MethodPreCalculated  = "pre_calculated"
)

func PrePaidMethod(mode tariff.BookingMode) string { return "pre_paid_" + string(mode) }

type Request struct {
	Mode     tariff.BookingMode
	Duration int
	At       time.Time
	Party    domain.Party
}

// Preview is a priced snapshot of an ongoing stay.
type Preview struct {
	Cost   tariff.CostCalculation
	Method string
}

// CheckIn occupies an empty room. On error the room is left untouched.
func CheckIn(room *domain.Room, req Request) error {
	if room.Status != domain.RoomEmpty {
		return errors.Wrapf(domain.ErrRoomNotAvailable, "room %s is %s", room.Number, room.Status)
	}
	if len(req.Party.Guests) == 0 {
		return domain.ErrNoGuests
	}
	planned, err := tariff.PlannedCheckOut(req.At, req.Mode, req.Duration)
	if err != nil {
		return err
	}
	committed, err := tariff.ComputeCommittedCost(room.Tariff, req.Mode, req.Duration)
	if err != nil {
		return err
	}

	party := domain.Party{
		CompanyName: req.Party.CompanyName,
		Guests:      append([]domain.Guest(nil), req.Party.Guests...),
	}
	room.Status = domain.RoomOccupied
	room.Occupancy = &domain.Occupancy{
		Interval:       domain.Interval{CheckIn: req.At, PlannedCheckOut: &planned},
		Mode:           req.Mode,
		Duration:       req.Duration,
		CommittedCost:  &committed,
		TariffSnapshot: room.Tariff,
		Party:          party,
	}
	return nil
}

// PreviewCost prices the stay as of now without changing anything.
//
// Hourly stays are priced on the time elapsed so far. Daily and monthly stays
// are priced on their planned length, so repeated previews agree.
func PreviewCost(room domain.Room, now time.Time) (Preview, error) {
	if !room.IsOccupied() {
		return Preview{}, errors.Wrapf(domain.ErrRoomNotOccupied, "room %s", room.Number)
	}
	occ := room.Occupancy
	in := occ.Interval.CheckIn

	switch occ.Mode {
	case tariff.Hourly:
		c, err := tariff.ComputeElapsedCost(in, now, occ.TariffSnapshot)
		return Preview{Cost: c, Method: MethodRealTimeHourly}, err

	case tariff.Daily, tariff.Monthly:
		if p := occ.Interval.PlannedCheckOut; p != nil {
			c, err := tariff.ComputeElapsedCost(in, *p, occ.TariffSnapshot)
			return Preview{Cost: c, Method: MethodFixedDuration}, err
		}
		var committed int64
		if occ.CommittedCost != nil {
			committed = *occ.CommittedCost
		}
		return Preview{
			Cost: tariff.CostCalculation{
				TotalCost:       committed,
				CalculationType: string(occ.Mode),
				Details:         fmt.Sprintf("pre-calculated %s cost", occ.Mode),
			},
			Method: MethodPreCalculated,
		}, nil
	}

	// unknown modes (from migrated rooms) have no planned length to quote,
	// so they preview like checkout would price them: on elapsed time.
	c, err := tariff.ComputeElapsedCost(in, now, occ.TariffSnapshot)
	return Preview{Cost: c, Method: MethodDefault}, err
}

// CheckOut settles the stay at the given time, empties the room and returns
// the bill. The bill has no ID; the caller assigns one when storing it.
func CheckOut(room *domain.Room, at time.Time) (domain.BillRecord, error) {
	if !room.IsOccupied() {
		return domain.BillRecord{}, errors.Wrapf(domain.ErrRoomNotOccupied, "room %s", room.Number)
	}
	occ := *room.Occupancy

	cost, method, err := settle(occ, at)
	if err != nil {
		return domain.BillRecord{}, err
	}

	bill := domain.BillRecord{
		RoomID:            room.ID,
		RoomNumber:        room.Number,
		Party:             occ.Party,
		Mode:              occ.Mode,
		Duration:          occ.Duration,
		CheckIn:           occ.Interval.CheckIn,
		CheckOut:          at,
		PlannedCheckOut:   occ.Interval.PlannedCheckOut,
		CommittedCost:     occ.CommittedCost,
		ComputedCost:      cost.TotalCost,
		CalculationMethod: method,
		Cost:              cost,
		Details:           cost.Details,
		CreatedAt:         at,
	}

	room.Status = domain.RoomEmpty
	room.Occupancy = nil
	return bill, nil
}

// settle decides the final price. Hourly stays always pay for actual time;
// daily and monthly stays pay what was committed at check-in, however early
// or late they leave. Only the elapsed-time paths can fail on a checkout
// earlier than the check-in.
func settle(occ domain.Occupancy, at time.Time) (tariff.CostCalculation, string, error) {
	in := occ.Interval.CheckIn

	switch occ.Mode {
	case tariff.Hourly:
		c, err := tariff.ComputeElapsedCost(in, at, occ.TariffSnapshot)
		return c, MethodActualTimeHourly, err

	case tariff.Daily, tariff.Monthly:
		if occ.CommittedCost == nil {
			c, err := tariff.ComputeElapsedCost(in, at, occ.TariffSnapshot)
			return c, MethodFallback, err
		}
		elapsed := max(at.Sub(in), 0)
		return tariff.CostCalculation{
			TotalCost:       *occ.CommittedCost,
			DurationHours:   math.Round(elapsed.Hours()*100) / 100,
			DurationDays:    int64(elapsed / (24 * time.Hour)),
			CalculationType: "fixed_" + string(occ.Mode),
			Details: fmt.Sprintf("fixed %s cost, prepaid: %s VND",
				occ.Mode, humanize.Comma(*occ.CommittedCost)),
		}, PrePaidMethod(occ.Mode), nil
	}

	c, err := tariff.ComputeElapsedCost(in, at, occ.TariffSnapshot)
	return c, MethodDefault, err
}
