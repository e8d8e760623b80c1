package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"hotelops/internal/adapters/observability"
	"hotelops/internal/domain"
	"hotelops/internal/stay"
	"hotelops/internal/tariff"
)

// CheckInInput accepts both check-in payloads: a single guest given by
// guest_name/guest_phone/guest_id, or a company with a guest list. When both
// are present the guest list wins.
type CheckInInput struct {
	GuestName  string `json:"guest_name"`
	GuestPhone string `json:"guest_phone"`
	GuestID    string `json:"guest_id"`

	CompanyName string         `json:"company_name"`
	Guests      []domain.Guest `json:"guests"`

	BookingType string     `json:"booking_type"`
	Duration    *int       `json:"duration"`
	CheckInDate *time.Time `json:"check_in_date"`
}

func (in CheckInInput) party() domain.Party {
	guests := make([]domain.Guest, 0, len(in.Guests))
	for _, g := range in.Guests {
		g.Name = strings.TrimSpace(g.Name)
		if g.Name != "" {
			guests = append(guests, g)
		}
	}
	if len(guests) > 0 {
		company := strings.TrimSpace(in.CompanyName)
		if company == "" {
			company = domain.IndividualParty
		}
		return domain.Party{CompanyName: company, Guests: guests}
	}
	if name := strings.TrimSpace(in.GuestName); name != "" {
		return domain.Party{
			CompanyName: domain.IndividualParty,
			Guests:      []domain.Guest{{Name: name, Phone: strings.TrimSpace(in.GuestPhone), IDCard: strings.TrimSpace(in.GuestID)}},
		}
	}
	return domain.Party{CompanyName: strings.TrimSpace(in.CompanyName)}
}

// CostView is a live cost preview of an occupied room.
type CostView struct {
	RoomID          string                 `json:"room_id"`
	RoomNumber      string                 `json:"room_number"`
	Party           domain.Party           `json:"party"`
	Mode            tariff.BookingMode     `json:"booking_type"`
	IsHourly        bool                   `json:"is_hourly_booking"`
	CheckIn         time.Time              `json:"check_in_time"`
	CurrentTime     time.Time              `json:"current_time"`
	PlannedCheckOut *time.Time             `json:"planned_check_out_time"`
	CommittedCost   *int64                 `json:"committed_cost,omitempty"`
	Method          string                 `json:"calculation_method"`
	Cost            tariff.CostCalculation `json:"cost_calculation"`
}

type CheckOutResult struct {
	Room    domain.Room       `json:"room"`
	Bill    domain.BillRecord `json:"bill"`
	Invoice domain.Invoice    `json:"invoice"`
}

// StayService runs the stay lifecycle against stored rooms. Each transition
// goes through MutateRoom, so concurrent requests on one room are applied one
// at a time and the loser sees the winner's result.
type StayService struct {
	rooms domain.RoomRepository
	cache domain.Cache
	rt    runtime
}

func NewStayService(r domain.RoomRepository, c domain.Cache, opts ...Option) *StayService {
	return &StayService{rooms: r, cache: c, rt: newRuntime(opts)}
}

func (s *StayService) CheckIn(ctx context.Context, roomID string, in CheckInInput) (domain.Room, error) {
	mode, err := tariff.ParseBookingMode(in.BookingType)
	if err != nil {
		return domain.Room{}, err
	}
	duration := 1
	if in.Duration != nil {
		duration = *in.Duration
	}
	now := s.rt.now()
	at := now
	if in.CheckInDate != nil {
		at = in.CheckInDate.UTC()
		if at.After(now) {
			return domain.Room{}, errors.Wrapf(tariff.ErrInvalidInterval,
				"check_in_date %s is in the future", at.Format(time.RFC3339))
		}
	}
	req := stay.Request{Mode: mode, Duration: duration, At: at, Party: in.party()}

	room, err := s.rooms.MutateRoom(ctx, roomID, func(r *domain.Room) (domain.RoomChange, error) {
		if err := stay.CheckIn(r, req); err != nil {
			return domain.RoomChange{}, err
		}
		r.UpdatedAt = now
		return domain.RoomChange{}, nil
	})
	if err != nil {
		return domain.Room{}, errors.Wrapf(err, "check in room %s", roomID)
	}
	invalidateRoom(ctx, s.cache, roomID)

	observability.ObserveCheckIn(string(mode))
	log.Info().
		Str("room_id", room.ID).
		Str("number", room.Number).
		Str("mode", string(mode)).
		Int("duration", duration).
		Str("company", req.Party.CompanyName).
		Int("guests", len(req.Party.Guests)).
		Int64("committed_cost", *room.Occupancy.CommittedCost).
		Msg("room_checked_in")
	return room, nil
}

// PreviewCost never writes and always reads the room from the store, so the
// preview reflects the latest check-in.
func (s *StayService) PreviewCost(ctx context.Context, roomID string) (CostView, error) {
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return CostView{}, errors.Wrapf(err, "room %s", roomID)
	}
	now := s.rt.now()
	p, err := stay.PreviewCost(room, now)
	if err != nil {
		return CostView{}, err
	}
	occ := room.Occupancy
	return CostView{
		RoomID:          room.ID,
		RoomNumber:      room.Number,
		Party:           occ.Party,
		Mode:            occ.Mode,
		IsHourly:        occ.Mode == tariff.Hourly,
		CheckIn:         occ.Interval.CheckIn,
		CurrentTime:     now,
		PlannedCheckOut: occ.Interval.PlannedCheckOut,
		CommittedCost:   occ.CommittedCost,
		Method:          p.Method,
		Cost:            p.Cost,
	}, nil
}

// CheckOut settles the stay and stores the bill and its invoice in the same
// write that empties the room.
func (s *StayService) CheckOut(ctx context.Context, roomID string) (CheckOutResult, error) {
	at := s.rt.now()
	var (
		bill domain.BillRecord
		inv  domain.Invoice
	)
	room, err := s.rooms.MutateRoom(ctx, roomID, func(r *domain.Room) (domain.RoomChange, error) {
		b, err := stay.CheckOut(r, at)
		if err != nil {
			return domain.RoomChange{}, err
		}
		b.ID = s.rt.newID()
		bill = b
		inv = invoiceFor(b, s.rt.newID())
		r.UpdatedAt = at
		return domain.RoomChange{Bill: &bill, Invoice: &inv}, nil
	})
	if err != nil {
		return CheckOutResult{}, errors.Wrapf(err, "check out room %s", roomID)
	}
	invalidateRoom(ctx, s.cache, roomID)

	observability.ObserveCheckOut(string(bill.Mode), bill.CalculationMethod, bill.ComputedCost)
	log.Info().
		Str("room_id", roomID).
		Str("number", bill.RoomNumber).
		Str("bill_id", bill.ID).
		Str("mode", string(bill.Mode)).
		Str("method", bill.CalculationMethod).
		Int64("cost", bill.ComputedCost).
		Float64("hours", bill.Cost.DurationHours).
		Msg("room_checked_out")
	return CheckOutResult{Room: room, Bill: bill, Invoice: inv}, nil
}

func invoiceFor(b domain.BillRecord, id string) domain.Invoice {
	guest := b.Party.LeadGuest()
	if guest == "" {
		guest = "Unknown"
	}
	item := domain.InvoiceItem{
		Kind:        "room",
		Description: fmt.Sprintf("Room %s - %s (booking: %s)", b.RoomNumber, b.Details, b.Mode),
		Quantity:    1,
		UnitPrice:   b.ComputedCost,
		Total:       b.ComputedCost,
	}
	return domain.Invoice{
		ID:        id,
		BillID:    b.ID,
		RoomID:    b.RoomID,
		GuestName: guest,
		Items:     []domain.InvoiceItem{item},
		Subtotal:  item.Total,
		Total:     item.Total,
		Status:    domain.InvoiceUnpaid,
		CreatedAt: b.CreatedAt,
	}
}
