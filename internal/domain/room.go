package domain

import (
	"time"

	"hotelops/internal/tariff"
)

type RoomType string

const (
	RoomSingle RoomType = "single"
	RoomDouble RoomType = "double"
)

func (t RoomType) Valid() bool { return t == RoomSingle || t == RoomDouble }

type RoomStatus string

const (
	RoomEmpty    RoomStatus = "empty"
	RoomOccupied RoomStatus = "occupied"
)

// IndividualParty labels a stay booked by a single guest rather than a company.
const IndividualParty = "Individual"

type Guest struct {
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
	Email  string `json:"email,omitempty"`
	IDCard string `json:"id_card,omitempty"`
}

// Party is whoever occupies the room for one stay. It is carried through to
// the bill untouched.
type Party struct {
	CompanyName string  `json:"company_name"`
	Guests      []Guest `json:"guests"`
}

func (p Party) LeadGuest() string {
	if len(p.Guests) == 0 {
		return ""
	}
	return p.Guests[0].Name
}

type Interval struct {
	CheckIn         time.Time  `json:"check_in"`
	PlannedCheckOut *time.Time `json:"planned_check_out,omitempty"`
	ActualCheckOut  *time.Time `json:"actual_check_out,omitempty"`
}

// Occupancy exists only while a room is occupied. TariffSnapshot is copied
// from the room at check-in and is the only tariff used to price the stay.
type Occupancy struct {
	Interval       Interval           `json:"interval"`
	Mode           tariff.BookingMode `json:"booking_type"`
	Duration       int                `json:"booking_duration"`
	CommittedCost  *int64             `json:"committed_cost,omitempty"`
	TariffSnapshot tariff.Tariff      `json:"tariff_snapshot"`
	Party          Party              `json:"party"`
}

type Room struct {
	ID        string        `json:"id"`
	Number    string        `json:"number"`
	Type      RoomType      `json:"type"`
	Status    RoomStatus    `json:"status"`
	Tariff    tariff.Tariff `json:"tariff"`
	Occupancy *Occupancy    `json:"occupancy,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (r Room) IsOccupied() bool { return r.Status == RoomOccupied && r.Occupancy != nil }

// RoomGuests is the read model behind the room guests lookup.
type RoomGuests struct {
	RoomID      string     `json:"room_id"`
	RoomNumber  string     `json:"room_number"`
	CompanyName *string    `json:"company_name"`
	Guests      []Guest    `json:"guests"`
	Status      RoomStatus `json:"status"`
}

// RoomPatch carries the editable room attributes; nil means unchanged.
type RoomPatch struct {
	Number *string
	Type   *RoomType
	Tariff *tariff.Tariff
}
