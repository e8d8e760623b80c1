package domain

import (
	"time"

	"hotelops/internal/tariff"
)

// BillRecord is written once per checkout and never updated.
type BillRecord struct {
	ID                string                 `json:"id"`
	RoomID            string                 `json:"room_id"`
	RoomNumber        string                 `json:"room_number"`
	Party             Party                  `json:"party"`
	Mode              tariff.BookingMode     `json:"booking_type"`
	Duration          int                    `json:"booking_duration"`
	CheckIn           time.Time              `json:"check_in_time"`
	CheckOut          time.Time              `json:"check_out_time"`
	PlannedCheckOut   *time.Time             `json:"planned_check_out,omitempty"`
	CommittedCost     *int64                 `json:"original_total_cost,omitempty"`
	ComputedCost      int64                  `json:"computed_cost"`
	CalculationMethod string                 `json:"calculation_method"`
	Cost              tariff.CostCalculation `json:"cost_calculation"`
	Details           string                 `json:"details"`
	CreatedAt         time.Time              `json:"created_at"`
}

type InvoiceStatus string

const (
	InvoiceUnpaid   InvoiceStatus = "unpaid"
	InvoicePaid     InvoiceStatus = "paid"
	InvoiceRefunded InvoiceStatus = "refunded"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceUnpaid, InvoicePaid, InvoiceRefunded:
		return true
	}
	return false
}

type InvoiceItem struct {
	Kind        string `json:"type"` // room|service|food
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
	Total       int64  `json:"total_price"`
}

// Invoice is the payable document derived from a bill. Unlike the bill it
// moves through payment states.
type Invoice struct {
	ID        string        `json:"id"`
	BillID    string        `json:"bill_id"`
	RoomID    string        `json:"room_id"`
	GuestName string        `json:"guest_name"`
	Items     []InvoiceItem `json:"items"`
	Subtotal  int64         `json:"subtotal"`
	Tax       int64         `json:"tax"`
	Total     int64         `json:"total"`
	Status    InvoiceStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	PaidAt    *time.Time    `json:"paid_at,omitempty"`
}

type BillFilter struct {
	From, To *time.Time
	Limit    int
}

func (f BillFilter) Matches(b BillRecord) bool {
	if f.From != nil && b.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && b.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

// ApplyStatus moves the invoice to status. PaidAt is stamped on payment,
// kept on refund and cleared when the invoice goes back to unpaid.
func (inv *Invoice) ApplyStatus(status InvoiceStatus, at time.Time) {
	inv.Status = status
	switch status {
	case InvoicePaid:
		t := at
		inv.PaidAt = &t
	case InvoiceUnpaid:
		inv.PaidAt = nil
	}
}
