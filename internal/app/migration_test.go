package app_test

import (
	"context"
	"testing"
	"time"

	"hotelops/internal/app"
	"hotelops/internal/domain"
	"hotelops/internal/stay"
	"hotelops/internal/tariff"
)

func seedLegacy(h *harness) {
	h.store.legacy["r-daily"] = map[string]any{
		"id": "r-daily", "number": "101", "type": "double", "status": "occupied",
		"pricing": map[string]any{
			"hourly_first": 90000.0, "hourly_second": 45000.0, "hourly_additional": 25000.0,
			"daily_rate": 600000.0, "monthly_rate": 13000000.0,
		},
		"company_name":     "ACME",
		"guests":           []any{map[string]any{"name": "Ana", "phone": "0900"}, map[string]any{"name": "Bob"}},
		"guest_name":       "Ana",
		"check_in_date":    "2025-02-28T10:00:00",
		"check_out_date":   "2025-03-02T10:00:00+00:00",
		"total_cost":       1200000.0,
		"booking_type":     "daily",
		"booking_duration": 2.0,
		"created_at":       "2024-12-01T00:00:00Z",
	}
	// checked in before booking modes and company parties existed
	h.store.legacy["r-old"] = map[string]any{
		"id": "r-old", "number": "102", "type": "single", "status": "occupied",
		"guest_name":    "Cho",
		"company_name":  "Cá nhân",
		"check_in_date": "2025-03-01T09:00:00.123456",
	}
	h.store.legacy["r-booked"] = map[string]any{
		"id": "r-booked", "number": "103", "type": "single", "status": "booked",
		"pricing": map[string]any{"daily_rate": "550,000"},
	}
	h.store.legacy["r-broken"] = map[string]any{
		"id": "r-broken", "number": "104", "type": "single", "status": "occupied",
		"guest_name": "Dan",
	}
}

func TestMigrateRooms(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	seedLegacy(h)
	h.room(t, "201", domain.RoomSingle) // already structured

	m := app.NewMigrationService(h.store, h.cache, app.WithClock(h.clock.Now))
	rep, err := m.MigrateRooms(ctx, 2)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	want := app.MigrationReport{Scanned: 5, Migrated: 3, Skipped: 1, Failed: 1}
	if rep != want {
		t.Fatalf("report = %+v, want %+v", rep, want)
	}

	daily, err := h.store.GetRoom(ctx, "r-daily")
	if err != nil {
		t.Fatalf("get r-daily: %v", err)
	}
	if daily.Tariff.DailyRate != 600000 || daily.Type != domain.RoomDouble {
		t.Fatalf("unexpected room: %+v", daily)
	}
	occ := daily.Occupancy
	if occ == nil || occ.Mode != tariff.Daily || occ.Duration != 2 || *occ.CommittedCost != 1200000 {
		t.Fatalf("unexpected occupancy: %+v", occ)
	}
	if occ.TariffSnapshot != daily.Tariff {
		t.Fatalf("missing snapshot should copy the room tariff")
	}
	if occ.Party.CompanyName != "ACME" || len(occ.Party.Guests) != 2 || occ.Party.Guests[0].Phone != "0900" {
		t.Fatalf("unexpected party: %+v", occ.Party)
	}
	if !occ.Interval.CheckIn.Equal(time.Date(2025, 2, 28, 10, 0, 0, 0, time.UTC)) || occ.Interval.PlannedCheckOut == nil {
		t.Fatalf("unexpected interval: %+v", occ.Interval)
	}
	if !daily.CreatedAt.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("created_at not carried over: %v", daily.CreatedAt)
	}

	old, _ := h.store.GetRoom(ctx, "r-old")
	if old.Occupancy.Mode != tariff.Hourly || old.Occupancy.CommittedCost != nil {
		t.Fatalf("old stay should default to hourly without a committed cost: %+v", old.Occupancy)
	}
	if p := old.Occupancy.Party; p.CompanyName != domain.IndividualParty || p.LeadGuest() != "Cho" {
		t.Fatalf("legacy guest not lifted into a party: %+v", p)
	}

	booked, _ := h.store.GetRoom(ctx, "r-booked")
	if booked.Status != domain.RoomEmpty || booked.Occupancy != nil || booked.Tariff.DailyRate != 550000 || booked.Tariff.HourlyFirst != 80000 {
		t.Fatalf("unexpected booked room: %+v", booked)
	}

	if _, ok := h.store.legacy["r-broken"]; !ok {
		t.Fatalf("a room that fails to convert must be left as it was")
	}

	// a second run finds nothing left to convert
	rep, err = m.MigrateRooms(ctx, 2)
	if err != nil {
		t.Fatalf("migrate again: %v", err)
	}
	if rep.Migrated != 0 || rep.Failed != 1 {
		t.Fatalf("second run = %+v", rep)
	}
}

func TestMigratedRoomsCheckOut(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	seedLegacy(h)

	m := app.NewMigrationService(h.store, h.cache)
	if _, err := m.MigrateRooms(ctx, 4); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	res, err := h.stays.CheckOut(ctx, "r-daily")
	if err != nil {
		t.Fatalf("check out: %v", err)
	}
	if res.Bill.ComputedCost != 1200000 || res.Bill.CalculationMethod != "pre_paid_daily" {
		t.Fatalf("unexpected bill: %d %s", res.Bill.ComputedCost, res.Bill.CalculationMethod)
	}

	// t0 is 2025-03-01 10:00; r-old checked in at 09:00:00.123456
	res, err = h.stays.CheckOut(ctx, "r-old")
	if err != nil {
		t.Fatalf("check out: %v", err)
	}
	if res.Bill.CalculationMethod != stay.MethodActualTimeHourly || res.Bill.ComputedCost != 80000 {
		t.Fatalf("unexpected bill: %d %s", res.Bill.ComputedCost, res.Bill.CalculationMethod)
	}
}
