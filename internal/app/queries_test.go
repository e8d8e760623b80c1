package app_test

import (
	"context"
	"testing"
	"time"

	"hotelops/internal/app"
	"hotelops/internal/domain"
)

func TestGetRoom_CacheMissThenHit(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	r := h.room(t, "101", domain.RoomSingle)

	// Miss (first time, populates cache)
	got, err := h.queries.GetRoom(ctx, r.ID)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got.Number != "101" {
		t.Fatalf("unexpected room: %+v", got)
	}

	// Mutate the store behind the service's back to prove the next read is cached
	h.store.mu.Lock()
	x := h.store.rooms[r.ID]
	x.Number = "SHOULD NOT SEE THIS"
	h.store.rooms[r.ID] = x
	h.store.mu.Unlock()

	// Hit (served from cache)
	got2, err := h.queries.GetRoom(ctx, r.ID)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if got2.Number != "101" {
		t.Fatalf("expected cached number, got %s", got2.Number)
	}
}

func TestListRooms_SortedAndCached(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	h.room(t, "305", domain.RoomSingle)
	h.room(t, "101", domain.RoomDouble)
	h.room(t, "204", domain.RoomSingle)

	rooms, err := h.queries.ListRooms(ctx)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(rooms) != 3 || rooms[0].Number != "101" || rooms[1].Number != "204" || rooms[2].Number != "305" {
		t.Fatalf("rooms not sorted by number: %+v", rooms)
	}

	calls := h.store.listRoomsCalls
	if _, err := h.queries.ListRooms(ctx); err != nil {
		t.Fatalf("err: %v", err)
	}
	if h.store.listRoomsCalls != calls {
		t.Fatalf("second list should come from cache")
	}

	// a write drops the cached list
	h.room(t, "102", domain.RoomSingle)
	rooms, _ = h.queries.ListRooms(ctx)
	if len(rooms) != 4 {
		t.Fatalf("stale room list after create: %d", len(rooms))
	}
}

func TestRoomGuests(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	r := h.room(t, "101", domain.RoomSingle)

	empty, err := h.queries.RoomGuests(ctx, r.ID)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if empty.CompanyName != nil || len(empty.Guests) != 0 || empty.Status != domain.RoomEmpty {
		t.Fatalf("unexpected guests of empty room: %+v", empty)
	}

	if _, err := h.stays.CheckIn(ctx, r.ID, app.CheckInInput{
		CompanyName: "ACME", Guests: []domain.Guest{{Name: "Ana"}, {Name: "Bob"}},
	}); err != nil {
		t.Fatalf("check in: %v", err)
	}
	full, err := h.queries.RoomGuests(ctx, r.ID)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if full.CompanyName == nil || *full.CompanyName != "ACME" || len(full.Guests) != 2 || full.RoomNumber != "101" {
		t.Fatalf("unexpected room guests: %+v", full)
	}
}

func TestOrders_FilterAndDistinct(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	pho, _ := h.commands.CreateDish(ctx, app.DishInput{Name: "Pho", Price: 45000})
	com, _ := h.commands.CreateDish(ctx, app.DishInput{Name: "Com tam", Price: 35000})

	place := func(company, dish string) {
		t.Helper()
		if _, err := h.commands.CreateOrder(ctx, app.OrderInput{CompanyName: company, DishID: dish, Quantity: 1}); err != nil {
			t.Fatalf("order: %v", err)
		}
		h.clock.Advance(time.Hour)
	}
	place("ACME Corp", pho.ID)
	place("Globex", com.ID)
	place("acme corp", com.ID)

	got, err := h.queries.ListOrders(ctx, domain.OrderFilter{Company: "ACME"})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(got) != 2 || !got[0].OrderDate.After(got[1].OrderDate) {
		t.Fatalf("want two ACME orders newest first: %+v", got)
	}

	got, _ = h.queries.ListOrders(ctx, domain.OrderFilter{Dish: "TAM"})
	if len(got) != 2 {
		t.Fatalf("dish filter: %+v", got)
	}

	from := t0.Add(90 * time.Minute)
	got, _ = h.queries.ListOrders(ctx, domain.OrderFilter{From: &from})
	if len(got) != 1 || got[0].CompanyName != "acme corp" {
		t.Fatalf("date filter: %+v", got)
	}

	companies, _ := h.queries.OrderCompanies(ctx)
	if len(companies) != 3 {
		t.Fatalf("companies: %v", companies)
	}
	dishes, _ := h.queries.OrderDishes(ctx)
	if len(dishes) != 2 || dishes[0] != "Com tam" || dishes[1] != "Pho" {
		t.Fatalf("dishes: %v", dishes)
	}
}

func TestListDishes_Cached(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	if _, err := h.commands.CreateDish(ctx, app.DishInput{Name: "Pho", Price: 45000}); err != nil {
		t.Fatalf("create: %v", err)
	}
	ds, err := h.queries.ListDishes(ctx)
	if err != nil || len(ds) != 1 {
		t.Fatalf("list: %v %+v", err, ds)
	}
	if !h.cache.has("dishes") {
		t.Fatalf("dishes should be cached")
	}
	if _, err := h.commands.CreateDish(ctx, app.DishInput{Name: "Bun", Price: 40000}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if h.cache.has("dishes") {
		t.Fatalf("dish write should drop the cached list")
	}
}
