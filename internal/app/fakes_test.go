package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"hotelops/internal/app"
	"hotelops/internal/domain"
)

// ---- fakes ----

// memStore is an in-memory domain.Store. MutateRoom holds the store lock
// while fn runs, which is the serialization the real stores give per room.
type memStore struct {
	mu       sync.Mutex
	rooms    map[string]domain.Room
	legacy   map[string]map[string]any
	guests   map[string]domain.GuestProfile
	dishes   map[string]domain.Dish
	orders   []domain.Order
	bills    []domain.BillRecord
	invoices []domain.Invoice

	listRoomsCalls int
	failBills      error
}

func newMemStore() *memStore {
	return &memStore{
		rooms:  map[string]domain.Room{},
		legacy: map[string]map[string]any{},
		guests: map[string]domain.GuestProfile{},
		dishes: map[string]domain.Dish{},
	}
}

func clone[T any](v T) T {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		panic(err)
	}
	return out
}

func (s *memStore) CreateRoom(ctx context.Context, r domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.rooms {
		if x.Number == r.Number {
			return fmt.Errorf("number %s: %w", r.Number, domain.ErrConflict)
		}
	}
	s.rooms[r.ID] = clone(r)
	return nil
}

func (s *memStore) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	return clone(r), nil
}

func (s *memStore) ListRooms(ctx context.Context) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listRoomsCalls++
	out := make([]domain.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, clone(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) MutateRoom(ctx context.Context, id string, fn func(*domain.Room) (domain.RoomChange, error)) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	cp := clone(r)
	ch, err := fn(&cp)
	if err != nil {
		return domain.Room{}, err
	}
	s.rooms[id] = clone(cp)
	if ch.Bill != nil {
		s.bills = append(s.bills, clone(*ch.Bill))
	}
	if ch.Invoice != nil {
		s.invoices = append(s.invoices, clone(*ch.Invoice))
	}
	return cp, nil
}

func (s *memStore) DeleteRoom(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return domain.ErrNotFound
	}
	if r.IsOccupied() {
		return domain.ErrConflict
	}
	delete(s.rooms, id)
	return nil
}

func (s *memStore) CreateGuest(ctx context.Context, g domain.GuestProfile) error {
	return s.SaveGuest(ctx, g)
}

func (s *memStore) GetGuest(ctx context.Context, id string) (domain.GuestProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guests[id]
	if !ok {
		return domain.GuestProfile{}, domain.ErrNotFound
	}
	return g, nil
}

func (s *memStore) ListGuests(ctx context.Context) ([]domain.GuestProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.GuestProfile, 0, len(s.guests))
	for _, g := range s.guests {
		out = append(out, g)
	}
	return out, nil
}

func (s *memStore) SaveGuest(ctx context.Context, g domain.GuestProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guests[g.ID] = g
	return nil
}

func (s *memStore) DeleteGuest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guests[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.guests, id)
	return nil
}

func (s *memStore) CreateDish(ctx context.Context, d domain.Dish) error { return s.SaveDish(ctx, d) }

func (s *memStore) GetDish(ctx context.Context, id string) (domain.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dishes[id]
	if !ok {
		return domain.Dish{}, domain.ErrNotFound
	}
	return d, nil
}

func (s *memStore) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Dish, 0, len(s.dishes))
	for _, d := range s.dishes {
		out = append(out, d)
	}
	return out, nil
}

func (s *memStore) SaveDish(ctx context.Context, d domain.Dish) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dishes[d.ID] = d
	return nil
}

func (s *memStore) DeleteDish(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dishes[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.dishes, id)
	return nil
}

func (s *memStore) CreateOrder(ctx context.Context, o domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
	return nil
}

func (s *memStore) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Order
	for _, o := range s.orders {
		if f.Matches(o) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *memStore) ListBills(ctx context.Context, f domain.BillFilter) ([]domain.BillRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failBills != nil {
		return nil, s.failBills
	}
	var out []domain.BillRecord
	for _, b := range s.bills {
		if f.Matches(b) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *memStore) ListInvoices(ctx context.Context, limit int) ([]domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]domain.Invoice(nil), s.invoices...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memStore) SetInvoiceStatus(ctx context.Context, id string, status domain.InvoiceStatus, at time.Time) (domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.invoices {
		if s.invoices[i].ID == id {
			s.invoices[i].ApplyStatus(status, at)
			return s.invoices[i], nil
		}
	}
	return domain.Invoice{}, domain.ErrNotFound
}

func (s *memStore) ListRoomDocuments(ctx context.Context) ([]domain.RoomDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RoomDocument
	for id, raw := range s.legacy {
		out = append(out, domain.RoomDocument{ID: id, Raw: raw})
	}
	for id, r := range s.rooms {
		if _, ok := s.legacy[id]; ok {
			continue
		}
		out = append(out, domain.RoomDocument{ID: id, Raw: toMap(r)})
	}
	return out, nil
}

func toMap(r domain.Room) map[string]any {
	b, _ := json.Marshal(r)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	return m
}

func (s *memStore) ReplaceRoom(ctx context.Context, r domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.legacy, r.ID)
	s.rooms[r.ID] = clone(r)
	return nil
}

// fakeCache stores JSON like the redis adapter does, so cached values never
// alias what the caller holds.
type fakeCache struct {
	mu    sync.Mutex
	store map[string][]byte
	dels  []string
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(v, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.dels = append(c.dels, key)
	return nil
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.store[key]
	return ok
}

// ---- helpers ----

var t0 = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// seqIDs hands out id-1, id-2, ...
func seqIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func ptr[T any](v T) *T { return &v }

type harness struct {
	store    *memStore
	cache    *fakeCache
	clock    *clock
	commands *app.CommandService
	queries  *app.QueryService
	stays    *app.StayService
	reports  *app.ReportService
}

func newHarness() *harness {
	h := &harness{store: newMemStore(), cache: &fakeCache{}, clock: &clock{now: t0}}
	opts := []app.Option{app.WithClock(h.clock.Now), app.WithIDs(seqIDs())}
	h.commands = app.NewCommandService(h.store, h.cache, opts...)
	h.queries = app.NewQueryService(h.store, h.cache, 10*time.Minute)
	h.stays = app.NewStayService(h.store, h.cache, opts...)
	h.reports = app.NewReportService(h.store, opts...)
	return h
}

func (h *harness) room(t *testing.T, number string, typ domain.RoomType) domain.Room {
	t.Helper()
	r, err := h.commands.CreateRoom(context.Background(), app.RoomInput{Number: number, Type: typ})
	if err != nil {
		t.Fatalf("create room %s: %v", number, err)
	}
	return r
}
