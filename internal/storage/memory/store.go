// Package memory is a process-local domain.Store for development and tests.
// Every value is copied on the way in and out, so callers never share state
// with the store.
package memory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"

	"hotelops/internal/domain"
)

type Store struct {
	mu       sync.Mutex
	rooms    map[string]domain.Room
	raw      map[string]map[string]any
	guests   map[string]domain.GuestProfile
	dishes   map[string]domain.Dish
	orders   []domain.Order
	bills    []domain.BillRecord
	invoices []domain.Invoice
}

func New() *Store {
	return &Store{
		rooms:  map[string]domain.Room{},
		raw:    map[string]map[string]any{},
		guests: map[string]domain.GuestProfile{},
		dishes: map[string]domain.Dish{},
	}
}

func clone[T any](v T) T {
	b, err := json.Marshal(v)
	if err != nil {
		panic(errors.Wrap(err, "memory: clone"))
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		panic(errors.Wrap(err, "memory: clone"))
	}
	return out
}

// asDocument renders a room the way it is stored by the document backends.
func asDocument(r domain.Room) (map[string]any, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, errors.Wrap(err, "encode room")
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "decode room")
	}
	return m, nil
}

// ImportRoomDocument stores a room exactly as given, bypassing validation.
// It is how documents written by older releases enter the store.
func (s *Store) ImportRoomDocument(id string, raw map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[id] = clone(raw)
}

/********** rooms **********/

func (s *Store) CreateRoom(ctx context.Context, r domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[r.ID]; ok {
		return errors.Wrapf(domain.ErrConflict, "room id %s", r.ID)
	}
	for _, x := range s.rooms {
		if x.Number == r.Number {
			return errors.Wrapf(domain.ErrConflict, "room number %s", r.Number)
		}
	}
	s.rooms[r.ID] = clone(r)
	return nil
}

func (s *Store) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	return clone(r), nil
}

func (s *Store) ListRooms(ctx context.Context) ([]domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, clone(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

// MutateRoom runs fn under the store lock, which serializes it against every
// other write.
func (s *Store) MutateRoom(ctx context.Context, id string, fn func(*domain.Room) (domain.RoomChange, error)) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return domain.Room{}, domain.ErrNotFound
	}
	next := clone(r)
	ch, err := fn(&next)
	if err != nil {
		return domain.Room{}, err
	}
	for otherID, x := range s.rooms {
		if otherID != id && x.Number == next.Number {
			return domain.Room{}, errors.Wrapf(domain.ErrConflict, "room number %s", next.Number)
		}
	}
	s.rooms[id] = clone(next)
	if ch.Bill != nil {
		s.bills = append(s.bills, clone(*ch.Bill))
	}
	if ch.Invoice != nil {
		s.invoices = append(s.invoices, clone(*ch.Invoice))
	}
	return next, nil
}

func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return domain.ErrNotFound
	}
	if r.IsOccupied() {
		return errors.Wrapf(domain.ErrConflict, "room %s is occupied", r.Number)
	}
	delete(s.rooms, id)
	return nil
}

func (s *Store) ListRoomDocuments(ctx context.Context) ([]domain.RoomDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RoomDocument, 0, len(s.raw)+len(s.rooms))
	for id, raw := range s.raw {
		out = append(out, domain.RoomDocument{ID: id, Raw: clone(raw)})
	}
	for id, r := range s.rooms {
		if _, ok := s.raw[id]; ok {
			continue
		}
		m, err := asDocument(r)
		if err != nil {
			return nil, errors.Wrapf(err, "room %s", id)
		}
		out = append(out, domain.RoomDocument{ID: id, Raw: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ReplaceRoom(ctx context.Context, r domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.raw, r.ID)
	s.rooms[r.ID] = clone(r)
	return nil
}

/********** guests **********/

func (s *Store) CreateGuest(ctx context.Context, g domain.GuestProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guests[g.ID]; ok {
		return errors.Wrapf(domain.ErrConflict, "guest %s", g.ID)
	}
	s.guests[g.ID] = g
	return nil
}

func (s *Store) GetGuest(ctx context.Context, id string) (domain.GuestProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.guests[id]
	if !ok {
		return domain.GuestProfile{}, domain.ErrNotFound
	}
	return g, nil
}

func (s *Store) ListGuests(ctx context.Context) ([]domain.GuestProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.GuestProfile, 0, len(s.guests))
	for _, g := range s.guests {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) SaveGuest(ctx context.Context, g domain.GuestProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guests[g.ID]; !ok {
		return domain.ErrNotFound
	}
	s.guests[g.ID] = g
	return nil
}

func (s *Store) DeleteGuest(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guests[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.guests, id)
	return nil
}

/********** menu **********/

func (s *Store) CreateDish(ctx context.Context, d domain.Dish) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dishes[d.ID]; ok {
		return errors.Wrapf(domain.ErrConflict, "dish %s", d.ID)
	}
	s.dishes[d.ID] = d
	return nil
}

func (s *Store) GetDish(ctx context.Context, id string) (domain.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dishes[id]
	if !ok {
		return domain.Dish{}, domain.ErrNotFound
	}
	return d, nil
}

func (s *Store) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Dish, 0, len(s.dishes))
	for _, d := range s.dishes {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) SaveDish(ctx context.Context, d domain.Dish) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dishes[d.ID]; !ok {
		return domain.ErrNotFound
	}
	s.dishes[d.ID] = d
	return nil
}

func (s *Store) DeleteDish(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dishes[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.dishes, id)
	return nil
}

func (s *Store) CreateOrder(ctx context.Context, o domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
	return nil
}

func (s *Store) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Order{}
	for _, o := range s.orders {
		if f.Matches(o) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderDate.After(out[j].OrderDate) })
	return limit(out, f.Limit), nil
}

/********** billing **********/

func (s *Store) ListBills(ctx context.Context, f domain.BillFilter) ([]domain.BillRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.BillRecord{}
	for _, b := range s.bills {
		if f.Matches(b) {
			out = append(out, clone(b))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return limit(out, f.Limit), nil
}

func (s *Store) ListInvoices(ctx context.Context, n int) ([]domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Invoice, 0, len(s.invoices))
	for _, inv := range s.invoices {
		out = append(out, clone(inv))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return limit(out, n), nil
}

func (s *Store) SetInvoiceStatus(ctx context.Context, id string, status domain.InvoiceStatus, at time.Time) (domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.invoices {
		if s.invoices[i].ID == id {
			s.invoices[i].ApplyStatus(status, at)
			return clone(s.invoices[i]), nil
		}
	}
	return domain.Invoice{}, domain.ErrNotFound
}

func limit[T any](xs []T, n int) []T {
	if n > 0 && len(xs) > n {
		return xs[:n]
	}
	return xs
}
