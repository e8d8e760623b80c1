package app

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/errors"

	"hotelops/internal/domain"
)

const (
	keyRooms  = "rooms"
	keyDishes = "dishes"

	defaultOrderLimit = 100
	defaultBillLimit  = 50
	maxListLimit      = 1000
)

func keyRoom(id string) string { return "room:" + id }

// invalidateRoom drops every cached view a room write can change.
func invalidateRoom(ctx context.Context, c domain.Cache, id string) {
	_ = c.Del(ctx, keyRoom(id))
	_ = c.Del(ctx, keyRooms)
}

type QueryService struct {
	store    domain.Store
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewQueryService(s domain.Store, c domain.Cache, ttl time.Duration) *QueryService {
	return &QueryService{store: s, cache: c, cacheTTL: ttl}
}

func (s *QueryService) ttl() int { return int(s.cacheTTL.Seconds()) }

func (s *QueryService) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	key := keyRoom(id)
	var r domain.Room
	if ok, _ := s.cache.Get(ctx, key, &r); ok {
		return r, nil
	}
	r, err := s.store.GetRoom(ctx, id)
	if err != nil {
		return domain.Room{}, errors.Wrapf(err, "room %s", id)
	}
	_ = s.cache.Set(ctx, key, r, s.ttl())
	return r, nil
}

// ListRooms returns all rooms ordered by number.
func (s *QueryService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var rooms []domain.Room
	if ok, _ := s.cache.Get(ctx, keyRooms, &rooms); ok {
		return rooms, nil
	}
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list rooms")
	}
	// copy so callers cannot mutate what the repo handed out
	out := append([]domain.Room(nil), rooms...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	_ = s.cache.Set(ctx, keyRooms, out, s.ttl())
	return out, nil
}

func (s *QueryService) RoomGuests(ctx context.Context, id string) (domain.RoomGuests, error) {
	r, err := s.GetRoom(ctx, id)
	if err != nil {
		return domain.RoomGuests{}, err
	}
	out := domain.RoomGuests{RoomID: r.ID, RoomNumber: r.Number, Guests: []domain.Guest{}, Status: r.Status}
	if r.IsOccupied() {
		company := r.Occupancy.Party.CompanyName
		out.CompanyName = &company
		out.Guests = append(out.Guests, r.Occupancy.Party.Guests...)
	}
	return out, nil
}

func (s *QueryService) GetGuest(ctx context.Context, id string) (domain.GuestProfile, error) {
	g, err := s.store.GetGuest(ctx, id)
	return g, errors.Wrapf(err, "guest %s", id)
}

func (s *QueryService) ListGuests(ctx context.Context) ([]domain.GuestProfile, error) {
	gs, err := s.store.ListGuests(ctx)
	return gs, errors.Wrap(err, "list guests")
}

func (s *QueryService) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	var ds []domain.Dish
	if ok, _ := s.cache.Get(ctx, keyDishes, &ds); ok {
		return ds, nil
	}
	ds, err := s.store.ListDishes(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list dishes")
	}
	out := append([]domain.Dish(nil), ds...)
	_ = s.cache.Set(ctx, keyDishes, out, s.ttl())
	return out, nil
}

func (s *QueryService) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	f.Limit = clampLimit(f.Limit, defaultOrderLimit)
	orders, err := s.store.ListOrders(ctx, f)
	return orders, errors.Wrap(err, "list orders")
}

// OrderCompanies lists the distinct company names that placed orders.
func (s *QueryService) OrderCompanies(ctx context.Context) ([]string, error) {
	return s.distinctOrders(ctx, func(o domain.Order) string { return o.CompanyName })
}

// OrderDishes lists the distinct dish names that were ordered.
func (s *QueryService) OrderDishes(ctx context.Context) ([]string, error) {
	return s.distinctOrders(ctx, func(o domain.Order) string { return o.DishName })
}

func (s *QueryService) distinctOrders(ctx context.Context, field func(domain.Order) string) ([]string, error) {
	orders, err := s.store.ListOrders(ctx, domain.OrderFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	seen := make(map[string]struct{}, len(orders))
	out := []string{}
	for _, o := range orders {
		v := field(o)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

func (s *QueryService) ListBills(ctx context.Context, f domain.BillFilter) ([]domain.BillRecord, error) {
	f.Limit = clampLimit(f.Limit, defaultBillLimit)
	bs, err := s.store.ListBills(ctx, f)
	return bs, errors.Wrap(err, "list bills")
}

func (s *QueryService) ListInvoices(ctx context.Context, limit int) ([]domain.Invoice, error) {
	is, err := s.store.ListInvoices(ctx, clampLimit(limit, defaultBillLimit))
	return is, errors.Wrap(err, "list invoices")
}

func clampLimit(n, def int) int {
	switch {
	case n <= 0:
		return def
	case n > maxListLimit:
		return maxListLimit
	}
	return n
}
