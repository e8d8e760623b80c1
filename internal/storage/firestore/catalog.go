package firestore

import (
	"context"

	"cloud.google.com/go/firestore"

	"hotelops/internal/domain"
)

// replace overwrites an existing document and fails with ErrNotFound
// otherwise.
func (s *Store) replace(ctx context.Context, ref *firestore.DocumentRef, data map[string]any) error {
	return s.c.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		return tx.Set(ref, data)
	})
}

func (s *Store) CreateGuest(ctx context.Context, g domain.GuestProfile) error {
	data, err := toData(g, ts(g.CreatedAt))
	if err != nil {
		return err
	}
	_, err = s.c.Collection(colGuests).Doc(g.ID).Create(ctx, data)
	return classify(err, "create guest")
}

func (s *Store) GetGuest(ctx context.Context, id string) (domain.GuestProfile, error) {
	snap, err := s.c.Collection(colGuests).Doc(id).Get(ctx)
	if err != nil {
		return domain.GuestProfile{}, classify(err, "guest "+id)
	}
	return decodeSnap[domain.GuestProfile](snap)
}

func (s *Store) ListGuests(ctx context.Context) ([]domain.GuestProfile, error) {
	gs, err := collect[domain.GuestProfile](s.c.Collection(colGuests).OrderBy(fieldTS, firestore.Desc).Documents(ctx))
	return gs, classify(err, "list guests")
}

func (s *Store) SaveGuest(ctx context.Context, g domain.GuestProfile) error {
	data, err := toData(g, ts(g.CreatedAt))
	if err != nil {
		return err
	}
	return classify(s.replace(ctx, s.c.Collection(colGuests).Doc(g.ID), data), "save guest "+g.ID)
}

func (s *Store) DeleteGuest(ctx context.Context, id string) error {
	_, err := s.c.Collection(colGuests).Doc(id).Delete(ctx, firestore.Exists)
	return classify(err, "delete guest "+id)
}

func (s *Store) CreateDish(ctx context.Context, d domain.Dish) error {
	data, err := toData(d, nil)
	if err != nil {
		return err
	}
	_, err = s.c.Collection(colDishes).Doc(d.ID).Create(ctx, data)
	return classify(err, "create dish")
}

func (s *Store) GetDish(ctx context.Context, id string) (domain.Dish, error) {
	snap, err := s.c.Collection(colDishes).Doc(id).Get(ctx)
	if err != nil {
		return domain.Dish{}, classify(err, "dish "+id)
	}
	return decodeSnap[domain.Dish](snap)
}

func (s *Store) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	ds, err := collect[domain.Dish](s.c.Collection(colDishes).OrderBy("name", firestore.Asc).Documents(ctx))
	return ds, classify(err, "list dishes")
}

func (s *Store) SaveDish(ctx context.Context, d domain.Dish) error {
	data, err := toData(d, nil)
	if err != nil {
		return err
	}
	return classify(s.replace(ctx, s.c.Collection(colDishes).Doc(d.ID), data), "save dish "+d.ID)
}

func (s *Store) DeleteDish(ctx context.Context, id string) error {
	_, err := s.c.Collection(colDishes).Doc(id).Delete(ctx, firestore.Exists)
	return classify(err, "delete dish "+id)
}

func (s *Store) CreateOrder(ctx context.Context, o domain.Order) error {
	data, err := toData(o, ts(o.OrderDate))
	if err != nil {
		return err
	}
	_, err = s.c.Collection(colOrders).Doc(o.ID).Create(ctx, data)
	return classify(err, "create order")
}

// ListOrders pushes the date range to Firestore and applies the text filters
// here, since Firestore has no substring match.
func (s *Store) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	q := s.c.Collection(colOrders).OrderBy(fieldTS, firestore.Desc)
	if f.From != nil {
		q = q.Where(fieldTS, ">=", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where(fieldTS, "<=", f.To.UTC())
	}
	orders, err := collect[domain.Order](q.Documents(ctx))
	if err != nil {
		return nil, classify(err, "list orders")
	}
	out := orders[:0]
	for _, o := range orders {
		if f.Matches(o) {
			out = append(out, o)
		}
	}
	return limit(out, f.Limit), nil
}
