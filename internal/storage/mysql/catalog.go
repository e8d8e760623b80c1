package mysql

import (
	"context"

	"hotelops/internal/domain"
)

func (r *Repo) CreateGuest(ctx context.Context, g domain.GuestProfile) error {
	d, err := doc(g)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertGuestSQL, g.ID, g.Name, d, g.CreatedAt.UTC())
	return classify(err, "insert guest")
}

func (r *Repo) GetGuest(ctx context.Context, id string) (domain.GuestProfile, error) {
	g, err := getDoc[domain.GuestProfile](ctx, r.db, getGuestSQL, id)
	return g, classify(err, "guest "+id)
}

func (r *Repo) ListGuests(ctx context.Context) ([]domain.GuestProfile, error) {
	gs, err := listDocs[domain.GuestProfile](ctx, r.db, listGuestsSQL)
	return gs, classify(err, "list guests")
}

func (r *Repo) SaveGuest(ctx context.Context, g domain.GuestProfile) error {
	d, err := doc(g)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, updateGuestSQL, g.Name, d, g.ID)
	return affected(res, err, "update guest "+g.ID)
}

func (r *Repo) DeleteGuest(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteGuestSQL, id)
	return affected(res, err, "delete guest "+id)
}

func (r *Repo) CreateDish(ctx context.Context, d domain.Dish) error {
	body, err := doc(d)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertDishSQL, d.ID, d.Name, body, d.CreatedAt.UTC())
	return classify(err, "insert dish")
}

func (r *Repo) GetDish(ctx context.Context, id string) (domain.Dish, error) {
	d, err := getDoc[domain.Dish](ctx, r.db, getDishSQL, id)
	return d, classify(err, "dish "+id)
}

func (r *Repo) ListDishes(ctx context.Context) ([]domain.Dish, error) {
	ds, err := listDocs[domain.Dish](ctx, r.db, listDishesSQL)
	return ds, classify(err, "list dishes")
}

func (r *Repo) SaveDish(ctx context.Context, d domain.Dish) error {
	body, err := doc(d)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, updateDishSQL, d.Name, body, d.ID)
	return affected(res, err, "update dish "+d.ID)
}

func (r *Repo) DeleteDish(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteDishSQL, id)
	return affected(res, err, "delete dish "+id)
}

func (r *Repo) CreateOrder(ctx context.Context, o domain.Order) error {
	d, err := doc(o)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertOrderSQL, o.ID, o.CompanyName, o.DishName, o.OrderDate.UTC(), d)
	return classify(err, "insert order")
}

func (r *Repo) ListOrders(ctx context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	from, to := valTime(f.From), valTime(f.To)
	orders, err := listDocs[domain.Order](ctx, r.db, listOrdersSQL,
		from, from, to, to, f.Company, f.Company, f.Dish, f.Dish)
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
