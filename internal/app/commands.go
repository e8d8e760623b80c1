package app

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"hotelops/internal/domain"
	"hotelops/internal/tariff"
)

// Option overrides the clock or id source of a service; tests use both.
type Option func(*runtime)

type runtime struct {
	now   func() time.Time
	newID func() string
}

func WithClock(now func() time.Time) Option { return func(r *runtime) { r.now = now } }

func WithIDs(gen func() string) Option { return func(r *runtime) { r.newID = gen } }

func newRuntime(opts []Option) runtime {
	r := runtime{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, o := range opts {
		o(&r)
	}
	return r
}

// CommandService owns every write that is not part of a stay.
type CommandService struct {
	store domain.Store
	cache domain.Cache
	rt    runtime
}

func NewCommandService(s domain.Store, c domain.Cache, opts ...Option) *CommandService {
	return &CommandService{store: s, cache: c, rt: newRuntime(opts)}
}

/********** rooms **********/

type RoomInput struct {
	Number string          `json:"number"`
	Type   domain.RoomType `json:"type"`
	Tariff *tariff.Tariff  `json:"tariff"`
}

func (s *CommandService) CreateRoom(ctx context.Context, in RoomInput) (domain.Room, error) {
	number := strings.TrimSpace(in.Number)
	if number == "" {
		return domain.Room{}, errors.Wrap(domain.ErrValidation, "room number is required")
	}
	if !in.Type.Valid() {
		return domain.Room{}, errors.Wrapf(domain.ErrValidation, "room type %q", in.Type)
	}
	t := tariff.Default()
	if in.Tariff != nil {
		t = *in.Tariff
	}
	if err := t.Validate(); err != nil {
		return domain.Room{}, err
	}

	now := s.rt.now()
	r := domain.Room{
		ID:        s.rt.newID(),
		Number:    number,
		Type:      in.Type,
		Status:    domain.RoomEmpty,
		Tariff:    t,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateRoom(ctx, r); err != nil {
		return domain.Room{}, errors.Wrapf(err, "create room %s", number)
	}
	invalidateRoom(ctx, s.cache, r.ID)
	log.Info().Str("room_id", r.ID).Str("number", r.Number).Msg("room_created")
	return r, nil
}

// UpdateRoom edits number, type and tariff. The occupancy and its tariff
// snapshot are never touched, so a price change only affects future stays.
func (s *CommandService) UpdateRoom(ctx context.Context, id string, p domain.RoomPatch) (domain.Room, error) {
	if p.Number != nil {
		n := strings.TrimSpace(*p.Number)
		if n == "" {
			return domain.Room{}, errors.Wrap(domain.ErrValidation, "room number is required")
		}
		p.Number = &n
		if err := s.ensureNumberFree(ctx, id, n); err != nil {
			return domain.Room{}, err
		}
	}
	if p.Type != nil && !p.Type.Valid() {
		return domain.Room{}, errors.Wrapf(domain.ErrValidation, "room type %q", *p.Type)
	}
	if p.Tariff != nil {
		if err := p.Tariff.Validate(); err != nil {
			return domain.Room{}, err
		}
	}

	now := s.rt.now()
	r, err := s.store.MutateRoom(ctx, id, func(r *domain.Room) (domain.RoomChange, error) {
		if p.Number != nil {
			r.Number = *p.Number
		}
		if p.Type != nil {
			r.Type = *p.Type
		}
		if p.Tariff != nil {
			r.Tariff = *p.Tariff
		}
		r.UpdatedAt = now
		return domain.RoomChange{}, nil
	})
	if err != nil {
		return domain.Room{}, errors.Wrapf(err, "update room %s", id)
	}
	invalidateRoom(ctx, s.cache, id)
	return r, nil
}

func (s *CommandService) ensureNumberFree(ctx context.Context, id, number string) error {
	rooms, err := s.store.ListRooms(ctx)
	if err != nil {
		return err
	}
	for _, r := range rooms {
		if r.Number == number && r.ID != id {
			return errors.Wrapf(domain.ErrConflict, "room number %s is taken", number)
		}
	}
	return nil
}

func (s *CommandService) DeleteRoom(ctx context.Context, id string) error {
	if err := s.store.DeleteRoom(ctx, id); err != nil {
		return errors.Wrapf(err, "delete room %s", id)
	}
	invalidateRoom(ctx, s.cache, id)
	log.Info().Str("room_id", id).Msg("room_deleted")
	return nil
}

/********** guests **********/

type GuestInput struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email"`
	IDCard string `json:"id_card"`
}

// GuestPatch: nil fields are left as they are.
type GuestPatch struct {
	Name   *string `json:"name"`
	Phone  *string `json:"phone"`
	Email  *string `json:"email"`
	IDCard *string `json:"id_card"`
}

func (s *CommandService) CreateGuest(ctx context.Context, in GuestInput) (domain.GuestProfile, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.GuestProfile{}, errors.Wrap(domain.ErrValidation, "guest name is required")
	}
	g := domain.GuestProfile{
		ID:        s.rt.newID(),
		Name:      name,
		Phone:     strings.TrimSpace(in.Phone),
		Email:     strings.TrimSpace(in.Email),
		IDCard:    strings.TrimSpace(in.IDCard),
		CreatedAt: s.rt.now(),
	}
	if err := s.store.CreateGuest(ctx, g); err != nil {
		return domain.GuestProfile{}, errors.Wrap(err, "create guest")
	}
	return g, nil
}

func (s *CommandService) UpdateGuest(ctx context.Context, id string, p GuestPatch) (domain.GuestProfile, error) {
	g, err := s.store.GetGuest(ctx, id)
	if err != nil {
		return domain.GuestProfile{}, errors.Wrapf(err, "guest %s", id)
	}
	if p.Name != nil {
		n := strings.TrimSpace(*p.Name)
		if n == "" {
			return domain.GuestProfile{}, errors.Wrap(domain.ErrValidation, "guest name is required")
		}
		g.Name = n
	}
	if p.Phone != nil {
		g.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Email != nil {
		g.Email = strings.TrimSpace(*p.Email)
	}
	if p.IDCard != nil {
		g.IDCard = strings.TrimSpace(*p.IDCard)
	}
	if err := s.store.SaveGuest(ctx, g); err != nil {
		return domain.GuestProfile{}, errors.Wrapf(err, "save guest %s", id)
	}
	return g, nil
}

func (s *CommandService) DeleteGuest(ctx context.Context, id string) error {
	return errors.Wrapf(s.store.DeleteGuest(ctx, id), "delete guest %s", id)
}

/********** menu **********/

type DishInput struct {
	Name        string            `json:"name"`
	Price       int64             `json:"price"`
	Status      domain.DishStatus `json:"status"`
	Description string            `json:"description"`
}

func (in DishInput) normalize() (DishInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return in, errors.Wrap(domain.ErrValidation, "dish name is required")
	}
	if in.Price < 0 {
		return in, errors.Wrapf(domain.ErrValidation, "dish price %d", in.Price)
	}
	switch in.Status {
	case "":
		in.Status = domain.DishAvailable
	case domain.DishAvailable, domain.DishUnavailable:
	default:
		return in, errors.Wrapf(domain.ErrValidation, "dish status %q", in.Status)
	}
	return in, nil
}

func (s *CommandService) CreateDish(ctx context.Context, in DishInput) (domain.Dish, error) {
	in, err := in.normalize()
	if err != nil {
		return domain.Dish{}, err
	}
	d := domain.Dish{
		ID:          s.rt.newID(),
		Name:        in.Name,
		Price:       in.Price,
		Status:      in.Status,
		Description: in.Description,
		CreatedAt:   s.rt.now(),
	}
	if err := s.store.CreateDish(ctx, d); err != nil {
		return domain.Dish{}, errors.Wrap(err, "create dish")
	}
	_ = s.cache.Del(ctx, keyDishes)
	return d, nil
}

// UpdateDish replaces the dish attributes. Orders already placed keep the
// name and price they were taken at.
func (s *CommandService) UpdateDish(ctx context.Context, id string, in DishInput) (domain.Dish, error) {
	in, err := in.normalize()
	if err != nil {
		return domain.Dish{}, err
	}
	d, err := s.store.GetDish(ctx, id)
	if err != nil {
		return domain.Dish{}, errors.Wrapf(err, "dish %s", id)
	}
	d.Name, d.Price, d.Status, d.Description = in.Name, in.Price, in.Status, in.Description
	if err := s.store.SaveDish(ctx, d); err != nil {
		return domain.Dish{}, errors.Wrapf(err, "save dish %s", id)
	}
	_ = s.cache.Del(ctx, keyDishes)
	return d, nil
}

func (s *CommandService) DeleteDish(ctx context.Context, id string) error {
	if err := s.store.DeleteDish(ctx, id); err != nil {
		return errors.Wrapf(err, "delete dish %s", id)
	}
	_ = s.cache.Del(ctx, keyDishes)
	return nil
}

type OrderInput struct {
	CompanyName string `json:"company_name"`
	DishID      string `json:"dish_id"`
	Quantity    int    `json:"quantity"`
}

func (s *CommandService) CreateOrder(ctx context.Context, in OrderInput) (domain.Order, error) {
	company := strings.TrimSpace(in.CompanyName)
	if company == "" {
		return domain.Order{}, errors.Wrap(domain.ErrValidation, "company name is required")
	}
	if in.Quantity <= 0 {
		return domain.Order{}, errors.Wrapf(domain.ErrValidation, "quantity %d", in.Quantity)
	}
	d, err := s.store.GetDish(ctx, in.DishID)
	if err != nil {
		return domain.Order{}, errors.Wrapf(err, "dish %s", in.DishID)
	}
	if d.Status != domain.DishAvailable {
		return domain.Order{}, errors.Wrapf(domain.ErrConflict, "dish %s is %s", d.Name, d.Status)
	}

	o := domain.Order{
		ID:          s.rt.newID(),
		CompanyName: company,
		DishID:      d.ID,
		DishName:    d.Name,
		Quantity:    in.Quantity,
		UnitPrice:   d.Price,
		TotalPrice:  d.Price * int64(in.Quantity),
		OrderDate:   s.rt.now(),
		Status:      "pending",
	}
	if err := s.store.CreateOrder(ctx, o); err != nil {
		return domain.Order{}, errors.Wrap(err, "create order")
	}
	log.Info().Str("order_id", o.ID).Str("company", o.CompanyName).Str("dish", o.DishName).
		Int("qty", o.Quantity).Int64("total", o.TotalPrice).Msg("order_created")
	return o, nil
}

/********** invoices **********/

func (s *CommandService) SetInvoiceStatus(ctx context.Context, id string, status domain.InvoiceStatus) (domain.Invoice, error) {
	if !status.Valid() {
		return domain.Invoice{}, errors.Wrapf(domain.ErrValidation, "invoice status %q", status)
	}
	inv, err := s.store.SetInvoiceStatus(ctx, id, status, s.rt.now())
	if err != nil {
		return domain.Invoice{}, errors.Wrapf(err, "invoice %s", id)
	}
	log.Info().Str("invoice_id", id).Str("status", string(status)).Msg("invoice_status_changed")
	return inv, nil
}
