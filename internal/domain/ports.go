package domain

import (
	"context"
	"time"
)

// RoomChange is what a room mutation emits besides the new room state.
type RoomChange struct {
	Bill    *BillRecord
	Invoice *Invoice
}

type RoomRepository interface {
	// CreateRoom fails with ErrConflict when the room number is taken.
	CreateRoom(ctx context.Context, r Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)

	// MutateRoom loads the room, applies fn and persists the new state together
	// with any emitted bill/invoice atomically. Calls for the same room are
	// serialized by the store; fn must not retain the pointer.
	MutateRoom(ctx context.Context, id string, fn func(*Room) (RoomChange, error)) (Room, error)

	// DeleteRoom refuses occupied rooms with ErrConflict.
	DeleteRoom(ctx context.Context, id string) error
}

type GuestRepository interface {
	CreateGuest(ctx context.Context, g GuestProfile) error
	GetGuest(ctx context.Context, id string) (GuestProfile, error)
	ListGuests(ctx context.Context) ([]GuestProfile, error)
	SaveGuest(ctx context.Context, g GuestProfile) error
	DeleteGuest(ctx context.Context, id string) error
}

type MenuRepository interface {
	CreateDish(ctx context.Context, d Dish) error
	GetDish(ctx context.Context, id string) (Dish, error)
	ListDishes(ctx context.Context) ([]Dish, error)
	SaveDish(ctx context.Context, d Dish) error
	DeleteDish(ctx context.Context, id string) error

	CreateOrder(ctx context.Context, o Order) error
	// ListOrders returns matching orders, newest first. A zero Limit means all.
	ListOrders(ctx context.Context, f OrderFilter) ([]Order, error)
}

type BillingRepository interface {
	// ListBills returns bill records newest first. A zero Limit means all.
	ListBills(ctx context.Context, f BillFilter) ([]BillRecord, error)
	ListInvoices(ctx context.Context, limit int) ([]Invoice, error)
	// SetInvoiceStatus applies Invoice.ApplyStatus to the stored invoice.
	SetInvoiceStatus(ctx context.Context, id string, status InvoiceStatus, at time.Time) (Invoice, error)
}

// RoomDocument is a stored room as raw key/values, used to normalize records
// written by older releases.
type RoomDocument struct {
	ID  string
	Raw map[string]any
}

type LegacyRoomStore interface {
	ListRoomDocuments(ctx context.Context) ([]RoomDocument, error)
	ReplaceRoom(ctx context.Context, r Room) error
}

// Store is everything a storage backend provides.
type Store interface {
	RoomRepository
	GuestRepository
	MenuRepository
	BillingRepository
	LegacyRoomStore
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
