// Package firestore keeps the hotel documents in Cloud Firestore, the store
// the previous release wrote to. Documents are the JSON form of the domain
// types plus a few typed fields used for querying.
package firestore

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/cockroachdb/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"hotelops/internal/domain"
)

const (
	colRooms    = "rooms"
	colGuests   = "guests"
	colDishes   = "dishes"
	colOrders   = "orders"
	colBills    = "bills"
	colInvoices = "invoices"

	// fieldVersion marks current room documents; rooms without it were
	// written by the previous release.
	fieldVersion   = "doc_version"
	roomDocVersion = 2

	// fieldTS is a native timestamp copy of the document's primary time,
	// kept for range queries and ordering.
	fieldTS = "_ts"
)

type Store struct{ c *firestore.Client }

// New dials Firestore. An empty credentials path falls back to application
// default credentials, or to the emulator when FIRESTORE_EMULATOR_HOST is set.
func New(ctx context.Context, project, credentialsFile string) (*Store, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := firestore.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "firestore client")
	}
	return &Store{c: c}, nil
}

func NewWithClient(c *firestore.Client) *Store { return &Store{c: c} }

func (s *Store) Close() error { return s.c.Close() }

// toData converts v to the map Firestore stores, adding the extra fields.
func toData(v any, extra map[string]any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode document")
	}
	m := map[string]any{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, errors.Wrap(err, "encode document")
	}
	for k, x := range extra {
		m[k] = x
	}
	return m, nil
}

// fromData is the reverse of toData; unknown fields are ignored.
func fromData[T any](m map[string]any) (T, error) {
	var out T
	b, err := json.Marshal(m)
	if err != nil {
		return out, errors.Wrap(err, "decode document")
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return out, errors.Wrap(err, "decode document")
	}
	return out, nil
}

func decodeSnap[T any](snap *firestore.DocumentSnapshot) (T, error) {
	return fromData[T](snap.Data())
}

// classify maps gRPC status codes onto domain errors.
func classify(err error, what string) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return errors.Wrap(domain.ErrNotFound, what)
	case codes.AlreadyExists:
		return errors.Wrap(domain.ErrConflict, what)
	}
	return errors.Wrap(err, what)
}

func collect[T any](it *firestore.DocumentIterator) ([]T, error) {
	defer it.Stop()
	out := []T{}
	for {
		snap, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		v, err := decodeSnap[T](snap)
		if err != nil {
			return nil, errors.Wrapf(err, "document %s", snap.Ref.ID)
		}
		out = append(out, v)
	}
}

func limit[T any](xs []T, n int) []T {
	if n > 0 && len(xs) > n {
		return xs[:n]
	}
	return xs
}

func ts(t time.Time) map[string]any { return map[string]any{fieldTS: t.UTC()} }

/********** rooms **********/

func roomData(r domain.Room) (map[string]any, error) {
	return toData(r, map[string]any{fieldVersion: roomDocVersion})
}

func isCurrentRoom(snap *firestore.DocumentSnapshot) bool {
	v, err := snap.DataAt(fieldVersion)
	if err != nil {
		return false
	}
	n, ok := v.(int64)
	return ok && n == roomDocVersion
}

// numberTaken reads inside tx, so the check and the write commit together.
func (s *Store) numberTaken(tx *firestore.Transaction, number, exceptID string) (bool, error) {
	q := s.c.Collection(colRooms).Where("number", "==", number)
	snaps, err := tx.Documents(q).GetAll()
	if err != nil {
		return false, err
	}
	for _, snap := range snaps {
		if snap.Ref.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateRoom(ctx context.Context, r domain.Room) error {
	data, err := roomData(r)
	if err != nil {
		return err
	}
	ref := s.c.Collection(colRooms).Doc(r.ID)
	err = s.c.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		taken, err := s.numberTaken(tx, r.Number, "")
		if err != nil {
			return err
		}
		if taken {
			return errors.Wrapf(domain.ErrConflict, "room number %s", r.Number)
		}
		return tx.Create(ref, data)
	})
	return classify(err, "create room "+r.Number)
}

func (s *Store) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	snap, err := s.c.Collection(colRooms).Doc(id).Get(ctx)
	if err != nil {
		return domain.Room{}, classify(err, "room "+id)
	}
	if !isCurrentRoom(snap) {
		return domain.Room{}, errors.Wrapf(domain.ErrNotFound, "room %s", id)
	}
	return decodeSnap[domain.Room](snap)
}

func (s *Store) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := collect[domain.Room](s.c.Collection(colRooms).Where(fieldVersion, "==", roomDocVersion).Documents(ctx))
	if err != nil {
		return nil, classify(err, "list rooms")
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Number < rooms[j].Number })
	return rooms, nil
}

// MutateRoom runs fn inside a Firestore transaction. Firestore retries the
// transaction on contention, so fn may run more than once.
func (s *Store) MutateRoom(ctx context.Context, id string, fn func(*domain.Room) (domain.RoomChange, error)) (domain.Room, error) {
	ref := s.c.Collection(colRooms).Doc(id)
	var out domain.Room
	err := s.c.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if !isCurrentRoom(snap) {
			return errors.Wrapf(domain.ErrNotFound, "room %s", id)
		}
		room, err := decodeSnap[domain.Room](snap)
		if err != nil {
			return err
		}
		before := room.Number
		ch, err := fn(&room)
		if err != nil {
			return err
		}
		if room.Number != before {
			taken, err := s.numberTaken(tx, room.Number, id)
			if err != nil {
				return err
			}
			if taken {
				return errors.Wrapf(domain.ErrConflict, "room number %s", room.Number)
			}
		}

		data, err := roomData(room)
		if err != nil {
			return err
		}
		if err := tx.Set(ref, data); err != nil {
			return err
		}
		if ch.Bill != nil {
			bd, err := toData(*ch.Bill, ts(ch.Bill.CreatedAt))
			if err != nil {
				return err
			}
			if err := tx.Create(s.c.Collection(colBills).Doc(ch.Bill.ID), bd); err != nil {
				return err
			}
		}
		if ch.Invoice != nil {
			idata, err := toData(*ch.Invoice, ts(ch.Invoice.CreatedAt))
			if err != nil {
				return err
			}
			if err := tx.Create(s.c.Collection(colInvoices).Doc(ch.Invoice.ID), idata); err != nil {
				return err
			}
		}
		out = room
		return nil
	})
	if err != nil {
		return domain.Room{}, classify(err, "mutate room "+id)
	}
	return out, nil
}

func (s *Store) DeleteRoom(ctx context.Context, id string) error {
	ref := s.c.Collection(colRooms).Doc(id)
	err := s.c.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		room, err := decodeSnap[domain.Room](snap)
		if err != nil {
			return err
		}
		if room.IsOccupied() {
			return errors.Wrapf(domain.ErrConflict, "room %s is occupied", room.Number)
		}
		return tx.Delete(ref)
	})
	return classify(err, "delete room "+id)
}

func (s *Store) ListRoomDocuments(ctx context.Context) ([]domain.RoomDocument, error) {
	snaps, err := s.c.Collection(colRooms).Documents(ctx).GetAll()
	if err != nil {
		return nil, classify(err, "list room documents")
	}
	out := make([]domain.RoomDocument, 0, len(snaps))
	for _, snap := range snaps {
		raw := snap.Data()
		delete(raw, fieldVersion)
		out = append(out, domain.RoomDocument{ID: snap.Ref.ID, Raw: raw})
	}
	return out, nil
}

func (s *Store) ReplaceRoom(ctx context.Context, r domain.Room) error {
	data, err := roomData(r)
	if err != nil {
		return err
	}
	_, err = s.c.Collection(colRooms).Doc(r.ID).Set(ctx, data)
	return classify(err, "replace room "+r.ID)
}

// ImportRoomDocument writes raw as-is, without a version marker.
func (s *Store) ImportRoomDocument(ctx context.Context, id string, raw map[string]any) error {
	_, err := s.c.Collection(colRooms).Doc(id).Set(ctx, raw)
	return classify(err, "import room "+id)
}
