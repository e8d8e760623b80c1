// Package mysql stores every aggregate as a JSON document next to the
// columns needed to index it.
package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"math"
	"time"

	"github.com/cockroachdb/errors"
	mysqldrv "github.com/go-sql-driver/mysql"

	"hotelops/internal/domain"
)

const errDuplicateEntry = 1062

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// Open connects and pings. Times are always parsed as UTC, and updates report
// matched rather than changed rows so a no-op save is not mistaken for a
// missing row.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysqldrv.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse mysql dsn")
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, errors.Wrap(err, "open mysql")
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping mysql")
	}
	return db, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

func isDuplicate(err error) bool {
	var me *mysqldrv.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}

// classify turns driver errors the domain cares about into domain errors.
func classify(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return errors.Wrap(domain.ErrNotFound, what)
	case isDuplicate(err):
		return errors.Wrapf(domain.ErrConflict, "%s: %v", what, err)
	}
	return errors.Wrap(err, what)
}

func getDoc[T any](ctx context.Context, q querier, query string, args ...any) (T, error) {
	var (
		out T
		raw []byte
	)
	if err := q.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, errors.Wrap(err, "decode document")
	}
	return out, nil
}

func listDocs[T any](ctx context.Context, q querier, query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, errors.Wrap(err, "decode document")
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func doc(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrap(err, "encode document")
	}
	return string(b), nil
}

func (r *Repo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit")
}

// rowCap turns a list limit into a LIMIT argument; zero means every row.
func rowCap(n int) int64 {
	if n <= 0 {
		return math.MaxInt64
	}
	return int64(n)
}

func limit[T any](xs []T, n int) []T {
	if n > 0 && len(xs) > n {
		return xs[:n]
	}
	return xs
}

/********** rooms **********/

func (r *Repo) CreateRoom(ctx context.Context, room domain.Room) error {
	d, err := doc(room)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertRoomSQL,
		room.ID, room.Number, string(room.Status), roomDocVersion, d,
		room.CreatedAt.UTC(), room.UpdatedAt.UTC())
	return classify(err, "insert room "+room.Number)
}

func (r *Repo) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	room, err := getDoc[domain.Room](ctx, r.db, getRoomSQL, id, roomDocVersion)
	return room, classify(err, "room "+id)
}

func (r *Repo) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rooms, err := listDocs[domain.Room](ctx, r.db, listRoomsSQL, roomDocVersion)
	return rooms, classify(err, "list rooms")
}

// MutateRoom holds a row lock on the room for the duration of fn, and writes
// the emitted bill and invoice in the same transaction.
func (r *Repo) MutateRoom(ctx context.Context, id string, fn func(*domain.Room) (domain.RoomChange, error)) (domain.Room, error) {
	var out domain.Room
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		room, err := getDoc[domain.Room](ctx, tx, lockRoomSQL, id, roomDocVersion)
		if err != nil {
			return classify(err, "lock room "+id)
		}
		ch, err := fn(&room)
		if err != nil {
			return err
		}
		d, err := doc(room)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, updateRoomSQL, room.Number, string(room.Status), d, room.UpdatedAt.UTC(), id); err != nil {
			return classify(err, "update room "+id)
		}
		if ch.Bill != nil {
			if err := insertBill(ctx, tx, *ch.Bill); err != nil {
				return err
			}
		}
		if ch.Invoice != nil {
			if err := insertInvoice(ctx, tx, *ch.Invoice); err != nil {
				return err
			}
		}
		out = room
		return nil
	})
	if err != nil {
		return domain.Room{}, err
	}
	return out, nil
}

func (r *Repo) DeleteRoom(ctx context.Context, id string) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		room, err := getDoc[domain.Room](ctx, tx, lockRoomSQL, id, roomDocVersion)
		if err != nil {
			return classify(err, "lock room "+id)
		}
		if room.IsOccupied() {
			return errors.Wrapf(domain.ErrConflict, "room %s is occupied", room.Number)
		}
		_, err = tx.ExecContext(ctx, deleteRoomSQL, id)
		return classify(err, "delete room "+id)
	})
}

func (r *Repo) ListRoomDocuments(ctx context.Context) ([]domain.RoomDocument, error) {
	rows, err := r.db.QueryContext(ctx, listRoomDocumentsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list room documents")
	}
	defer rows.Close()

	var out []domain.RoomDocument
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, errors.Wrap(err, "scan room document")
		}
		m := map[string]any{}
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, errors.Wrapf(err, "decode room document %s", id)
		}
		out = append(out, domain.RoomDocument{ID: id, Raw: m})
	}
	return out, errors.Wrap(rows.Err(), "list room documents")
}

func (r *Repo) ReplaceRoom(ctx context.Context, room domain.Room) error {
	d, err := doc(room)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, replaceRoomSQL,
		room.ID, room.Number, string(room.Status), roomDocVersion, d,
		room.CreatedAt.UTC(), room.UpdatedAt.UTC())
	return classify(err, "replace room "+room.ID)
}

// ImportRoomDocument stores a room document from the previous release
// verbatim, to be normalized by the migration.
func (r *Repo) ImportRoomDocument(ctx context.Context, id, number string, raw map[string]any) error {
	d, err := doc(raw)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, importRoomSQL, id, number, d)
	return classify(err, "import room "+id)
}
