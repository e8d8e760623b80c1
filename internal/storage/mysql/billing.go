package mysql

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"

	"hotelops/internal/domain"
)

func insertBill(ctx context.Context, tx *sql.Tx, b domain.BillRecord) error {
	d, err := doc(b)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, insertBillSQL, b.ID, b.RoomID, d, b.CreatedAt.UTC())
	return classify(err, "insert bill")
}

func insertInvoice(ctx context.Context, tx *sql.Tx, inv domain.Invoice) error {
	d, err := doc(inv)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, insertInvoiceSQL, inv.ID, inv.BillID, string(inv.Status), d, inv.CreatedAt.UTC())
	return classify(err, "insert invoice")
}

func (r *Repo) ListBills(ctx context.Context, f domain.BillFilter) ([]domain.BillRecord, error) {
	from, to := valTime(f.From), valTime(f.To)
	bills, err := listDocs[domain.BillRecord](ctx, r.db, listBillsSQL, from, from, to, to, rowCap(f.Limit))
	if err != nil {
		return nil, classify(err, "list bills")
	}
	return bills, nil
}

func (r *Repo) ListInvoices(ctx context.Context, n int) ([]domain.Invoice, error) {
	invs, err := listDocs[domain.Invoice](ctx, r.db, listInvoicesSQL, rowCap(n))
	if err != nil {
		return nil, classify(err, "list invoices")
	}
	return invs, nil
}

func (r *Repo) SetInvoiceStatus(ctx context.Context, id string, status domain.InvoiceStatus, at time.Time) (domain.Invoice, error) {
	var out domain.Invoice
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		inv, err := getDoc[domain.Invoice](ctx, tx, lockInvoiceSQL, id)
		if err != nil {
			return classify(err, "lock invoice "+id)
		}
		inv.ApplyStatus(status, at.UTC())
		d, err := doc(inv)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, updateInvoiceSQL, string(inv.Status), d, id); err != nil {
			return classify(err, "update invoice "+id)
		}
		out = inv
		return nil
	})
	return out, err
}

// affected reports ErrNotFound when a write matched no row.
func affected(res sql.Result, err error, what string) error {
	if err != nil {
		return classify(err, what)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, what)
	}
	if n == 0 {
		return errors.Wrap(domain.ErrNotFound, what)
	}
	return nil
}
