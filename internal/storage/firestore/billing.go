package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	"hotelops/internal/domain"
)

func (s *Store) ListBills(ctx context.Context, f domain.BillFilter) ([]domain.BillRecord, error) {
	q := s.c.Collection(colBills).OrderBy(fieldTS, firestore.Desc)
	if f.From != nil {
		q = q.Where(fieldTS, ">=", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where(fieldTS, "<=", f.To.UTC())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	bills, err := collect[domain.BillRecord](q.Documents(ctx))
	return bills, classify(err, "list bills")
}

func (s *Store) ListInvoices(ctx context.Context, n int) ([]domain.Invoice, error) {
	q := s.c.Collection(colInvoices).OrderBy(fieldTS, firestore.Desc)
	if n > 0 {
		q = q.Limit(n)
	}
	invs, err := collect[domain.Invoice](q.Documents(ctx))
	return invs, classify(err, "list invoices")
}

func (s *Store) SetInvoiceStatus(ctx context.Context, id string, status domain.InvoiceStatus, at time.Time) (domain.Invoice, error) {
	ref := s.c.Collection(colInvoices).Doc(id)
	var out domain.Invoice
	err := s.c.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		inv, err := decodeSnap[domain.Invoice](snap)
		if err != nil {
			return err
		}
		inv.ApplyStatus(status, at.UTC())
		data, err := toData(inv, ts(inv.CreatedAt))
		if err != nil {
			return err
		}
		out = inv
		return tx.Set(ref, data)
	})
	if err != nil {
		return domain.Invoice{}, classify(err, "invoice "+id)
	}
	return out, nil
}
