package analytics

import (
	"context"

	"ms-invoicing/internal/models"
	"ms-invoicing/internal/store"

	"github.com/uptrace/bun"
)

// DB runs the aggregate queries the collections do not offer.
type DB struct {
	bun   bun.IDB
	rules *store.Rules
}

func NewDB(db bun.IDB, rules *store.Rules) *DB {
	return &DB{bun: db, rules: rules}
}

// StatusTotals is the revenue and invoice count for one payment status.
type StatusTotals struct {
	Status   models.PaymentStatus `bun:"payment_status"`
	Revenue  models.Amount        `bun:"revenue"`
	Invoices int                  `bun:"invoices"`
}

// RevenueByStatus sums registration totals per payment status.
func (db *DB) RevenueByStatus(ctx context.Context) ([]StatusTotals, error) {
	if err := db.rules.Check(store.CollectionRegistrations, store.OpRead); err != nil {
		return nil, err
	}

	var totals []StatusTotals
	err := db.bun.NewSelect().
		TableExpr(store.CollectionRegistrations).
		ColumnExpr("payment_status").
		ColumnExpr("COALESCE(SUM(total_amount), 0) AS revenue").
		ColumnExpr("COUNT(*) AS invoices").
		GroupExpr("payment_status").
		OrderExpr("payment_status").
		Scan(ctx, &totals)

	return totals, err
}
