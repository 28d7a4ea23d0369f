// Package store mirrors committed sales into Postgres. The remote
// document store stays the source of truth; the archive is a durable
// reporting sink fed by the sale-committed event stream, which is
// what the report and CSV surfaces query.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pos-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Archive struct {
	db *sqlx.DB
}

// ArchivedSale is one row of the sales archive.
type ArchivedSale struct {
	ID            string          `db:"id" json:"id"`
	SoldAt        time.Time       `db:"sold_at" json:"sold_at"`
	Total         float64         `db:"total" json:"total"`
	PaymentMethod string          `db:"payment_method" json:"payment_method"`
	Lines         json.RawMessage `db:"lines" json:"lines"`
}

// NewArchive connects to the archive database.
func NewArchive(databaseURL string) (*Archive, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to archive database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping archive database: %w", err)
	}

	return &Archive{db: db}, nil
}

func (a *Archive) Close() error {
	return a.db.Close()
}

// InsertSale records one committed sale. The insert is idempotent on
// the sale id, so replayed events are harmless.
func (a *Archive) InsertSale(ctx context.Context, sale models.Sale) error {
	lines, err := json.Marshal(sale.Lines)
	if err != nil {
		return fmt.Errorf("marshal sale lines: %w", err)
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO sales_archive (id, sold_at, total, payment_method, lines)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		sale.ID, sale.Timestamp, sale.Total, sale.PaymentMethod, lines)
	if err != nil {
		return fmt.Errorf("insert sale %s: %w", sale.ID, err)
	}
	return nil
}

// SalesBetween returns archived sales inside [from, to] in commit
// order, for the report surfaces.
func (a *Archive) SalesBetween(ctx context.Context, from, to time.Time) ([]ArchivedSale, error) {
	var sales []ArchivedSale
	err := a.db.SelectContext(ctx, &sales, `
		SELECT id, sold_at, total, payment_method, lines
		FROM sales_archive
		WHERE sold_at >= $1 AND sold_at <= $2
		ORDER BY sold_at`,
		from, to)
	return sales, err
}
