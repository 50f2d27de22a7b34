package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avelis/receiptlens/constants"
	"github.com/avelis/receiptlens/internal/common"
	"github.com/avelis/receiptlens/internal/entity"
)

// timeLayout keeps a fixed-width fraction so stored timestamps sort
// lexicographically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const dateLayout = "2006-01-02"

const recordColumns = "id, raw_text, vendor, tx_date, amount, category, conf_vendor, conf_date, conf_amount, conf_category, source, created_at"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS records (
		id            TEXT PRIMARY KEY,
		raw_text      TEXT NOT NULL,
		vendor        TEXT,
		tx_date       TEXT,
		amount        DOUBLE PRECISION,
		category      TEXT NOT NULL,
		conf_vendor   REAL NOT NULL,
		conf_date     REAL NOT NULL,
		conf_amount   REAL NOT NULL,
		conf_category REAL NOT NULL,
		source        TEXT NOT NULL,
		created_at    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS records_created_at_idx ON records (created_at)`,
	`CREATE INDEX IF NOT EXISTS records_category_idx ON records (category)`,
}

// SQLStore implements RecordStore on database/sql. The same statements
// serve both dialects; rebind rewrites placeholders for postgres.
type SQLStore struct {
	db      *sql.DB
	pool    *pgxpool.Pool
	dialect Dialect
	logger  *slog.Logger
}

func (s *SQLStore) init(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $1..$n for the postgres dialect.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *SQLStore) Create(ctx context.Context, rec *entity.Record) error {
	query := s.rebind("INSERT INTO records (" + recordColumns + ") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if _, err := s.db.ExecContext(ctx, query, recordArgs(rec)...); err != nil {
		s.logger.Error("failed to insert record", "record_id", rec.ID, "error", err)
		return common.WrapError(err, "DB_INSERT", "failed to insert record")
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id uuid.UUID) (*entity.Record, error) {
	query := s.rebind("SELECT " + recordColumns + " FROM records WHERE id = ?")
	var row recordRow
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(row.fields()...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		s.logger.Error("failed to get record", "record_id", id, "error", err)
		return nil, common.WrapError(err, "DB_SELECT", "failed to get record")
	}
	return row.toRecord()
}

func (s *SQLStore) Update(ctx context.Context, rec *entity.Record) error {
	query := s.rebind("UPDATE records SET raw_text = ?, vendor = ?, tx_date = ?, amount = ?, category = ?, conf_vendor = ?, conf_date = ?, conf_amount = ?, conf_category = ?, source = ?, created_at = ? WHERE id = ?")
	args := append(recordArgs(rec)[1:], rec.ID.String())
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to update record", "record_id", rec.ID, "error", err)
		return common.WrapError(err, "DB_UPDATE", "failed to update record")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(rec.ID)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id uuid.UUID) error {
	query := s.rebind("DELETE FROM records WHERE id = ?")
	res, err := s.db.ExecContext(ctx, query, id.String())
	if err != nil {
		s.logger.Error("failed to delete record", "record_id", id, "error", err)
		return common.WrapError(err, "DB_DELETE", "failed to delete record")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(id)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context, filter ListFilter) ([]*entity.Record, error) {
	query := "SELECT " + recordColumns + " FROM records"
	var conds []string
	var args []any
	if filter.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, string(filter.Category))
	}
	if filter.FromDate != nil {
		conds = append(conds, "tx_date >= ?")
		args = append(args, filter.FromDate.Format(dateLayout))
	}
	if filter.ToDate != nil {
		conds = append(conds, "tx_date <= ?")
		args = append(args, filter.ToDate.Format(dateLayout))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		s.logger.Error("failed to list records", "error", err)
		return nil, common.WrapError(err, "DB_SELECT", "failed to list records")
	}
	defer rows.Close()

	out := make([]*entity.Record, 0)
	for rows.Next() {
		var row recordRow
		if err := rows.Scan(row.fields()...); err != nil {
			s.logger.Error("failed to scan record", "error", err)
			return nil, common.WrapError(err, "DB_SCAN", "failed to scan record")
		}
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		s.logger.Error("failed to list records", "error", err)
		return nil, common.WrapError(err, "DB_SELECT", "failed to list records")
	}
	return out, nil
}

func (s *SQLStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM records")
	if err != nil {
		s.logger.Error("failed to clear records", "error", err)
		return 0, common.WrapError(err, "DB_DELETE", "failed to clear records")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, common.WrapError(err, "DB_DELETE", "failed to count cleared records")
	}
	return n, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	err := s.db.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return err
}

// recordRow carries one scanned row before conversion to an entity.
type recordRow struct {
	id           string
	rawText      string
	vendor       sql.NullString
	txDate       sql.NullString
	amount       sql.NullFloat64
	category     string
	confVendor   float64
	confDate     float64
	confAmount   float64
	confCategory float64
	source       string
	createdAt    string
}

func (row *recordRow) fields() []any {
	return []any{
		&row.id, &row.rawText, &row.vendor, &row.txDate, &row.amount, &row.category,
		&row.confVendor, &row.confDate, &row.confAmount, &row.confCategory,
		&row.source, &row.createdAt,
	}
}

func (row *recordRow) toRecord() (*entity.Record, error) {
	id, err := uuid.Parse(row.id)
	if err != nil {
		return nil, common.WrapError(err, "DB_SCAN", "invalid record id "+row.id)
	}
	createdAt, err := time.Parse(timeLayout, row.createdAt)
	if err != nil {
		return nil, common.WrapError(err, "DB_SCAN", "invalid created_at for record "+row.id)
	}
	rec := &entity.Record{
		ID:       id,
		RawText:  row.rawText,
		Category: constants.Category(row.category),
		Confidence: entity.FieldConfidence{
			Vendor:   float32(row.confVendor),
			Date:     float32(row.confDate),
			Amount:   float32(row.confAmount),
			Category: float32(row.confCategory),
		},
		Source:    constants.LabelSource(row.source),
		CreatedAt: createdAt.UTC(),
	}
	if row.vendor.Valid {
		v := row.vendor.String
		rec.Vendor = &v
	}
	if row.txDate.Valid {
		d, err := time.Parse(dateLayout, row.txDate.String)
		if err != nil {
			return nil, common.WrapError(err, "DB_SCAN", "invalid tx_date for record "+row.id)
		}
		rec.TxDate = &d
	}
	if row.amount.Valid {
		a := row.amount.Float64
		rec.Amount = &a
	}
	return rec, nil
}

func recordArgs(rec *entity.Record) []any {
	var vendor, txDate sql.NullString
	var amount sql.NullFloat64
	if rec.Vendor != nil {
		vendor = sql.NullString{String: *rec.Vendor, Valid: true}
	}
	if rec.TxDate != nil {
		txDate = sql.NullString{String: rec.TxDate.Format(dateLayout), Valid: true}
	}
	if rec.Amount != nil {
		amount = sql.NullFloat64{Float64: *rec.Amount, Valid: true}
	}
	return []any{
		rec.ID.String(), rec.RawText, vendor, txDate, amount, string(rec.Category),
		float64(rec.Confidence.Vendor), float64(rec.Confidence.Date),
		float64(rec.Confidence.Amount), float64(rec.Confidence.Category),
		string(rec.Source), rec.CreatedAt.UTC().Format(timeLayout),
	}
}
