package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/storage"
)

// TradeJournal implements storage.TradeJournal using PostgreSQL.
// The full record is kept as JSONB next to a few indexed columns.
type TradeJournal struct {
	pool *Pool
}

// NewTradeJournal creates a new TradeJournal.
func NewTradeJournal(pool *Pool) *TradeJournal {
	return &TradeJournal{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeJournal = (*TradeJournal)(nil)

// Append upserts rec under address. A later write for the same address wins.
func (j *TradeJournal) Append(ctx context.Context, address string, rec *domain.TradeRecord) error {
	if address == "" || rec == nil {
		return storage.ErrInvalidInput
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode trade record: %w", err)
	}

	query := `
		INSERT INTO trade_journal (address, trade_id, mode, opened_at, record, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (address) DO UPDATE SET
			trade_id   = EXCLUDED.trade_id,
			mode       = EXCLUDED.mode,
			opened_at  = EXCLUDED.opened_at,
			record     = EXCLUDED.record,
			updated_at = now()
	`

	_, err = j.pool.Exec(ctx, query, address, rec.TradeID, rec.Mode, rec.OpenedAt, data)
	if err != nil {
		return fmt.Errorf("upsert trade record: %w", err)
	}
	return nil
}

// Get retrieves the record for address. Returns ErrNotFound if not exists.
func (j *TradeJournal) Get(ctx context.Context, address string) (*domain.TradeRecord, error) {
	query := `SELECT record FROM trade_journal WHERE address = $1`

	rec, err := scanRecord(j.pool.QueryRow(ctx, query, address))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade record: %w", err)
	}
	return rec, nil
}

// List retrieves all records ordered by opened_at ASC.
func (j *TradeJournal) List(ctx context.Context) ([]*domain.TradeRecord, error) {
	query := `SELECT record FROM trade_journal ORDER BY opened_at ASC, address ASC`

	rows, err := j.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list trade records: %w", err)
	}
	defer rows.Close()

	var records []*domain.TradeRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade record row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade record rows: %w", err)
	}
	return records, nil
}

func scanRecord(row pgx.Row) (*domain.TradeRecord, error) {
	var data []byte
	if err := row.Scan(&data); err != nil {
		return nil, err
	}

	var rec domain.TradeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode trade record: %w", err)
	}
	return &rec, nil
}
