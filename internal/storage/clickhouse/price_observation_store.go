package clickhouse

import (
	"context"
	"fmt"

	"solana-signal-trader/internal/domain"
	"solana-signal-trader/internal/storage"
)

// PriceObservationStore implements storage.PriceObservationStore using ClickHouse.
type PriceObservationStore struct {
	conn *Conn
}

// NewPriceObservationStore creates a new PriceObservationStore.
func NewPriceObservationStore(conn *Conn) *PriceObservationStore {
	return &PriceObservationStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceObservationStore = (*PriceObservationStore)(nil)

// InsertBulk adds observations. Fails entire batch on duplicate (address, observed_at_ms).
func (s *PriceObservationStore) InsertBulk(ctx context.Context, obs []*domain.PriceObservation) error {
	if len(obs) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	type key struct {
		address      string
		observedAtMs int64
	}
	seen := make(map[key]struct{}, len(obs))
	for _, o := range obs {
		if o == nil || o.Address == "" {
			return storage.ErrInvalidInput
		}
		k := key{o.Address, o.ObservedAtMs}
		if _, exists := seen[k]; exists {
			return storage.ErrDuplicateObservation
		}
		seen[k] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, o := range obs {
		exists, err := s.exists(ctx, o.Address, o.ObservedAtMs)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateObservation
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_observations (
			address, symbol, observed_at_ms, price_usd, volume_usd, liquidity_usd
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, o := range obs {
		err = batch.Append(
			o.Address, o.Symbol, uint64(o.ObservedAtMs),
			o.PriceUSD, o.VolumeUSD, o.LiquidityUSD,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves observations for an address within [start, end] (inclusive).
func (s *PriceObservationStore) GetByTimeRange(ctx context.Context, address string, start, end int64) ([]*domain.PriceObservation, error) {
	query := `
		SELECT address, symbol, observed_at_ms, price_usd, volume_usd, liquidity_usd
		FROM price_observations
		WHERE address = ? AND observed_at_ms >= ? AND observed_at_ms <= ?
		ORDER BY observed_at_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, address, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanPriceObservations(rows)
}

func (s *PriceObservationStore) exists(ctx context.Context, address string, observedAtMs int64) (bool, error) {
	query := `
		SELECT count(*) FROM price_observations
		WHERE address = ? AND observed_at_ms = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, address, uint64(observedAtMs)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanPriceObservations(rows chRows) ([]*domain.PriceObservation, error) {
	var result []*domain.PriceObservation

	for rows.Next() {
		var o domain.PriceObservation
		var observedAtMs uint64

		if err := rows.Scan(
			&o.Address, &o.Symbol, &observedAtMs,
			&o.PriceUSD, &o.VolumeUSD, &o.LiquidityUSD,
		); err != nil {
			return nil, fmt.Errorf("scan price observation row: %w", err)
		}

		o.ObservedAtMs = int64(observedAtMs)
		result = append(result, &o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price observation rows: %w", err)
	}
	return result, nil
}
