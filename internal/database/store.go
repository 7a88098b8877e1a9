package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"parcelview/internal/metrics"
	"parcelview/internal/models"
)

var (
	ErrUnknownTable = errors.New("unknown table")
	ErrInvalidRow   = errors.New("row does not match table")
)

// AccessEventPublisher receives every access event once it is committed.
type AccessEventPublisher interface {
	PublishAccessEvent(event *models.AccessEvent)
}

type Store struct {
	pool      *pgxpool.Pool
	publisher AccessEventPublisher
	*Queries
}

func NewStore(pool *pgxpool.Pool, publisher AccessEventPublisher) *Store {
	return &Store{
		pool:      pool,
		publisher: publisher,
		Queries:   New(pool),
	}
}

func (s *Store) ExecTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	q := New(tx)
	err = fn(q)
	if err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) GetPool() *pgxpool.Pool {
	return s.pool
}

// Insert is the generic row-insert entry point behind /rest/{table}. Only
// access_logs is writable this way.
func (s *Store) Insert(ctx context.Context, table string, row any) error {
	switch table {
	case "access_logs":
		event, ok := row.(*models.AccessEvent)
		if !ok {
			return fmt.Errorf("%w: %s expects *models.AccessEvent, got %T", ErrInvalidRow, table, row)
		}
		return s.RecordAccessEvent(ctx, event)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}
}

// RecordAccessEvent persists the event and fans it out to live subscribers.
func (s *Store) RecordAccessEvent(ctx context.Context, event *models.AccessEvent) error {
	if err := s.InsertAccessLog(ctx, event); err != nil {
		return err
	}

	metrics.AccessEventsStored.WithLabelValues(string(event.EventType), strconv.FormatBool(event.Success)).Inc()
	if s.publisher != nil {
		s.publisher.PublishAccessEvent(event)
	}
	return nil
}
