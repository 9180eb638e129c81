package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

type PrintCounter struct {
	PrinterName string `json:"printerName"`
	Date        string `json:"date"`
	Count       int64  `json:"count"`
}

// CounterStore keeps one row per printer per day with the number of
// successfully printed jobs.
type CounterStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewCounterStore(db *sql.DB) *CounterStore {
	return &CounterStore{db: db, now: time.Now}
}

func (s *CounterStore) IncrementPrintCount(ctx context.Context, printerName string, count int) error {
	date := s.now().UTC().Format(dateLayout)
	if _, err := s.db.ExecContext(ctx, IncrementPrintCounter, printerName, date, count); err != nil {
		return fmt.Errorf("failed to increment print counter: %w", err)
	}
	return nil
}

// GetCounters returns the daily counts for the last days days, newest first.
// Days without prints are omitted.
func (s *CounterStore) GetCounters(ctx context.Context, printerName string, days int) ([]*PrintCounter, error) {
	if days < 1 {
		days = 1
	}
	since := s.now().UTC().AddDate(0, 0, -(days - 1)).Format(dateLayout)

	rows, err := s.db.QueryContext(ctx, GetPrintCountersSince, printerName, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get counters: %w", err)
	}
	defer rows.Close()

	counters := []*PrintCounter{}
	for rows.Next() {
		c := &PrintCounter{}
		if err := rows.Scan(&c.PrinterName, &c.Date, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan counter: %w", err)
		}
		counters = append(counters, c)
	}
	return counters, rows.Err()
}

func (s *CounterStore) GetTotal(ctx context.Context, printerName string) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, SumPrintCounters, printerName).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum counters: %w", err)
	}
	return total, nil
}
