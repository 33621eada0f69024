package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/timshannon/badgerhold/v4"

	"github.com/bobmcallan/tickwatch/internal/common"
	"github.com/bobmcallan/tickwatch/internal/models"
)

// BadgerStore implements Store on an embedded Badger database via
// badgerhold.
type BadgerStore struct {
	store  *badgerhold.Store
	logger *common.Logger
}

// NewBadgerStore opens (creating if needed) a Badger database at path.
func NewBadgerStore(path string, logger *common.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // badger's own logger is too chatty

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store at %s: %w", path, err)
	}

	logger.Debug().Str("path", path).Msg("Badger store opened")

	return &BadgerStore{
		store:  store,
		logger: logger,
	}, nil
}

// GetSnapshot returns the stored snapshot for a ticker, or nil when none
// exists.
func (s *BadgerStore) GetSnapshot(ctx context.Context, ticker string) (*models.Snapshot, error) {
	var snapshot models.Snapshot
	err := s.store.Get(models.NormalizeTicker(ticker), &snapshot)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot for %s: %w", ticker, err)
	}
	return &snapshot, nil
}

// SaveSnapshot writes or replaces the snapshot keyed by its ticker. The
// transient News field never reaches disk; news lives in its own table.
func (s *BadgerStore) SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	if snapshot == nil || snapshot.Ticker == "" {
		return fmt.Errorf("snapshot must have a ticker")
	}

	record := *snapshot
	record.Ticker = models.NormalizeTicker(record.Ticker)
	record.News = nil

	if err := s.store.Upsert(record.Ticker, &record); err != nil {
		return fmt.Errorf("failed to save snapshot for %s: %w", record.Ticker, err)
	}
	return nil
}

// ListTickers returns every ticker with a stored snapshot.
func (s *BadgerStore) ListTickers(ctx context.Context) ([]string, error) {
	var snapshots []models.Snapshot
	if err := s.store.Find(&snapshots, nil); err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	tickers := make([]string, 0, len(snapshots))
	for _, snapshot := range snapshots {
		tickers = append(tickers, snapshot.Ticker)
	}
	return tickers, nil
}

// UpsertNews inserts items not already stored, keyed by ticker and link
// hash, and reports how many were new.
func (s *BadgerStore) UpsertNews(ctx context.Context, items []*models.NewsItem) (int, error) {
	inserted := 0
	for _, item := range items {
		if item == nil || item.Link == "" {
			continue
		}

		record := *item
		record.Ticker = models.NormalizeTicker(record.Ticker)
		if record.Hash == "" {
			record.Hash = models.NewsHash(record.Link)
		}
		record.ID = record.Key()

		err := s.store.Insert(record.ID, &record)
		if errors.Is(err, badgerhold.ErrKeyExists) {
			continue
		}
		if err != nil {
			return inserted, fmt.Errorf("failed to insert news %s: %w", record.ID, err)
		}
		inserted++
	}
	return inserted, nil
}

// GetNews returns up to limit stored items for a ticker, newest first.
// limit <= 0 means no cap.
func (s *BadgerStore) GetNews(ctx context.Context, ticker string, limit int) ([]*models.NewsItem, error) {
	query := badgerhold.Where("Ticker").Eq(models.NormalizeTicker(ticker)).Index("Ticker").
		SortBy("PublishedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.NewsItem
	if err := s.store.Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to query news for %s: %w", ticker, err)
	}

	items := make([]*models.NewsItem, len(records))
	for i := range records {
		items[i] = &records[i]
	}
	return items, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.store.Close()
}

var _ Store = (*BadgerStore)(nil)
