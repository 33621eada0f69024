// Package storage provides persistence for market snapshots and news.
package storage

import (
	"context"

	"github.com/bobmcallan/tickwatch/internal/models"
)

// Store persists reconciled snapshots and deduplicated news items.
type Store interface {
	// GetSnapshot returns the stored snapshot for a ticker, or nil when
	// none exists.
	GetSnapshot(ctx context.Context, ticker string) (*models.Snapshot, error)

	// SaveSnapshot writes or replaces the snapshot for its ticker.
	SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error

	// ListTickers returns every ticker with a stored snapshot.
	ListTickers(ctx context.Context) ([]string, error)

	// UpsertNews inserts items whose identity is not yet stored and
	// silently skips the rest, returning the number inserted.
	UpsertNews(ctx context.Context, items []*models.NewsItem) (int, error)

	// GetNews returns up to limit stored items for a ticker, newest
	// first.
	GetNews(ctx context.Context, ticker string, limit int) ([]*models.NewsItem, error)

	Close() error
}
