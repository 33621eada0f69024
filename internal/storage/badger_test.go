package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/tickwatch/internal/common"
	"github.com/bobmcallan/tickwatch/internal/models"
)

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(t.TempDir(), common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newsItem(ticker, link, title string, published time.Time) *models.NewsItem {
	item := &models.NewsItem{
		Ticker:      ticker,
		Hash:        models.NewsHash(link),
		Title:       title,
		Link:        link,
		PublishedAt: published,
	}
	item.ID = item.Key()
	return item
}

func TestSnapshotRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missing, err := store.GetSnapshot(ctx, "AAPL")
	require.NoError(t, err)
	assert.Nil(t, missing)

	snapshot := &models.Snapshot{
		Ticker:       "aapl",
		Name:         "Apple Inc.",
		Price:        187.50,
		Change:       1.25,
		ChangePct:    0.67,
		MarketStatus: models.MarketOpen,
		Indicators:   models.IndicatorSet{models.IndRSI14: 61.2},
		Fundamentals: &models.Fundamentals{Sector: "Technology", PERatio: models.Float64(29.3)},
		Source:       "YFINANCE",
		LastUpdated:  time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.SaveSnapshot(ctx, snapshot))

	got, err := store.GetSnapshot(ctx, "AAPL")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "AAPL", got.Ticker)
	assert.Equal(t, "Apple Inc.", got.Name)
	assert.InDelta(t, 187.50, got.Price, 1e-9)
	rsi, ok := got.Indicators.Get(models.IndRSI14)
	assert.True(t, ok)
	assert.InDelta(t, 61.2, rsi, 1e-9)
	require.NotNil(t, got.Fundamentals)
	require.NotNil(t, got.Fundamentals.PERatio)
	assert.InDelta(t, 29.3, *got.Fundamentals.PERatio, 1e-9)
}

func TestSaveSnapshotReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSnapshot(ctx, &models.Snapshot{Ticker: "MSFT", Price: 100}))
	require.NoError(t, store.SaveSnapshot(ctx, &models.Snapshot{Ticker: "MSFT", Price: 105}))

	got, err := store.GetSnapshot(ctx, "MSFT")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 105, got.Price, 1e-9)
}

func TestSaveSnapshotStripsTransientNews(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	snapshot := &models.Snapshot{
		Ticker: "TSLA",
		Price:  250,
		News:   []*models.NewsItem{newsItem("TSLA", "https://example.com/t", "Tesla", time.Now())},
	}
	require.NoError(t, store.SaveSnapshot(ctx, snapshot))

	got, err := store.GetSnapshot(ctx, "TSLA")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.News)
}

func TestSaveSnapshotRequiresTicker(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.SaveSnapshot(context.Background(), &models.Snapshot{}))
	assert.Error(t, store.SaveSnapshot(context.Background(), nil))
}

func TestListTickers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	tickers, err := store.ListTickers(ctx)
	require.NoError(t, err)
	assert.Empty(t, tickers)

	require.NoError(t, store.SaveSnapshot(ctx, &models.Snapshot{Ticker: "AAPL", Price: 1}))
	require.NoError(t, store.SaveSnapshot(ctx, &models.Snapshot{Ticker: "600519", Price: 2}))

	tickers, err = store.ListTickers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"AAPL", "600519"}, tickers)
}

func TestUpsertNewsDeduplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	batch := []*models.NewsItem{
		newsItem("AAPL", "https://example.com/1", "First", now),
		newsItem("AAPL", "https://example.com/2", "Second", now.Add(time.Minute)),
	}

	inserted, err := store.UpsertNews(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Same links again plus one new: only the new one lands.
	batch = append(batch, newsItem("AAPL", "https://example.com/3", "Third", now.Add(2*time.Minute)))
	inserted, err = store.UpsertNews(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)

	items, err := store.GetNews(ctx, "AAPL", 0)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestUpsertNewsSameLinkDifferentTickers(t *testing.T) {
	// Identity is scoped per ticker, so a shared link stores twice.
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	inserted, err := store.UpsertNews(ctx, []*models.NewsItem{
		newsItem("AAPL", "https://example.com/shared", "Shared", now),
		newsItem("MSFT", "https://example.com/shared", "Shared", now),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)
}

func TestGetNewsNewestFirstWithLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	var batch []*models.NewsItem
	for i := 0; i < 5; i++ {
		batch = append(batch, newsItem("NVDA",
			"https://example.com/nvda/"+string(rune('a'+i)),
			"Item", base.Add(time.Duration(i)*time.Hour)))
	}
	_, err := store.UpsertNews(ctx, batch)
	require.NoError(t, err)

	items, err := store.GetNews(ctx, "NVDA", 3)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, base.Add(4*time.Hour), items[0].PublishedAt)
	assert.Equal(t, base.Add(3*time.Hour), items[1].PublishedAt)
	assert.Equal(t, base.Add(2*time.Hour), items[2].PublishedAt)

	other, err := store.GetNews(ctx, "AMD", 10)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestFactoryDefaultsToBadger(t *testing.T) {
	config := &common.StorageConfig{Backend: "", Path: t.TempDir()}
	store, err := NewStore(config, common.NewSilentLogger())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = NewStore(&common.StorageConfig{Backend: "postgres"}, common.NewSilentLogger())
	assert.Error(t, err)
}
