package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amezhanin/skinstore/internal/model"
	"github.com/amezhanin/skinstore/internal/pricesource"
	"go.uber.org/zap"
)

var (
	ErrCacheUnavailable = errors.New("catalog cache unavailable")
	ErrFetchFailed      = errors.New("price source fetch failed")
)

const (
	// CatalogTTL bounds the lifetime of a cached catalog snapshot.
	CatalogTTL = 300 * time.Second

	fetchTimeout = 60 * time.Second
)

type CatalogCache interface {
	Get(ctx context.Context) ([]model.Item, bool, error)
	Set(ctx context.Context, items []model.Item, ttl time.Duration) error
}

type PriceSource interface {
	Fetch(ctx context.Context, tradable bool) ([]pricesource.Listing, error)
}

type ItemStore interface {
	ReplaceAll(ctx context.Context, items []model.Item) error
}

// CatalogEvent is one message on the fetch stream: a batch of items, a
// terminal error, or the end-of-stream marker. Exactly one field is set.
type CatalogEvent struct {
	Items []model.Item
	Err   error
	Done  bool
}

// CatalogResult is either a warm-cache snapshot (Cached true, Items set) or
// a live stream of CatalogEvents ending in Done or Err.
type CatalogResult struct {
	Cached bool
	Items  []model.Item
	Stream <-chan CatalogEvent
}

type CatalogService interface {
	GetCatalog(ctx context.Context) (*CatalogResult, error)
}

type catalogService struct {
	cache  CatalogCache
	source PriceSource
	items  ItemStore
	logger *zap.Logger
}

func NewCatalogService(cache CatalogCache, source PriceSource, items ItemStore, logger *zap.Logger) CatalogService {
	return &catalogService{
		cache:  cache,
		source: source,
		items:  items,
		logger: logger,
	}
}

// GetCatalog probes the cache first. A warm cache answers synchronously and
// never touches the price source. A cache-layer failure is not a miss: it
// fails fast instead of sending every request to the upstream.
func (s *catalogService) GetCatalog(ctx context.Context) (*CatalogResult, error) {
	items, hit, err := s.cache.Get(ctx)
	if err != nil {
		s.logger.Error("Catalog cache probe failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrCacheUnavailable, err)
	}
	if hit {
		return &CatalogResult{Cached: true, Items: items}, nil
	}

	stream := make(chan CatalogEvent, 4)
	go s.fetch(stream)

	return &CatalogResult{Stream: stream}, nil
}

// fetch runs detached from the request: a dropped client does not cancel
// the upstream calls, and the cache still gets warmed on success.
func (s *catalogService) fetch(stream chan<- CatalogEvent) {
	defer close(stream)

	ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
	defer cancel()

	merged, err := s.fetchMerged(ctx)
	if err != nil {
		s.logger.Warn("Catalog fetch failed", zap.Error(err))
		stream <- CatalogEvent{Err: fmt.Errorf("%w: %v", ErrFetchFailed, err)}
		return
	}

	stream <- CatalogEvent{Items: merged}

	// The cache and the items table are populated only on a clean fetch,
	// never from a failed run.
	if err := s.items.ReplaceAll(ctx, merged); err != nil {
		s.logger.Error("Failed to store catalog items", zap.Error(err))
	}
	if err := s.cache.Set(ctx, merged, CatalogTTL); err != nil {
		s.logger.Error("Failed to populate catalog cache", zap.Error(err))
	}

	stream <- CatalogEvent{Done: true}
}

func (s *catalogService) fetchMerged(ctx context.Context) ([]model.Item, error) {
	var (
		wg          sync.WaitGroup
		nonTradable []pricesource.Listing
		tradable    []pricesource.Listing
		errNT, errT error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		nonTradable, errNT = s.source.Fetch(ctx, false)
	}()
	go func() {
		defer wg.Done()
		tradable, errT = s.source.Fetch(ctx, true)
	}()
	wg.Wait()

	if errNT != nil {
		return nil, fmt.Errorf("non-tradable listing: %w", errNT)
	}
	if errT != nil {
		return nil, fmt.Errorf("tradable listing: %w", errT)
	}

	return mergeListings(nonTradable, tradable), nil
}

// mergeListings joins the two listings by item name. The non-tradable
// listing drives the output order; names seen only in the tradable listing
// are appended after it. The upstream gives no guarantee that the two
// listings share length or ordering, so a positional zip would attach
// tradable prices to the wrong names.
func mergeListings(nonTradable, tradable []pricesource.Listing) []model.Item {
	items := make([]model.Item, 0, len(nonTradable))
	index := make(map[string]int, len(nonTradable))

	for _, l := range nonTradable {
		index[l.Name] = len(items)
		items = append(items, model.Item{
			Name:                l.Name,
			MinPriceNonTradable: l.MinPrice,
		})
	}

	for _, l := range tradable {
		if i, ok := index[l.Name]; ok {
			items[i].MinPriceTradable = l.MinPrice
			continue
		}
		items = append(items, model.Item{
			Name:             l.Name,
			MinPriceTradable: l.MinPrice,
		})
	}

	return items
}
