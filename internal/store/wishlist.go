package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/safar/artisan-storefront/internal/database"
	"github.com/safar/artisan-storefront/internal/logging"
	"github.com/safar/artisan-storefront/internal/models"
	"go.uber.org/zap"
)

const WishlistKey = "wishlist"

type WishlistStore struct {
	mu      sync.RWMutex
	entries []models.WishlistEntry
	writer  *writer
	logger  *zap.Logger
}

func NewWishlistStore(ctx context.Context, kv database.KV, logger *zap.Logger) *WishlistStore {
	logger = logging.OrNop(logger).Named("wishlist")

	entries, _ := hydrate(ctx, kv, WishlistKey, logger, func(entries []models.WishlistEntry) error {
		return validateUnique(entries,
			func(e models.WishlistEntry) string { return e.ProductID },
			models.WishlistEntry.Validate)
	})

	return &WishlistStore{
		entries: entries,
		writer:  newWriter(kv, WishlistKey, logger),
		logger:  logger,
	}
}

// AddToWishlist is idempotent: saving a product twice keeps one entry.
func (s *WishlistStore) AddToWishlist(p models.Product) error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidProduct)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(p.ID) >= 0 {
		return nil
	}
	s.entries = append(s.entries, models.NewWishlistEntry(p))
	s.persist()
	return nil
}

func (s *WishlistStore) RemoveFromWishlist(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(productID)
	if i < 0 {
		return
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	s.persist()
}

func (s *WishlistStore) IsInWishlist(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.indexOf(productID) >= 0
}

func (s *WishlistStore) GetAll() []models.WishlistEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]models.WishlistEntry{}, s.entries...)
}

func (s *WishlistStore) Flush(ctx context.Context) error { return s.writer.Flush(ctx) }

func (s *WishlistStore) Close(ctx context.Context) error { return s.writer.Close(ctx) }

func (s *WishlistStore) indexOf(productID string) int {
	for i, e := range s.entries {
		if e.ProductID == productID {
			return i
		}
	}
	return -1
}

func (s *WishlistStore) persist() {
	entries := s.entries
	if entries == nil {
		entries = []models.WishlistEntry{}
	}
	s.writer.save(entries)
}
