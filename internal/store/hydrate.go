package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/safar/artisan-storefront/internal/database"
	"go.uber.org/zap"
)

type hydrateResult int

const (
	hydrateLoaded hydrateResult = iota
	hydrateMissing
	hydrateFailed
	// hydrateUnreadable means the key-value store itself failed; the stored
	// value may be perfectly good.
	hydrateUnreadable
)

// hydrate reads key and decodes it into a slice, rejecting the whole value if
// any element fails validation. Bad stored data is logged and left in place.
func hydrate[T any](ctx context.Context, kv database.KV, key string, logger *zap.Logger, validate func([]T) error) ([]T, hydrateResult) {
	raw, err := kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return nil, hydrateMissing
		}
		logger.Error("hydrate", zap.String("key", key), zap.Error(err))
		return nil, hydrateUnreadable
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logger.Warn("stored value is malformed, starting empty",
			zap.Error(&database.PersistenceError{Op: "decode", Key: key, Err: err}))
		return nil, hydrateFailed
	}

	if err := validate(items); err != nil {
		logger.Warn("stored value is malformed, starting empty",
			zap.Error(&database.PersistenceError{Op: "validate", Key: key, Err: err}))
		return nil, hydrateFailed
	}

	return items, hydrateLoaded
}

func validateUnique[T any](items []T, id func(T) string, validate func(T) error) error {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if err := validate(item); err != nil {
			return err
		}
		key := id(item)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate id %q", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}
