package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/safar/artisan-storefront/internal/config"
	"github.com/safar/artisan-storefront/internal/database"
	"github.com/safar/artisan-storefront/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id string, price int64) models.Product {
	return models.Product{
		ID:         id,
		Name:       "Product " + id,
		Price:      decimal.NewFromInt(price),
		ImageRef:   "img/" + id + ".jpg",
		ArtisanRef: "artisan-" + id,
	}
}

// recordingKV counts writes and can be told to fail.
type recordingKV struct {
	*database.MemoryKV

	mu     sync.Mutex
	writes map[string]int
	fail   error
}

func newRecordingKV() *recordingKV {
	return &recordingKV{MemoryKV: database.NewMemoryKV(), writes: make(map[string]int)}
}

func (k *recordingKV) Set(ctx context.Context, key, value string) error {
	k.mu.Lock()
	k.writes[key]++
	fail := k.fail
	k.mu.Unlock()

	if fail != nil {
		return &database.PersistenceError{Op: "set", Key: key, Err: fail}
	}
	return k.MemoryKV.Set(ctx, key, value)
}

func (k *recordingKV) failWith(err error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.fail = err
}

func (k *recordingKV) writeCount(key string) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.writes[key]
}

func stored(t *testing.T, kv database.KV, key string) string {
	t.Helper()
	value, err := kv.Get(context.Background(), key)
	require.NoError(t, err)
	return value
}

func assertSameLineItems(t *testing.T, want, got []models.CartLineItem) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ProductID, got[i].ProductID)
		assert.Equal(t, want[i].Quantity, got[i].Quantity)
		assert.Equal(t, want[i].Name, got[i].Name)
		assert.True(t, want[i].Price.Equal(got[i].Price), "price %s != %s", want[i].Price, got[i].Price)
		assert.Equal(t, want[i].ImageRef, got[i].ImageRef)
		assert.Equal(t, want[i].ArtisanRef, got[i].ArtisanRef)
	}
}

var errDiskFull = errors.New("disk full")

func newSQLiteKV(t *testing.T) *database.SQLKV {
	t.Helper()

	db, err := database.NewConnection(&config.DatabaseConfig{
		Driver: config.DriverSQLite,
		URL:    "file:" + filepath.Join(t.TempDir(), "session.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.Migrate(context.Background(), db, database.MigrateUp)
	require.NoError(t, err)

	return database.NewSQLKV(db, database.DialectSQLite)
}
