package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetUnknownKeyReturnsDefault(t *testing.T) {
	store := NewStore(nil, "main_menu")
	assert.Equal(t, "main_menu", store.Get("telegram:1"))
}

func TestPutAndGet(t *testing.T) {
	store := NewStore(nil, "main_menu")
	store.Put("telegram:1", "calculator_plant")
	assert.Equal(t, "calculator_plant", store.Get("telegram:1"))
	assert.Equal(t, 1, store.Len())
}

func TestResetRestoresDefault(t *testing.T) {
	store := NewStore(nil, "main_menu")
	store.Put("telegram:1", "product_qa")
	store.Reset("telegram:1")
	assert.Equal(t, "main_menu", store.Get("telegram:1"))
}

func TestSweepEvictsOnlyIdleSessions(t *testing.T) {
	store := NewStore(nil, "main_menu")
	now := time.Now()

	store.now = func() time.Time { return now.Add(-25 * time.Hour) }
	store.Put("telegram:stale", "product_qa")
	store.now = func() time.Time { return now }
	store.Put("telegram:fresh", "calculator_plant")

	evicted := store.Sweep(24 * time.Hour)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, "main_menu", store.Get("telegram:stale"))
	assert.Equal(t, "calculator_plant", store.Get("telegram:fresh"))
}
