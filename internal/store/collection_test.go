package store_test

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ucfagri/sambot/internal/store"
)

type record struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	col := store.NewCollection[record](nil, filepath.Join(t.TempDir(), "records.json"))
	assert.Empty(t, col.Load())
}

func TestLoadCorruptFileReturnsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	col := store.NewCollection[record](nil, path)
	assert.Empty(t, col.Load())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	col := store.NewCollection[record](nil, filepath.Join(t.TempDir(), "records.json"))
	require.NoError(t, col.Save([]record{{ID: "a", Value: 1}, {ID: "b", Value: 2}}))

	got := col.Load()
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, 2, got[1].Value)
}

func TestUpdateAbortsWithoutWriting(t *testing.T) {
	col := store.NewCollection[record](nil, filepath.Join(t.TempDir(), "records.json"))
	require.NoError(t, col.Save([]record{{ID: "a"}}))

	err := col.Update(func(items []record) ([]record, error) {
		return nil, errors.New("nope")
	})
	require.Error(t, err)
	assert.Len(t, col.Load(), 1)
}

func TestUpdateIsAtomicUnderConcurrency(t *testing.T) {
	col := store.NewCollection[record](nil, filepath.Join(t.TempDir(), "records.json"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = col.Update(func(items []record) ([]record, error) {
				return append(items, record{ID: "x"}), nil
			})
		}()
	}
	wg.Wait()

	assert.Len(t, col.Load(), 20)
}
