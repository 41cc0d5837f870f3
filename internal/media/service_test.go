package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageWritesContentHashedFile(t *testing.T) {
	svc := NewService(nil, t.TempDir(), time.Minute, 1024)

	staged, err := svc.Stage(strings.NewReader("fake image bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, int64(16), staged.SizeBytes)
	assert.Len(t, staged.Hash, 64)
	assert.True(t, strings.HasSuffix(staged.Path, ".jpg"))

	data, err := os.ReadFile(staged.Path)
	require.NoError(t, err)
	assert.Equal(t, "fake image bytes", string(data))
}

func TestStageRejectsOversizePayload(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(nil, dir, time.Minute, 8)

	_, err := svc.Stage(strings.NewReader("way more than eight bytes"), "image/jpeg")
	require.ErrorIs(t, err, ErrAssetTooLarge)

	// Nothing staged remains behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStageRejectsEmptyPayload(t *testing.T) {
	svc := NewService(nil, t.TempDir(), time.Minute, 1024)
	_, err := svc.Stage(strings.NewReader(""), "image/jpeg")
	require.Error(t, err)
}

func TestCleanupRemovesOnlyExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(nil, dir, 2*time.Minute, 1024)

	stale, err := svc.Stage(strings.NewReader("old photo"), "image/jpeg")
	require.NoError(t, err)
	past := time.Now().Add(-10 * time.Minute)
	require.NoError(t, os.Chtimes(stale.Path, past, past))

	fresh, err := svc.Stage(strings.NewReader("new photo"), "image/png")
	require.NoError(t, err)

	removed := svc.Cleanup()
	assert.Equal(t, 1, removed)
	assert.NoFileExists(t, stale.Path)
	assert.FileExists(t, fresh.Path)
}

func TestRemoveMissingFileIsQuiet(t *testing.T) {
	svc := NewService(nil, t.TempDir(), time.Minute, 1024)
	svc.Remove(filepath.Join(t.TempDir(), "gone.jpg"))
}

func TestHTTPUploaderRoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, _, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"url": "https://cdn.example.com/abc.jpg"}`))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "receipt.jpg")
	require.NoError(t, os.WriteFile(path, []byte("image"), 0o600))

	up := NewHTTPUploader(nil, srv.URL, "secret")
	url, err := up.Upload(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/abc.jpg", url)
}

func TestNewHTTPUploaderWithoutEndpointIsNil(t *testing.T) {
	assert.Nil(t, NewHTTPUploader(nil, "", ""))
}
