package imagesearch

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupImageSearchTest(t *testing.T, handler http.HandlerFunc) *UnsplashClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewUnsplashClient(srv.URL, "access-key", logger)
}

func TestCoverQuery(t *testing.T) {
	assert.Equal(t, "Paris", CoverQuery("Paris, France"))
	assert.Equal(t, "Tokyo", CoverQuery("Tokyo"))
	assert.Equal(t, "", CoverQuery(""))
}

func TestCoverImageURL(t *testing.T) {
	t.Run("picks one of the small urls", func(t *testing.T) {
		client := setupImageSearchTest(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/search/photos", r.URL.Path)
			assert.Equal(t, "Client-ID access-key", r.Header.Get("Authorization"))
			assert.Equal(t, "Lisbon", r.URL.Query().Get("query"))
			assert.Equal(t, "10", r.URL.Query().Get("per_page"))
			assert.Equal(t, "landscape", r.URL.Query().Get("orientation"))
			_, _ = w.Write([]byte(`{"results":[{"urls":{"small":"https://img/1"}},{"urls":{"small":"https://img/2"}}]}`))
		})
		var gotN int
		client.pick = func(n int) int { gotN = n; return n - 1 }

		url := client.CoverImageURL(context.Background(), "Lisbon")
		require.NotNil(t, url)
		assert.Equal(t, "https://img/2", *url)
		assert.Equal(t, 2, gotN)
	})

	t.Run("absent on no results", func(t *testing.T) {
		client := setupImageSearchTest(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"results":[]}`))
		})
		assert.Nil(t, client.CoverImageURL(context.Background(), "Nowhere"))
	})

	t.Run("absent on error status", func(t *testing.T) {
		client := setupImageSearchTest(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
		assert.Nil(t, client.CoverImageURL(context.Background(), "Lisbon"))
	})
}
