package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popcapture/api/models"
	"popcapture/api/store"
)

type fakeStatsReader struct {
	shop     string
	interval string
	filter   string
	limit    uint64
	counts   []store.EventCountByTime
	top      []store.TopPopupResult
	err      error
}

func (f *fakeStatsReader) GetEventCountsOverTime(_ context.Context, shop, interval string, _, _ time.Time, eventFilter string) ([]store.EventCountByTime, error) {
	f.shop, f.interval, f.filter = shop, interval, eventFilter
	return f.counts, f.err
}

func (f *fakeStatsReader) GetUniqueSessionsOverTime(_ context.Context, shop, interval string, _, _ time.Time) ([]store.EventCountByTime, error) {
	f.shop, f.interval = shop, interval
	return f.counts, f.err
}

func (f *fakeStatsReader) GetTopPopups(_ context.Context, shop string, _, _ time.Time, limit uint64) ([]store.TopPopupResult, error) {
	f.shop, f.limit = shop, limit
	return f.top, f.err
}

func newStatsRouter(reader StatsReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// Stand-in for the auth middleware's verified claim.
	r.Use(func(c *gin.Context) { c.Set("shop", "example.myshopify.com") })
	h := NewStatsHandlers(reader)
	r.GET("/stats/event-counts", h.GetEventCounts)
	r.GET("/stats/unique-sessions", h.GetUniqueSessions)
	r.GET("/stats/top-popups", h.GetTopPopups)
	return r
}

func getStats(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetEventCountsScopedToTokenShop(t *testing.T) {
	reader := &fakeStatsReader{counts: []store.EventCountByTime{{Count: 7}}}
	r := newStatsRouter(reader)

	w := getStats(r, "/stats/event-counts?interval=Day&event=view")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "example.myshopify.com", reader.shop)
	assert.Equal(t, "Day", reader.interval)
	assert.Equal(t, "view", reader.filter)

	var results []store.EventCountByTime
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, uint64(7), results[0].Count)
}

func TestGetEventCountsRequiresInterval(t *testing.T) {
	w := getStats(newStatsRouter(&fakeStatsReader{}), "/stats/event-counts")

	require.Equal(t, http.StatusBadRequest, w.Code)
	var apiErr models.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, models.CodeValidationFailed, apiErr.Code)
	assert.Contains(t, apiErr.Errors, "interval")
}

func TestStatsRejectsBadTimestamps(t *testing.T) {
	w := getStats(newStatsRouter(&fakeStatsReader{}), "/stats/event-counts?interval=Day&start=yesterday")

	require.Equal(t, http.StatusBadRequest, w.Code)
	var apiErr models.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, models.CodeValidationFailed, apiErr.Code)
	assert.Contains(t, apiErr.Errors, "start")
}

func TestStatsReaderErrorEnvelope(t *testing.T) {
	reader := &fakeStatsReader{err: errors.New("clickhouse down")}
	w := getStats(newStatsRouter(reader), "/stats/event-counts?interval=Day")

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var apiErr models.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, models.CodePersistenceFailed, apiErr.Code)
	assert.NotContains(t, w.Body.String(), "clickhouse down", "internal details must not leak")
}

func TestGetTopPopupsLimit(t *testing.T) {
	reader := &fakeStatsReader{top: []store.TopPopupResult{{PopupID: testPopupID, Count: 42}}}
	r := newStatsRouter(reader)

	w := getStats(r, "/stats/top-popups?limit=5")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(5), reader.limit)

	w = getStats(r, "/stats/top-popups?limit=0")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = getStats(r, "/stats/top-popups")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(10), reader.limit, "limit defaults to 10")
}
