package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"popcapture/api/models"
	"popcapture/api/store"
)

// StatsReader is the slice of the ClickHouse store the stats API needs.
type StatsReader interface {
	GetEventCountsOverTime(ctx context.Context, shop, interval string, start, end time.Time, eventFilter string) ([]store.EventCountByTime, error)
	GetUniqueSessionsOverTime(ctx context.Context, shop, interval string, start, end time.Time) ([]store.EventCountByTime, error)
	GetTopPopups(ctx context.Context, shop string, start, end time.Time, limit uint64) ([]store.TopPopupResult, error)
}

type StatsHandlers struct {
	Stats StatsReader
}

func NewStatsHandlers(stats StatsReader) *StatsHandlers {
	return &StatsHandlers{Stats: stats}
}

// parseTimeRange reads optional start/end query params, defaulting to
// the last 7 days. The boolean is false when a param failed to parse
// and a 400 has already been written.
func parseTimeRange(c *gin.Context) (time.Time, time.Time, bool) {
	start := time.Now().UTC().Add(-7 * 24 * time.Hour)
	end := time.Now().UTC()
	var err error

	if startParam := c.Query("start"); startParam != "" {
		start, err = time.Parse(time.RFC3339, startParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.NewAPIError(models.CodeValidationFailed, "Invalid 'start' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)", "start"))
			return start, end, false
		}
	}
	if endParam := c.Query("end"); endParam != "" {
		end, err = time.Parse(time.RFC3339, endParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.NewAPIError(models.CodeValidationFailed, "Invalid 'end' timestamp format. Use RFC3339 (e.g., 2006-01-02T15:04:05Z)", "end"))
			return start, end, false
		}
	}

	return start, end, true
}

func (h *StatsHandlers) GetEventCounts(c *gin.Context) {
	shop := c.MustGet("shop").(string)

	interval := c.Query("interval")
	if interval == "" {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.CodeValidationFailed, "interval query parameter is required (e.g., 'Day', 'Hour')", "interval"))
		return
	}
	eventFilter := c.Query("event")

	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Stats.GetEventCountsOverTime(ctx, shop, interval, start, end, eventFilter)
	if err != nil {
		log.Errorf("Error getting event counts for shop %s: %v", shop, err)
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.CodePersistenceFailed, "Failed to retrieve event statistics"))
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *StatsHandlers) GetUniqueSessions(c *gin.Context) {
	shop := c.MustGet("shop").(string)

	interval := c.Query("interval")
	if interval == "" {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.CodeValidationFailed, "interval query parameter is required (e.g., 'Day', 'Hour')", "interval"))
		return
	}

	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Stats.GetUniqueSessionsOverTime(ctx, shop, interval, start, end)
	if err != nil {
		log.Errorf("Error getting unique sessions for shop %s: %v", shop, err)
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.CodePersistenceFailed, "Failed to retrieve unique session statistics"))
		return
	}

	c.JSON(http.StatusOK, results)
}

func (h *StatsHandlers) GetTopPopups(c *gin.Context) {
	shop := c.MustGet("shop").(string)

	start, end, ok := parseTimeRange(c)
	if !ok {
		return
	}

	var limit uint64 = 10
	if limitParam := c.Query("limit"); limitParam != "" {
		parsedLimit, err := strconv.ParseUint(limitParam, 10, 64)
		if err != nil || parsedLimit == 0 {
			c.JSON(http.StatusBadRequest, models.NewAPIError(models.CodeValidationFailed, "Invalid 'limit' parameter. Must be a positive integer.", "limit"))
			return
		}
		limit = parsedLimit
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	results, err := h.Stats.GetTopPopups(ctx, shop, start, end, limit)
	if err != nil {
		log.Errorf("Error getting top popups for shop %s: %v", shop, err)
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.CodePersistenceFailed, "Failed to retrieve top popup statistics"))
		return
	}

	c.JSON(http.StatusOK, results)
}
