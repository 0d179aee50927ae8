package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"popcapture/api/metrics"
	"popcapture/api/models"
	"popcapture/api/ratelimit"
	"popcapture/api/store"
	"popcapture/api/utils"
)

const maxHeaderFieldLen = 500

// EventRecorder is the slice of the popup store the tracking endpoint
// needs: the transactional insert + counter bump.
type EventRecorder interface {
	RecordEvent(ctx context.Context, req models.TrackRequest) (*models.AnalyticsEvent, string, error)
}

// EventSink receives a best-effort copy of every persisted event.
// Sink failures are logged and never surface to the caller.
type EventSink interface {
	AppendEvent(ctx context.Context, shop string, event *models.AnalyticsEvent) error
}

type TrackHandlers struct {
	Recorder EventRecorder
	Sink     EventSink // optional
	Limiter  ratelimit.Limiter
}

func NewTrackHandlers(recorder EventRecorder, sink EventSink, limiter ratelimit.Limiter) *TrackHandlers {
	return &TrackHandlers{
		Recorder: recorder,
		Sink:     sink,
		Limiter:  limiter,
	}
}

// clientKey identifies the caller for rate limiting. The service sits
// behind proxies in every real deployment, so forwarded headers win
// over the socket address.
func clientKey(c *gin.Context) string {
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		if first, _, found := strings.Cut(xff, ","); found {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(xff)
	}
	if ip := c.GetHeader("X-Real-Ip"); ip != "" {
		return ip
	}
	if ip := c.GetHeader("Cf-Connecting-Ip"); ip != "" {
		return ip
	}
	return "unknown"
}

// TrackEvent runs the tracking pipeline: rate-limit, parse, validate,
// persist, mirror to the stats sink, respond.
func (h *TrackHandlers) TrackEvent(c *gin.Context) {
	res, err := h.Limiter.Check(c.Request.Context(), clientKey(c))
	if err != nil {
		// A broken limiter backend must not reject traffic.
		log.Errorf("Rate limiter check failed, allowing request: %v", err)
	} else if !res.Allowed {
		retryAfter := int(res.RetryAfter.Seconds() + 0.5)
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))
		metrics.RateLimited.Inc()
		c.JSON(http.StatusTooManyRequests, models.NewAPIError(
			models.CodeRateLimited, "Too many requests, slow down"))
		return
	}

	var req models.TrackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.ValidationFailures.Inc()
		c.JSON(http.StatusBadRequest, models.NewAPIError(
			models.CodeValidationFailed, "Invalid request body", "body"))
		return
	}

	req.UserAgent = utils.Truncate(req.UserAgent, maxHeaderFieldLen)
	req.Referrer = utils.Truncate(req.Referrer, maxHeaderFieldLen)

	if fieldErrors := validateTrackRequest(&req); len(fieldErrors) > 0 {
		metrics.ValidationFailures.Inc()
		c.JSON(http.StatusBadRequest, models.NewAPIError(
			models.CodeValidationFailed,
			fmt.Sprintf("Invalid fields: %s", strings.Join(fieldErrors, ", ")),
			fieldErrors...))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	event, shop, err := h.Recorder.RecordEvent(ctx, req)
	if errors.Is(err, store.ErrPopupNotFound) {
		c.JSON(http.StatusNotFound, models.NewAPIError(
			models.CodePopupNotFound, "Referenced popup does not exist"))
		return
	}
	if err != nil {
		log.Errorf("Error recording %s event for popup %s: %v", req.Event, req.PopupID, err)
		c.JSON(http.StatusInternalServerError, models.NewAPIError(
			models.CodePersistenceFailed, "Failed to record event"))
		return
	}

	metrics.EventsTracked.WithLabelValues(event.Event).Inc()

	if h.Sink != nil {
		go func() {
			sinkCtx, sinkCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer sinkCancel()
			if err := h.Sink.AppendEvent(sinkCtx, shop, event); err != nil {
				log.Errorf("Error mirroring event %s to stats sink: %v", event.EventID, err)
			}
		}()
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// validateTrackRequest returns the names of failing fields, empty when
// the request is acceptable.
func validateTrackRequest(req *models.TrackRequest) []string {
	var fieldErrors []string

	if !utils.IsValidPopupID(req.PopupID) {
		fieldErrors = append(fieldErrors, "popupId")
	}
	if !models.KnownEvent(req.Event) {
		fieldErrors = append(fieldErrors, "event")
	}
	if len(req.SessionID) < 10 || len(req.SessionID) > 100 {
		fieldErrors = append(fieldErrors, "sessionId")
	}
	if req.Email != "" && (req.Event != models.EventConversion || !utils.IsValidEmail(req.Email)) {
		fieldErrors = append(fieldErrors, "email")
	}

	return fieldErrors
}
