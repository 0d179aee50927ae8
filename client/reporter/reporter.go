// Package reporter delivers popup events to the tracking endpoint with
// best-effort reliability. Delivery never blocks the caller and
// exhausted retries are swallowed: losing an event beats degrading the
// shopper's page.
package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"popcapture/api/client/retry"
	"popcapture/api/models"
)

type Reporter struct {
	// TrackURL is the full track-event endpoint URL.
	TrackURL  string
	SessionID string
	UserAgent string
	Referrer  string
	Client    *http.Client
	Policy    retry.Policy

	wg sync.WaitGroup
}

func New(trackURL, sessionID string) *Reporter {
	return &Reporter{
		TrackURL:  trackURL,
		SessionID: sessionID,
		Client:    &http.Client{Timeout: 10 * time.Second},
		Policy:    retry.Default,
	}
}

// Report sends an event without blocking the caller.
func (r *Reporter) Report(popupID, event string) {
	r.enqueue(models.TrackRequest{
		PopupID:   popupID,
		Event:     event,
		SessionID: r.SessionID,
		UserAgent: r.UserAgent,
		Referrer:  r.Referrer,
	})
}

// ReportConversion sends a conversion carrying the captured email.
func (r *Reporter) ReportConversion(popupID, email string) {
	r.enqueue(models.TrackRequest{
		PopupID:   popupID,
		Event:     models.EventConversion,
		SessionID: r.SessionID,
		UserAgent: r.UserAgent,
		Referrer:  r.Referrer,
		Email:     email,
	})
}

// Flush waits for in-flight deliveries. Page teardown and tests use it;
// normal operation never does.
func (r *Reporter) Flush() {
	r.wg.Wait()
}

func (r *Reporter) enqueue(req models.TrackRequest) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.deliver(req); err != nil {
			log.Debugf("Dropping %s event for popup %s after retries: %v", req.Event, req.PopupID, err)
		}
	}()
}

func (r *Reporter) deliver(req models.TrackRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return r.Policy.Do(context.Background(), func() error {
		httpReq, err := http.NewRequest(http.MethodPost, r.TrackURL, bytes.NewReader(body))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := r.Client.Do(httpReq)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("track endpoint returned status %d", resp.StatusCode)
		}
		return nil
	})
}
