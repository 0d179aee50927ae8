package widget

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"popcapture/api/client/admingate"
	"popcapture/api/client/fetcher"
	"popcapture/api/client/popup"
	"popcapture/api/client/reporter"
	"popcapture/api/client/retry"
	"popcapture/api/client/session"
	"popcapture/api/client/trigger"
	"popcapture/api/models"
)

const widgetPopupID = "abcdefghij1234567890"

type recordingSurface struct {
	mu    sync.Mutex
	shown []string
}

func (s *recordingSurface) Show(cfg models.PopupConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shown = append(s.shown, cfg.ID)
}
func (s *recordingSurface) FocusEmail()        {}
func (s *recordingSurface) ShowError(string)   {}
func (s *recordingSurface) SetSubmitting(bool) {}
func (s *recordingSurface) ShowSuccess(string) {}
func (s *recordingSurface) Teardown()          {}

func (s *recordingSurface) shownIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.shown...)
}

// backend fakes both API endpoints for a full page-load walkthrough.
type backend struct {
	server  *httptest.Server
	mu      sync.Mutex
	tracked []models.TrackRequest
	hits    int
}

func newBackend(t *testing.T, configs []models.PopupConfig) *backend {
	b := &backend{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/popup-config", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits++
		b.mu.Unlock()
		json.NewEncoder(w).Encode(configs)
	})
	mux.HandleFunc("/api/track-event", func(w http.ResponseWriter, r *http.Request) {
		var req models.TrackRequest
		json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.tracked = append(b.tracked, req)
		b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	})
	b.server = httptest.NewServer(mux)
	t.Cleanup(b.server.Close)
	return b
}

func (b *backend) trackedEvents() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := make([]string, len(b.tracked))
	for i, req := range b.tracked {
		events[i] = req.Event
	}
	return events
}

func (b *backend) configHits() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits
}

func newWidget(b *backend, surface *recordingSurface) *Widget {
	sessions := session.NewMemory()

	f := fetcher.New(b.server.URL + "/api/popup-config")
	f.Policy = retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}

	rep := reporter.New(b.server.URL+"/api/track-event", sessions.ID())
	rep.Policy = retry.Policy{MaxAttempts: 2, BaseDelay: time.Millisecond}

	return &Widget{
		Shop:       "example.myshopify.com",
		Fetcher:    f,
		Reporter:   rep,
		Sessions:   sessions,
		SurfaceFor: func(models.PopupConfig) popup.Surface { return surface },
	}
}

func storefrontSnapshot() admingate.Snapshot {
	return admingate.Snapshot{Hostname: "example.myshopify.com", Path: "/products/mug"}
}

func TestWidgetShowsPopupOnTriggerFire(t *testing.T) {
	b := newBackend(t, []models.PopupConfig{{
		ID:           widgetPopupID,
		TriggerType:  models.TriggerScroll,
		TriggerValue: 50,
		Heading:      "Get 10% off",
		ButtonText:   "Subscribe",
	}})
	surface := &recordingSurface{}
	w := newWidget(b, surface)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan trigger.PageEvent)
	done := make(chan struct{})
	go func() {
		w.Run(ctx, storefrontSnapshot(), events)
		close(done)
	}()

	events <- trigger.PageEvent{
		Kind:           trigger.EventScroll,
		Time:           time.Now(),
		ScrollTop:      600,
		ScrollHeight:   1100,
		ViewportHeight: 100,
	}

	require.Eventually(t, func() bool { return len(surface.shownIDs()) == 1 },
		2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{widgetPopupID}, surface.shownIDs())

	w.Reporter.Flush()
	assert.Equal(t, []string{models.EventView}, b.trackedEvents())
	assert.True(t, w.Sessions.Shown(widgetPopupID))

	cancel()
	<-done
}

func TestWidgetStaysDormantOnAdminPages(t *testing.T) {
	b := newBackend(t, []models.PopupConfig{{ID: widgetPopupID, TriggerType: models.TriggerDelay}})
	w := newWidget(b, &recordingSurface{})

	snap := storefrontSnapshot()
	snap.Hostname = "admin.shopify.com"

	events := make(chan trigger.PageEvent)
	close(events)
	w.Run(context.Background(), snap, events)

	assert.Zero(t, b.configHits(), "a blocked page must not even fetch config")
}

func TestWidgetSkipsUnknownTriggerTypes(t *testing.T) {
	b := newBackend(t, []models.PopupConfig{{ID: widgetPopupID, TriggerType: "hover"}})
	w := newWidget(b, &recordingSurface{})

	events := make(chan trigger.PageEvent)
	close(events)
	w.Run(context.Background(), storefrontSnapshot(), events)

	assert.Equal(t, 1, b.configHits())
	assert.Nil(t, w.Controller(widgetPopupID))
}
