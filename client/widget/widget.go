// Package widget is the client composition root: it gates on admin
// detection, fetches the shop's popup config, arms the trigger engine
// and hands fired popups to their lifecycle controllers.
package widget

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"popcapture/api/client/admingate"
	"popcapture/api/client/fetcher"
	"popcapture/api/client/popup"
	"popcapture/api/client/reporter"
	"popcapture/api/client/session"
	"popcapture/api/client/trigger"
	"popcapture/api/models"
)

// Widget wires one page load. SurfaceFor supplies the rendered overlay
// for a popup when its trigger fires.
type Widget struct {
	Shop       string
	Fetcher    *fetcher.Fetcher
	Reporter   *reporter.Reporter
	Sessions   session.Store
	SurfaceFor func(cfg models.PopupConfig) popup.Surface

	mu          sync.Mutex
	controllers map[string]*popup.Controller
}

// Controller returns the lifecycle controller for a popup, so the page
// can route submit and close interactions to it. Nil until Run has
// armed the popup.
func (w *Widget) Controller(popupID string) *popup.Controller {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.controllers[popupID]
}

// Run blocks until ctx is done or the event stream closes. It returns
// without arming anything when the admin gate blocks the page or no
// popup config could be loaded.
func (w *Widget) Run(ctx context.Context, snap admingate.Snapshot, events <-chan trigger.PageEvent) {
	if admingate.Blocked(snap) {
		return
	}

	configs := w.Fetcher.Fetch(ctx, w.Shop)
	if len(configs) == 0 {
		return
	}

	w.mu.Lock()
	w.controllers = make(map[string]*popup.Controller, len(configs))
	popups := make([]trigger.Popup, 0, len(configs))
	for _, cfg := range configs {
		t, err := trigger.Parse(cfg)
		if err != nil {
			log.Debugf("Skipping popup %s: %v", cfg.ID, err)
			continue
		}
		w.controllers[cfg.ID] = popup.NewController(cfg, w.SurfaceFor(cfg), w.Reporter, w.Sessions)
		popups = append(popups, trigger.Popup{ID: cfg.ID, Trigger: t})
	}
	w.mu.Unlock()

	if len(popups) == 0 {
		return
	}

	engine := trigger.NewEngine(popups, w.Sessions, func(popupID string) {
		if ctrl := w.Controller(popupID); ctrl != nil {
			ctrl.Show()
		}
	})
	engine.Run(ctx, events)
}
