// Package trigger decides when each configured popup should surface.
// The page feeds the engine a stream of PageEvents; the engine arms one
// trigger per popup and fires the display callback the first time its
// condition is met.
package trigger

import (
	"fmt"
	"time"

	"popcapture/api/models"
)

// Trigger is a tagged variant: Delay, Scroll or Exit.
type Trigger interface {
	isTrigger()
}

// Delay fires after Seconds, unless the page goes hidden first.
type Delay struct {
	Seconds int
}

// Scroll fires when scroll depth reaches Percent (inclusive).
type Scroll struct {
	Percent int
}

// Exit fires on exit intent: mouse movement toward the browser chrome
// on desktop, or a repeated scroll-up pattern near the top on touch.
type Exit struct{}

func (Delay) isTrigger()  {}
func (Scroll) isTrigger() {}
func (Exit) isTrigger()   {}

func (d Delay) Duration() time.Duration {
	return time.Duration(d.Seconds) * time.Second
}

// Parse maps a fetched popup config onto its trigger variant.
func Parse(cfg models.PopupConfig) (Trigger, error) {
	switch cfg.TriggerType {
	case models.TriggerDelay:
		return Delay{Seconds: cfg.TriggerValue}, nil
	case models.TriggerScroll:
		return Scroll{Percent: cfg.TriggerValue}, nil
	case models.TriggerExit:
		return Exit{}, nil
	default:
		return nil, fmt.Errorf("unknown trigger type %q", cfg.TriggerType)
	}
}

// EventKind tags a PageEvent.
type EventKind int

const (
	EventVisibilityHidden EventKind = iota
	EventVisibilityVisible
	EventScroll
	EventMouseLeave
)

// PageEvent is one observation from the page. Scroll events carry the
// scroll geometry; mouse-leave events carry the pointer Y coordinate.
// A zero Time means "now".
type PageEvent struct {
	Kind           EventKind
	Time           time.Time
	ScrollTop      float64
	ScrollHeight   float64
	ViewportHeight float64
	MouseY         float64
}

// ScrollPercent is how far down the page the viewport sits, 0–100.
// Pages shorter than the viewport count as fully scrolled.
func (e PageEvent) ScrollPercent() float64 {
	scrollable := e.ScrollHeight - e.ViewportHeight
	if scrollable <= 0 {
		return 100
	}
	pct := e.ScrollTop / scrollable * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
