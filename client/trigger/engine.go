package trigger

import (
	"context"
	"time"
)

const (
	// Scroll listeners are evaluated at most once per interval.
	scrollThrottle = 50 * time.Millisecond
	// Mouse Y at or under this many pixels on mouseleave reads as
	// movement toward the browser chrome.
	exitMouseThreshold = 20
	// Touch exit intent: this many consecutive upward scroll deltas
	// observed while the page is near the top.
	exitUpStreak = 3
	// "Near the top" for the touch pattern.
	exitNearTopPx = 100
)

// SessionShown reports popups already displayed this session; they are
// never armed.
type SessionShown interface {
	Shown(popupID string) bool
}

// Popup pairs a popup ID with its configured trigger.
type Popup struct {
	ID      string
	Trigger Trigger
}

// Engine arms one trigger per popup and fires the callback the first
// time each condition is met. Fires are delivered from a single
// goroutine, so two triggers racing still reach the renderer one at a
// time, and each popup fires at most once per page load.
type Engine struct {
	popups   []Popup
	sessions SessionShown
	fire     func(popupID string)
}

func NewEngine(popups []Popup, sessions SessionShown, fire func(popupID string)) *Engine {
	return &Engine{popups: popups, sessions: sessions, fire: fire}
}

type armedPopup struct {
	id    string
	fired bool

	// scroll
	scrollTarget float64
	lastEval     time.Time

	// exit (touch pattern)
	upStreak      int
	lastScrollTop float64
	haveScrollTop bool

	// delay
	delayTimer *time.Timer
	cancelled  bool
}

// Run consumes page events until ctx is done or the channel closes.
// It blocks; callers start it on its own goroutine.
func (e *Engine) Run(ctx context.Context, events <-chan PageEvent) {
	visible := true
	delayFired := make(chan string, len(e.popups))

	var delays, scrolls, exits []*armedPopup
	for _, p := range e.popups {
		if e.sessions != nil && e.sessions.Shown(p.ID) {
			continue
		}
		a := &armedPopup{id: p.ID}
		switch t := p.Trigger.(type) {
		case Delay:
			id := p.ID
			a.delayTimer = time.AfterFunc(t.Duration(), func() {
				select {
				case delayFired <- id:
				case <-ctx.Done():
				}
			})
			delays = append(delays, a)
		case Scroll:
			a.scrollTarget = float64(t.Percent)
			scrolls = append(scrolls, a)
		case Exit:
			exits = append(exits, a)
		}
	}

	defer func() {
		for _, a := range delays {
			if a.delayTimer != nil {
				a.delayTimer.Stop()
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case id := <-delayFired:
			// Fire only if the page is still visible when the timer
			// lands; a hidden page already cancelled the timer, this
			// covers the window between the two.
			if !visible {
				continue
			}
			for _, a := range delays {
				if a.id == id && !a.cancelled {
					e.fireOnce(a)
				}
			}

		case ev, ok := <-events:
			if !ok {
				return
			}
			now := ev.Time
			if now.IsZero() {
				now = time.Now()
			}

			switch ev.Kind {
			case EventVisibilityHidden:
				visible = false
				// Cancelled, not paused: the popup stays suppressed
				// even if the page becomes visible again.
				for _, a := range delays {
					if a.delayTimer != nil {
						a.delayTimer.Stop()
					}
					a.cancelled = true
				}

			case EventVisibilityVisible:
				visible = true

			case EventScroll:
				for _, a := range scrolls {
					e.evalScroll(a, ev, now)
				}
				for _, a := range exits {
					e.evalTouchExit(a, ev)
				}

			case EventMouseLeave:
				if ev.MouseY <= exitMouseThreshold {
					for _, a := range exits {
						e.fireOnce(a)
					}
				}
			}
		}
	}
}

func (e *Engine) evalScroll(a *armedPopup, ev PageEvent, now time.Time) {
	if a.fired {
		return
	}
	if !a.lastEval.IsZero() && now.Sub(a.lastEval) < scrollThrottle {
		return
	}
	a.lastEval = now

	if ev.ScrollPercent() >= a.scrollTarget {
		e.fireOnce(a)
	}
}

// evalTouchExit watches for the touch stand-in for exit intent: three
// consecutive upward scrolls while near the top of the page.
func (e *Engine) evalTouchExit(a *armedPopup, ev PageEvent) {
	if a.fired {
		return
	}

	if !a.haveScrollTop {
		a.lastScrollTop = ev.ScrollTop
		a.haveScrollTop = true
		return
	}

	movedUp := ev.ScrollTop < a.lastScrollTop
	a.lastScrollTop = ev.ScrollTop

	if movedUp && ev.ScrollTop < exitNearTopPx {
		a.upStreak++
		if a.upStreak >= exitUpStreak {
			e.fireOnce(a)
		}
		return
	}
	a.upStreak = 0
}

func (e *Engine) fireOnce(a *armedPopup) {
	if a.fired {
		return
	}
	a.fired = true
	e.fire(a.id)
}
