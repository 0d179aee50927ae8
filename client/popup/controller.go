// Package popup drives one popup instance through its lifecycle:
// show → (submit | close) → teardown. The DOM sits behind the Surface
// interface; this controller owns the state and the event contract.
package popup

import (
	"sync"
	"time"

	"popcapture/api/models"
	"popcapture/api/utils"
)

// Surface is what the controller needs from the rendered overlay.
// Show is expected to return once the entrance animation has completed.
type Surface interface {
	Show(cfg models.PopupConfig)
	FocusEmail()
	ShowError(message string)
	SetSubmitting(submitting bool)
	ShowSuccess(discountCode string)
	Teardown()
}

// Reporter is the slice of the event reporter the controller uses.
type Reporter interface {
	Report(popupID, event string)
	ReportConversion(popupID, email string)
}

// Sessions records that this popup has been displayed.
type Sessions interface {
	MarkShown(popupID string)
}

const successDismissDelay = 3 * time.Second

type state int

const (
	stateIdle state = iota
	stateShown
	stateConverted
	stateClosed
)

// Controller enforces the terminal-event contract: exactly one of
// {conversion, close} per popup instance. A popup closed without
// submitting emits close but never conversion; a conversion never also
// emits close.
type Controller struct {
	cfg      models.PopupConfig
	surface  Surface
	reporter Reporter
	sessions Sessions

	// DismissDelay overrides the success panel auto-dismiss, for tests.
	DismissDelay time.Duration

	mu    sync.Mutex
	state state
	timer *time.Timer
}

func NewController(cfg models.PopupConfig, surface Surface, reporter Reporter, sessions Sessions) *Controller {
	return &Controller{
		cfg:          cfg,
		surface:      surface,
		reporter:     reporter,
		sessions:     sessions,
		DismissDelay: successDismissDelay,
	}
}

// Show surfaces the popup: records the view, marks the popup shown for
// the session, and moves focus to the email field.
func (c *Controller) Show() {
	c.mu.Lock()
	if c.state != stateIdle {
		c.mu.Unlock()
		return
	}
	c.state = stateShown
	c.mu.Unlock()

	c.reporter.Report(c.cfg.ID, models.EventView)
	c.sessions.MarkShown(c.cfg.ID)
	c.surface.Show(c.cfg)
	c.surface.FocusEmail()
}

// Submit handles the form submission. Invalid input surfaces an inline
// error and records nothing; valid input reports the conversion and
// swaps in the success panel, which auto-dismisses.
func (c *Controller) Submit(email string) {
	c.mu.Lock()
	if c.state != stateShown {
		c.mu.Unlock()
		return
	}
	if email == "" || !utils.IsValidEmail(email) {
		c.mu.Unlock()
		c.surface.ShowError("Please enter a valid email address")
		return
	}
	c.state = stateConverted
	c.mu.Unlock()

	c.surface.SetSubmitting(true)
	c.reporter.ReportConversion(c.cfg.ID, email)
	c.surface.ShowSuccess(c.cfg.DiscountCode)

	c.mu.Lock()
	c.timer = time.AfterFunc(c.DismissDelay, c.surface.Teardown)
	c.mu.Unlock()
}

// Close handles the explicit close control, a backdrop click or the
// Escape key. After a conversion it is a no-op.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.state != stateShown {
		c.mu.Unlock()
		return
	}
	c.state = stateClosed
	c.mu.Unlock()

	c.reporter.Report(c.cfg.ID, models.EventClose)
	c.surface.Teardown()
}
