package models

import "time"

// Trigger kinds a popup can be configured with.
const (
	TriggerDelay  = "delay"
	TriggerScroll = "scroll"
	TriggerExit   = "exit"
)

// Popup is the merchant-configured popup row. Rows are created and edited
// by the admin app; this service reads them and bumps the counters.
type Popup struct {
	ID           string    `json:"id"`
	Shop         string    `json:"shop"`
	TriggerType  string    `json:"triggerType"`
	TriggerValue int       `json:"triggerValue"`
	Heading      string    `json:"heading"`
	Description  string    `json:"description,omitempty"`
	ButtonText   string    `json:"buttonText"`
	DiscountCode string    `json:"discountCode,omitempty"`
	IsActive     bool      `json:"isActive"`
	Views        int64     `json:"views"`
	Conversions  int64     `json:"conversions"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// PopupConfig is the storefront-facing projection of a Popup, served by
// the config endpoint. Counters and shop are deliberately absent.
type PopupConfig struct {
	ID           string `json:"id"`
	TriggerType  string `json:"triggerType"`
	TriggerValue int    `json:"triggerValue"`
	Heading      string `json:"heading"`
	Description  string `json:"description,omitempty"`
	ButtonText   string `json:"buttonText"`
	DiscountCode string `json:"discountCode,omitempty"`
}

// Config returns the storefront projection of p.
func (p *Popup) Config() PopupConfig {
	return PopupConfig{
		ID:           p.ID,
		TriggerType:  p.TriggerType,
		TriggerValue: p.TriggerValue,
		Heading:      p.Heading,
		Description:  p.Description,
		ButtonText:   p.ButtonText,
		DiscountCode: p.DiscountCode,
	}
}
