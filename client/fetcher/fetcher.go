// Package fetcher retrieves a shop's active popup configuration. A page
// that cannot load config degrades to "no popups", so Fetch never
// returns an error.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"popcapture/api/client/retry"
	"popcapture/api/models"
)

type Fetcher struct {
	// ConfigURL is the full popup-config endpoint URL.
	ConfigURL string
	Client    *http.Client
	Policy    retry.Policy
}

func New(configURL string) *Fetcher {
	return &Fetcher{
		ConfigURL: configURL,
		Client:    &http.Client{Timeout: 10 * time.Second},
		Policy:    retry.Default,
	}
}

// Fetch returns the shop's active popups, or an empty slice when every
// attempt fails.
func (f *Fetcher) Fetch(ctx context.Context, shop string) []models.PopupConfig {
	reqURL := f.ConfigURL + "?shop=" + url.QueryEscape(shop)

	var configs []models.PopupConfig
	err := f.Policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}

		resp, err := f.Client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("config endpoint returned status %d", resp.StatusCode)
		}

		return json.NewDecoder(resp.Body).Decode(&configs)
	})
	if err != nil {
		log.Debugf("Popup config unavailable for shop %s: %v", shop, err)
		return []models.PopupConfig{}
	}

	if configs == nil {
		configs = []models.PopupConfig{}
	}
	return configs
}
