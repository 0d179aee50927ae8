package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"popcapture/api/models"
	"popcapture/api/utils"
)

// PopupReader is the slice of the popup store the config endpoint needs.
type PopupReader interface {
	GetActivePopups(ctx context.Context, shop string) ([]models.Popup, error)
}

type ConfigHandlers struct {
	Popups PopupReader
}

func NewConfigHandlers(popups PopupReader) *ConfigHandlers {
	return &ConfigHandlers{Popups: popups}
}

// GetPopupConfig serves the storefront widget its active popup list.
// Responses are cacheable; the widget tolerates config up to 5 minutes
// stale.
func (h *ConfigHandlers) GetPopupConfig(c *gin.Context) {
	shop := c.Query("shop")
	if !utils.IsValidShopDomain(shop) {
		c.JSON(http.StatusBadRequest, models.NewAPIError(
			models.CodeValidationFailed, "shop query parameter is missing or not a valid domain", "shop"))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	popups, err := h.Popups.GetActivePopups(ctx, shop)
	if err != nil {
		log.Errorf("Error loading active popups for shop %s: %v", shop, err)
		c.JSON(http.StatusInternalServerError, models.NewAPIError(
			models.CodePersistenceFailed, "Failed to load popup configuration"))
		return
	}

	configs := make([]models.PopupConfig, 0, len(popups))
	for i := range popups {
		configs = append(configs, popups[i].Config())
	}

	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, configs)
}
