package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/agridata/mygap-api/models"
	"github.com/agridata/mygap-api/scraper"
	"github.com/agridata/mygap-api/services"
)

// AdminHandler exposes operational actions.
type AdminHandler struct {
	svc *services.DataService
}

func NewAdminHandler(svc *services.DataService) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// ForceRefresh handles POST /api/admin/refresh/:category. "all" refreshes
// every supported category, stopping at the first failure.
func (h *AdminHandler) ForceRefresh(c *gin.Context) {
	category := strings.ToLower(c.Param("category"))

	categories := []string{category}
	if category == "all" {
		categories = scraper.Categories()
	}

	refreshed := map[string]int{}
	for _, cat := range categories {
		result, err := h.svc.GetRecords(c.Request.Context(), cat, true)
		if err != nil {
			respondError(c, err)
			return
		}
		if result.Stale {
			c.JSON(http.StatusBadGateway, models.ErrorResponse{
				Error: fmt.Sprintf("refresh of %s fell back to the previous snapshot", cat),
				Kind:  "source_unavailable",
			})
			return
		}
		refreshed[cat] = len(result.Records)
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "refresh completed",
		"refreshed": refreshed,
	})
}
