// internal/handlers/expiration.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/paydesk/commission-backend/internal/services"
	"github.com/paydesk/commission-backend/internal/utils"
)

type ExpirationHandler struct {
	expirationService *services.ExpirationService
}

func NewExpirationHandler(expirationService *services.ExpirationService) *ExpirationHandler {
	return &ExpirationHandler{
		expirationService: expirationService,
	}
}

// POST /expirations/run
// Manual trigger of the inactivity sweep. The reference month defaults to the
// current month; an explicit "month" (YYYY-MM) reruns a past cycle.
func (h *ExpirationHandler) RunInactivity(c *gin.Context) {
	var req struct {
		Month string `json:"month,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	referenceMonth := time.Now()
	if req.Month != "" {
		parsed, err := time.Parse("2006-01", req.Month)
		if err != nil {
			utils.BadRequestResponse(c, "invalid month, use YYYY-MM", nil)
			return
		}
		referenceMonth = parsed
	}

	result, err := h.expirationService.ExpireInactive(referenceMonth)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, result)
}
