// internal/handlers/commission.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/paydesk/commission-backend/internal/services"
	"github.com/paydesk/commission-backend/internal/utils"
)

type CommissionHandler struct {
	commissionService *services.CommissionService
}

func NewCommissionHandler(commissionService *services.CommissionService) *CommissionHandler {
	return &CommissionHandler{
		commissionService: commissionService,
	}
}

// GET /commissions
func (h *CommissionHandler) ListByPOS(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	summaries, total, err := h.commissionService.ListByPOS(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(summaries, total, params))
}

// GET /commissions/pos/:posId
func (h *CommissionHandler) ListForPOS(c *gin.Context) {
	posID := c.Param("posId")
	if posID == "" {
		utils.BadRequestResponse(c, "POS id is required", nil)
		return
	}

	commissions, err := h.commissionService.ListForPOS(posID)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"pos_id":      posID,
		"commissions": commissions,
	})
}

// GET /commissions/totals
func (h *CommissionHandler) Totals(c *gin.Context) {
	totals, err := h.commissionService.Totals(c.Query("route"))
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, totals)
}

// GET /commissions/routes
func (h *CommissionHandler) ListRoutes(c *gin.Context) {
	routes, err := h.commissionService.ListRoutes()
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"routes": routes,
	})
}
