// internal/handlers/settlement.go
package handlers

import (
	"errors"
	"mime/multipart"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/paydesk/commission-backend/internal/models"
	"github.com/paydesk/commission-backend/internal/services"
	"github.com/paydesk/commission-backend/internal/utils"
)

type SettlementHandler struct {
	settlementService *services.SettlementService
	reversalService   *services.ReversalService
	commissionService *services.CommissionService
	authService       *services.AuthService
	storageService    *services.StorageService
}

func NewSettlementHandler(
	settlementService *services.SettlementService,
	reversalService *services.ReversalService,
	commissionService *services.CommissionService,
	authService *services.AuthService,
	storageService *services.StorageService,
) *SettlementHandler {
	return &SettlementHandler{
		settlementService: settlementService,
		reversalService:   reversalService,
		commissionService: commissionService,
		authService:       authService,
		storageService:    storageService,
	}
}

// POST /settlements
func (h *SettlementHandler) Settle(c *gin.Context) {
	var req services.SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	operator := h.currentOperator(c)

	batch, err := h.settlementService.Settle(&req, operator)
	if err != nil {
		if services.IsValidationError(err) || errors.Is(err, services.ErrNoValidCommissions) {
			utils.BadRequestResponse(c, err.Error(), nil)
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.CreatedResponse(c, gin.H{
		"batch": batch,
	})
}

// POST /settlements/attachments
func (h *SettlementHandler) UploadAttachment(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "file is required", err.Error())
		return
	}
	defer func(f multipart.File) { f.Close() }(file)

	options := h.storageService.GetDefaultUploadOptions("payment_proofs")
	result, err := h.storageService.UploadFile(file, header, options)
	if err != nil {
		if services.IsValidationError(err) {
			utils.BadRequestResponse(c, err.Error(), nil)
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.CreatedResponse(c, result)
}

// GET /settlements
func (h *SettlementHandler) ListBatches(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	batches, total, err := h.commissionService.ListBatches(params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(batches, total, params))
}

// GET /settlements/:id
func (h *SettlementHandler) GetBatch(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid batch ID", nil)
		return
	}

	batch, err := h.commissionService.GetBatch(batchID)
	if err != nil {
		if errors.Is(err, services.ErrBatchNotFound) {
			utils.NotFoundResponse(c, "payment batch")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"batch": batch,
	})
}

// PUT /settlements/:id
func (h *SettlementHandler) UpdateBatch(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid batch ID", nil)
		return
	}

	var req services.UpdateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	batch, err := h.reversalService.UpdateBatch(batchID, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBatchNotFound):
			utils.NotFoundResponse(c, "payment batch")
		case services.IsValidationError(err):
			utils.BadRequestResponse(c, err.Error(), nil)
		default:
			utils.InternalErrorResponse(c, err.Error())
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"batch": batch,
	})
}

// DELETE /settlements/:id
func (h *SettlementHandler) Reverse(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid batch ID", nil)
		return
	}

	if err := h.reversalService.Reverse(batchID); err != nil {
		if errors.Is(err, services.ErrBatchNotFound) {
			utils.NotFoundResponse(c, "payment batch")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": "payment batch reversed",
	})
}

func (h *SettlementHandler) currentOperator(c *gin.Context) *models.Operator {
	operatorIDStr, exists := utils.GetOperatorIDFromContext(c)
	if !exists {
		return nil
	}
	operatorID, err := uuid.Parse(operatorIDStr)
	if err != nil {
		return nil
	}
	operator, err := h.authService.GetOperatorByID(operatorID)
	if err != nil {
		return nil
	}
	return operator
}
