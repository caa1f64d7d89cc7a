// internal/handlers/ingestion.go
package handlers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/paydesk/commission-backend/internal/models"
	"github.com/paydesk/commission-backend/internal/services"
	"github.com/paydesk/commission-backend/internal/utils"
)

type IngestionHandler struct {
	ingestionService *services.IngestionService
	authService      *services.AuthService
	storageService   *services.StorageService
}

func NewIngestionHandler(
	ingestionService *services.IngestionService,
	authService *services.AuthService,
	storageService *services.StorageService,
) *IngestionHandler {
	return &IngestionHandler{
		ingestionService: ingestionService,
		authService:      authService,
		storageService:   storageService,
	}
}

// POST /ingestions
// The source file is saved to a temp path and archived in object storage,
// then processing continues in the background. The client gets 202 with the
// batch id to poll.
func (h *IngestionHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		utils.BadRequestResponse(c, "file is required", err.Error())
		return
	}
	defer file.Close()

	tempPath := filepath.Join(os.TempDir(), fmt.Sprintf("ingest_%s%s", uuid.New().String(), filepath.Ext(header.Filename)))
	out, err := os.Create(tempPath)
	if err != nil {
		utils.InternalErrorResponse(c, "could not store uploaded file")
		return
	}
	if _, err := out.ReadFrom(file); err != nil {
		out.Close()
		os.Remove(tempPath)
		utils.InternalErrorResponse(c, "could not store uploaded file")
		return
	}
	out.Close()

	// Archive the source file; the temp copy drives processing.
	sourceKey := ""
	if _, err := file.Seek(0, 0); err == nil {
		options := h.storageService.GetDefaultUploadOptions("ingestion_files")
		if result, err := h.storageService.UploadFile(file, header, options); err == nil {
			sourceKey = result.Key
		}
	}

	operator := h.currentOperator(c)

	batch, err := h.ingestionService.Enqueue(tempPath, sourceKey, operator)
	if err != nil {
		os.Remove(tempPath)
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.AcceptedResponse(c, gin.H{
		"ingestion": batch,
	})
}

// GET /ingestions/:id
func (h *IngestionHandler) GetBatch(c *gin.Context) {
	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ingestion ID", nil)
		return
	}

	batch, err := h.ingestionService.GetBatch(batchID)
	if err != nil {
		if services.IsValidationError(err) {
			utils.NotFoundResponse(c, "ingestion batch")
			return
		}
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{
		"ingestion": batch,
	})
}

func (h *IngestionHandler) currentOperator(c *gin.Context) *models.Operator {
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
