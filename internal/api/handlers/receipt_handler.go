package handlers

import (
	"receiptly/internal/dto"
	"receiptly/internal/extraction"
	"receiptly/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ReceiptHandler struct {
	receiptService *service.ReceiptService
	logger         *zap.Logger
}

func NewReceiptHandler(receiptService *service.ReceiptService, logger *zap.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		receiptService: receiptService,
		logger:         logger,
	}
}

// UploadReceipt godoc
// @Summary Upload a receipt image
// @Description Upload a receipt photo, scan or PDF; processing is a separate call
// @Tags receipts
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Receipt image (PNG, JPEG, GIF, HEIC or PDF)"
// @Security Bearer
// @Success 201 {object} dto.ReceiptResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /api/v1/receipts/upload [post]
func (h *ReceiptHandler) UploadReceipt(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to open file",
		})
	}
	defer src.Close()

	receipt, err := h.receiptService.Upload(c.Context(), userID, src, file.Filename, file.Header.Get("Content-Type"))
	if err != nil {
		h.logger.Error("Failed to upload receipt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to upload receipt",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(receipt)
}

// ProcessReceipt godoc
// @Summary Process a receipt
// @Description Run extraction on an uploaded receipt: store, total, date, line items and categories
// @Tags receipts
// @Produce json
// @Param id path string true "Receipt ID"
// @Security Bearer
// @Success 200 {object} dto.ProcessReceiptResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 502 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /api/v1/receipts/{id}/process [post]
func (h *ReceiptHandler) ProcessReceipt(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	receiptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid receipt ID",
		})
	}

	result, err := h.receiptService.Process(c.Context(), userID, receiptID)
	if err != nil {
		if err == service.ErrReceiptNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Receipt not found",
			})
		}
		h.logger.Error("Failed to process receipt",
			zap.String("receipt_id", receiptID.String()),
			zap.Error(err),
		)
		status, message := extractionErrorStatus(err)
		return c.Status(status).JSON(fiber.Map{
			"error": message,
		})
	}

	return c.JSON(result)
}

// ReconcileReceipt godoc
// @Summary Reconcile a receipt's total
// @Description Remove extraction artifacts so the item sum matches the declared total
// @Tags receipts
// @Produce json
// @Param id path string true "Receipt ID"
// @Security Bearer
// @Success 200 {object} dto.ReconcileReceiptResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/receipts/{id}/reconcile [post]
func (h *ReceiptHandler) ReconcileReceipt(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	receiptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid receipt ID",
		})
	}

	result, err := h.receiptService.Reconcile(c.Context(), userID, receiptID)
	if err != nil {
		switch err {
		case service.ErrReceiptNotFound:
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Receipt not found",
			})
		case service.ErrReceiptNotProcessed:
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Receipt has not been processed yet",
			})
		}
		h.logger.Error("Failed to reconcile receipt",
			zap.String("receipt_id", receiptID.String()),
			zap.Error(err),
		)
		status, message := extractionErrorStatus(err)
		return c.Status(status).JSON(fiber.Map{
			"error": message,
		})
	}

	return c.JSON(result)
}

// GetReceipt godoc
// @Summary Get a receipt
// @Description Get a receipt with its line items
// @Tags receipts
// @Produce json
// @Param id path string true "Receipt ID"
// @Security Bearer
// @Success 200 {object} dto.ReceiptResponse
// @Failure 404 {object} map[string]string
// @Router /api/v1/receipts/{id} [get]
func (h *ReceiptHandler) GetReceipt(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	receiptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid receipt ID",
		})
	}

	receipt, err := h.receiptService.Get(c.Context(), userID, receiptID)
	if err != nil {
		if err == service.ErrReceiptNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Receipt not found",
			})
		}
		h.logger.Error("Failed to get receipt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get receipt",
		})
	}

	return c.JSON(receipt)
}

// ListReceipts godoc
// @Summary List receipts
// @Description Get the user's receipts, newest first
// @Tags receipts
// @Produce json
// @Param limit query int false "Limit" default(20)
// @Param offset query int false "Offset" default(0)
// @Security Bearer
// @Success 200 {array} dto.ReceiptResponse
// @Failure 401 {object} map[string]string
// @Router /api/v1/receipts [get]
func (h *ReceiptHandler) ListReceipts(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	receipts, err := h.receiptService.List(c.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list receipts", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list receipts",
		})
	}

	return c.JSON(receipts)
}

// UpdateReceipt godoc
// @Summary Update a receipt
// @Description Correct the store name, total, currency or purchase date
// @Tags receipts
// @Accept json
// @Produce json
// @Param id path string true "Receipt ID"
// @Param request body dto.UpdateReceiptRequest true "Fields to update"
// @Security Bearer
// @Success 200 {object} dto.ReceiptResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/receipts/{id} [put]
func (h *ReceiptHandler) UpdateReceipt(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	receiptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid receipt ID",
		})
	}

	var req dto.UpdateReceiptRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	receipt, err := h.receiptService.Update(c.Context(), userID, receiptID, &req)
	if err != nil {
		if err == service.ErrReceiptNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Receipt not found",
			})
		}
		h.logger.Error("Failed to update receipt", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to update receipt",
		})
	}

	return c.JSON(receipt)
}

// DeleteReceipt godoc
// @Summary Delete a receipt
// @Description Delete a receipt, its items and its stored image
// @Tags receipts
// @Produce json
// @Param id path string true "Receipt ID"
// @Security Bearer
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/receipts/{id} [delete]
func (h *ReceiptHandler) DeleteReceipt(c *fiber.Ctx) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	receiptID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid receipt ID",
		})
	}

	if err := h.receiptService.Delete(c.Context(), userID, receiptID); err != nil {
		if err == service.ErrReceiptNotFound {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Receipt not found",
			})
		}
		h.logger.Error("Failed to delete receipt", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete receipt",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// extractionErrorStatus maps pipeline error kinds onto HTTP statuses:
// bad input is the client's fault, transient model trouble is retryable,
// an unusable model response is a bad gateway.
func extractionErrorStatus(err error) (int, string) {
	switch extraction.KindOf(err) {
	case extraction.KindInvalidInput:
		return fiber.StatusBadRequest, "Invalid receipt image"
	case extraction.KindTransientFailure:
		return fiber.StatusServiceUnavailable, "Extraction service temporarily unavailable, retry later"
	case extraction.KindValidationFailure:
		return fiber.StatusBadGateway, "Extraction service returned an unusable response"
	default:
		return fiber.StatusInternalServerError, "Failed to process receipt"
	}
}

func getUserID(c *fiber.Ctx) (uuid.UUID, error) {
	userIDStr, ok := c.Locals("userID").(string)
	if !ok {
		return uuid.Nil, fiber.ErrUnauthorized
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, err
	}

	return userID, nil
}
