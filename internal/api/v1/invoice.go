package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/warebill/warebill/internal/api/dto"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/logger"
	"github.com/warebill/warebill/internal/service"
	"github.com/warebill/warebill/internal/types"
)

type InvoiceHandler struct {
	service service.InvoiceService
	log     *logger.Logger
}

func NewInvoiceHandler(service service.InvoiceService, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{service: service, log: log}
}

// @Summary Preview invoice
// @Description Compute the window's lines and totals without persisting anything
// @Tags Invoices
// @Accept json
// @Produce json
// @Param period body dto.PreviewInvoiceRequest true "Billing Period Request"
// @Success 200 {object} dto.InvoicePreviewResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 422 {object} middleware.ErrorResponse
// @Router /invoices/preview [post]
func (h *InvoiceHandler) PreviewInvoice(c *gin.Context) {
	var req dto.PreviewInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.PreviewInvoice(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Generate invoice
// @Description Compute and persist a draft invoice for the billing window
// @Tags Invoices
// @Accept json
// @Produce json
// @Param period body dto.GenerateInvoiceRequest true "Billing Period Request"
// @Success 201 {object} dto.InvoiceResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 409 {object} middleware.ErrorResponse
// @Failure 422 {object} middleware.ErrorResponse
// @Router /invoices/generate [post]
func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	var req dto.GenerateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GenerateInvoice(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to generate invoice", "error", err, "project_id", req.ProjectID)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get invoice
// @Description Get an invoice with its lines
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /invoices/{id} [get]
func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("invoice ID is required").
			WithHint("Please provide a valid invoice ID").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetInvoice(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List invoices
// @Description List invoices with the specified filter
// @Tags Invoices
// @Produce json
// @Param filter query types.InvoiceFilter true "Filter"
// @Success 200 {object} dto.ListInvoicesResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /invoices [get]
func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	var filter types.InvoiceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListInvoices(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Approve invoice
// @Description Move a draft invoice to approved
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /invoices/{id}/approve [patch]
func (h *InvoiceHandler) ApproveInvoice(c *gin.Context) {
	h.transition(c, h.service.ApproveInvoice)
}

// @Summary Mark invoice sent
// @Description Move an approved invoice to sent
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /invoices/{id}/send [patch]
func (h *InvoiceHandler) MarkInvoiceSent(c *gin.Context) {
	h.transition(c, h.service.MarkInvoiceSent)
}

// @Summary Mark invoice paid
// @Description Move a sent invoice to paid
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /invoices/{id}/pay [patch]
func (h *InvoiceHandler) MarkInvoicePaid(c *gin.Context) {
	h.transition(c, h.service.MarkInvoicePaid)
}

// @Summary Cancel invoice
// @Description Cancel a pre-paid invoice, releasing its records for future billing
// @Tags Invoices
// @Produce json
// @Param id path string true "Invoice ID"
// @Success 200 {object} dto.InvoiceResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /invoices/{id}/cancel [patch]
func (h *InvoiceHandler) CancelInvoice(c *gin.Context) {
	h.transition(c, h.service.CancelInvoice)
}

func (h *InvoiceHandler) transition(c *gin.Context, op func(ctx context.Context, id string) (*dto.InvoiceResponse, error)) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("invoice ID is required").
			WithHint("Please provide a valid invoice ID").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := op(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
