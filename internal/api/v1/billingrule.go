package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/warebill/warebill/internal/api/dto"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/logger"
	"github.com/warebill/warebill/internal/service"
	"github.com/warebill/warebill/internal/types"
)

type BillingRuleHandler struct {
	service service.BillingRuleService
	log     *logger.Logger
}

func NewBillingRuleHandler(service service.BillingRuleService, log *logger.Logger) *BillingRuleHandler {
	return &BillingRuleHandler{service: service, log: log}
}

// @Summary Create billing rule
// @Description Create a new billing rule for a project
// @Tags BillingRules
// @Accept json
// @Produce json
// @Param rule body dto.CreateBillingRuleRequest true "Billing Rule Request"
// @Success 201 {object} dto.BillingRuleResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Failure 500 {object} middleware.ErrorResponse
// @Router /project-billing-rules [post]
func (h *BillingRuleHandler) CreateBillingRule(c *gin.Context) {
	var req dto.CreateBillingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateBillingRule(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to create billing rule", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get billing rule
// @Description Get a billing rule by ID
// @Tags BillingRules
// @Produce json
// @Param id path string true "Billing Rule ID"
// @Success 200 {object} dto.BillingRuleResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /project-billing-rules/{id} [get]
func (h *BillingRuleHandler) GetBillingRule(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("billing rule ID is required").
			WithHint("Please provide a valid billing rule ID").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetBillingRule(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List billing rules
// @Description List billing rules with the specified filter
// @Tags BillingRules
// @Produce json
// @Param filter query types.BillingRuleFilter true "Filter"
// @Success 200 {object} dto.ListBillingRulesResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /project-billing-rules [get]
func (h *BillingRuleHandler) ListBillingRules(c *gin.Context) {
	var filter types.BillingRuleFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid filter parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListBillingRules(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Update billing rule
// @Description Update a billing rule; rule type and price source are immutable
// @Tags BillingRules
// @Accept json
// @Produce json
// @Param id path string true "Billing Rule ID"
// @Param rule body dto.UpdateBillingRuleRequest true "Billing Rule Request"
// @Success 200 {object} dto.BillingRuleResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /project-billing-rules/{id} [put]
func (h *BillingRuleHandler) UpdateBillingRule(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("billing rule ID is required").
			WithHint("Please provide a valid billing rule ID").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.UpdateBillingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.UpdateBillingRule(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Delete billing rule
// @Description Soft-delete a billing rule
// @Tags BillingRules
// @Produce json
// @Param id path string true "Billing Rule ID"
// @Success 204
// @Failure 404 {object} middleware.ErrorResponse
// @Router /project-billing-rules/{id} [delete]
func (h *BillingRuleHandler) DeleteBillingRule(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("billing rule ID is required").
			WithHint("Please provide a valid billing rule ID").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.DeleteBillingRule(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
