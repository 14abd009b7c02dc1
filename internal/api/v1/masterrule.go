package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/warebill/warebill/internal/api/dto"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/logger"
	"github.com/warebill/warebill/internal/service"
)

type MasterRuleHandler struct {
	service service.MasterRuleService
	log     *logger.Logger
}

func NewMasterRuleHandler(service service.MasterRuleService, log *logger.Logger) *MasterRuleHandler {
	return &MasterRuleHandler{service: service, log: log}
}

// @Summary Create master billing rule
// @Description Create a master billing rule template; activating it deactivates any other active instance of the project
// @Tags MasterRules
// @Accept json
// @Produce json
// @Param rule body dto.CreateMasterRuleRequest true "Master Rule Request"
// @Success 201 {object} dto.MasterRuleResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /master-billing-rules [post]
func (h *MasterRuleHandler) CreateMasterRule(c *gin.Context) {
	var req dto.CreateMasterRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreateMasterRule(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to create master rule", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary Get master billing rule
// @Description Get a master billing rule by ID
// @Tags MasterRules
// @Produce json
// @Param id path string true "Master Rule ID"
// @Success 200 {object} dto.MasterRuleResponse
// @Failure 404 {object} middleware.ErrorResponse
// @Router /master-billing-rules/{id} [get]
func (h *MasterRuleHandler) GetMasterRule(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("master rule ID is required").
			WithHint("Please provide a valid master rule ID").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetMasterRule(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary List master billing rules
// @Description List a project's master billing rules
// @Tags MasterRules
// @Produce json
// @Param project_id query string true "Project ID"
// @Success 200 {object} dto.ListMasterRulesResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /master-billing-rules [get]
func (h *MasterRuleHandler) ListMasterRules(c *gin.Context) {
	projectID := c.Query("project_id")
	if projectID == "" {
		c.Error(ierr.NewError("project_id is required").
			WithHint("Please provide a project").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListMasterRules(c.Request.Context(), projectID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Update master billing rule
// @Description Update a master billing rule template
// @Tags MasterRules
// @Accept json
// @Produce json
// @Param id path string true "Master Rule ID"
// @Param rule body dto.UpdateMasterRuleRequest true "Master Rule Request"
// @Success 200 {object} dto.MasterRuleResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /master-billing-rules/{id} [put]
func (h *MasterRuleHandler) UpdateMasterRule(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("master rule ID is required").
			WithHint("Please provide a valid master rule ID").
			Mark(ierr.ErrValidation))
		return
	}

	var req dto.UpdateMasterRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.UpdateMasterRule(c.Request.Context(), id, req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Delete master billing rule
// @Description Soft-delete a master billing rule
// @Tags MasterRules
// @Produce json
// @Param id path string true "Master Rule ID"
// @Success 204
// @Failure 404 {object} middleware.ErrorResponse
// @Router /master-billing-rules/{id} [delete]
func (h *MasterRuleHandler) DeleteMasterRule(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("master rule ID is required").
			WithHint("Please provide a valid master rule ID").
			Mark(ierr.ErrValidation))
		return
	}

	if err := h.service.DeleteMasterRule(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.Status(http.StatusNoContent)
}
