package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/warebill/warebill/internal/api/dto"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/logger"
	"github.com/warebill/warebill/internal/service"
)

type PriceListHandler struct {
	service service.PriceService
	log     *logger.Logger
}

func NewPriceListHandler(service service.PriceService, log *logger.Logger) *PriceListHandler {
	return &PriceListHandler{service: service, log: log}
}

// @Summary Create price list entry
// @Description Create a price list entry keyed by (project, code)
// @Tags PriceLists
// @Accept json
// @Produce json
// @Param entry body dto.CreatePriceListEntryRequest true "Price List Entry Request"
// @Success 201 {object} dto.PriceListEntryResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /price-lists [post]
func (h *PriceListHandler) CreateEntry(c *gin.Context) {
	var req dto.CreatePriceListEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.CreatePriceListEntry(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to create price list entry", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary List price list entries
// @Description List a project's price list entries
// @Tags PriceLists
// @Produce json
// @Param project_id query string true "Project ID"
// @Success 200 {object} dto.ListPriceListEntriesResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /price-lists [get]
func (h *PriceListHandler) ListEntries(c *gin.Context) {
	projectID := c.Query("project_id")
	if projectID == "" {
		c.Error(ierr.NewError("project_id is required").
			WithHint("Please provide a project").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListPriceListEntries(c.Request.Context(), projectID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
