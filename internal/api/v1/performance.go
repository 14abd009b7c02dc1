package v1

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/warebill/warebill/internal/api/dto"
	ierr "github.com/warebill/warebill/internal/errors"
	"github.com/warebill/warebill/internal/logger"
	"github.com/warebill/warebill/internal/service"
	"github.com/warebill/warebill/internal/types"
)

type PerformanceHandler struct {
	service service.PerformanceService
	log     *logger.Logger
}

func NewPerformanceHandler(service service.PerformanceService, log *logger.Logger) *PerformanceHandler {
	return &PerformanceHandler{service: service, log: log}
}

// @Summary Ingest performance records
// @Description Import delivery and labor records for a project
// @Tags Performance
// @Accept json
// @Produce json
// @Param records body dto.IngestPerformanceRequest true "Records Request"
// @Success 201 {object} dto.IngestPerformanceResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /performance [post]
func (h *PerformanceHandler) IngestRecords(c *gin.Context) {
	var req dto.IngestPerformanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.IngestRecords(c.Request.Context(), req)
	if err != nil {
		h.log.Errorw("failed to ingest performance records", "error", err)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// @Summary List performance records
// @Description List a project's records in a closed date window
// @Tags Performance
// @Produce json
// @Param project_id query string true "Project ID"
// @Param period_start query string true "Period start (YYYY-MM-DD)"
// @Param period_end query string true "Period end (YYYY-MM-DD)"
// @Success 200 {object} dto.ListPerformanceRecordsResponse
// @Failure 400 {object} middleware.ErrorResponse
// @Router /performance [get]
func (h *PerformanceHandler) ListRecords(c *gin.Context) {
	filter, err := performanceFilterFromQuery(c)
	if err != nil {
		c.Error(err)
		return
	}

	resp, err := h.service.ListRecords(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func performanceFilterFromQuery(c *gin.Context) (*types.PerformanceFilter, error) {
	start, err := time.Parse("2006-01-02", c.Query("period_start"))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("period_start must be formatted as YYYY-MM-DD").
			Mark(ierr.ErrValidation)
	}
	end, err := time.Parse("2006-01-02", c.Query("period_end"))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("period_end must be formatted as YYYY-MM-DD").
			Mark(ierr.ErrValidation)
	}

	return &types.PerformanceFilter{
		ProjectID:   c.Query("project_id"),
		PeriodStart: start.UTC(),
		PeriodEnd:   end.UTC(),
	}, nil
}
