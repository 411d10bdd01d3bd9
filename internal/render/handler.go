package render

import (
	"errors"
	"net/http"

	"github.com/aevon-lab/collate/internal/aggregation"
	httperr "github.com/aevon-lab/collate/internal/core/errors"
	"github.com/aevon-lab/collate/internal/core/storage"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all plan API routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/plans", s.HandleListPlans)
	r.GET("/v1/plans/:name/sql", s.HandleRenderPlan)
	r.POST("/v1/plans/:name/run", s.HandleRunPlan)
}

// HandleListPlans handles GET /v1/plans
func (s *Service) HandleListPlans(c *gin.Context) {
	resp, err := s.ListPlans(c.Request.Context())
	if err != nil {
		writeError(c, err, "Failed to list plans")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleRenderPlan handles GET /v1/plans/:name/sql
func (s *Service) HandleRenderPlan(c *gin.Context) {
	resp, err := s.RenderPlan(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err, "Failed to render plan")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleRunPlan handles POST /v1/plans/:name/run
func (s *Service) HandleRunPlan(c *gin.Context) {
	resp, err := s.RunPlan(c.Request.Context(), c.Param("name"))
	if err != nil {
		writeError(c, err, "Failed to run plan")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, aggregation.ErrPlanNotFound):
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpPlanNotFoundError,
			Message:   "Unknown plan",
			Details:   err.Error(),
		})
	case errors.Is(err, ErrExecutionDisabled):
		c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
			ErrorType: httperr.HttpExecutionDisabled,
			Message:   message,
			Details:   err.Error(),
		})
	case errors.Is(err, storage.ErrStatementFailed):
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpStatementFailedError,
			Message:   message,
			Details:   err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
			ErrorType: httperr.HttpInternalError,
			Message:   message,
			Details:   err.Error(),
		})
	}
}
