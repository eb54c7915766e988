package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/KevinKickass/FlasherCore/internal/storage"
	"github.com/KevinKickass/FlasherCore/internal/types"
)

const defaultHistoryLimit = 50

// GET /api/v1/deployments?limit=N
func (s *Server) listDeployments(c *gin.Context) {
	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeHistoryBadRequest, "limit must be a positive integer", raw))
			return
		}
		limit = n
	}

	records, err := s.lm.History().List(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.CodeHistoryFailed, "failed to list deployments", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"deployments": records,
		"count":       len(records),
	})
}

// GET /api/v1/deployments/:id
func (s *Server) getDeployment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeHistoryBadRequest, "invalid deployment id", nil))
		return
	}

	rec, err := s.lm.History().Get(c.Request.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.CodeHistoryNotFound, "deployment not found", nil))
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.CodeHistoryFailed, "failed to load deployment", err.Error()))
		return
	}
	c.JSON(http.StatusOK, rec)
}
