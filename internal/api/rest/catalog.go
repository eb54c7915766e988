package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KevinKickass/FlasherCore/internal/types"
)

// GET /api/v1/catalog/devices
func (s *Server) listDeviceTypes(c *gin.Context) {
	devices := s.lm.Catalog().Devices()
	c.JSON(http.StatusOK, gin.H{
		"devices": devices,
		"count":   len(devices),
		"source":  s.lm.Catalog().Source(),
	})
}

// GET /api/v1/catalog/devices/:key
func (s *Server) getDeviceType(c *gin.Context) {
	dev, ok := s.lm.Catalog().Device(c.Param("key"))
	if !ok {
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.CodeCatalogNotFound, "device type not found", c.Param("key")))
		return
	}
	c.JSON(http.StatusOK, dev)
}

// GET /api/v1/catalog/filters
func (s *Server) listFilters(c *gin.Context) {
	filters := s.lm.Catalog().Filters()
	c.JSON(http.StatusOK, gin.H{
		"filters": filters,
		"count":   len(filters),
	})
}

// POST /api/v1/catalog/reload
func (s *Server) reloadCatalog(c *gin.Context) {
	if err := s.lm.Pipeline().ReloadCatalog(c.Request.Context()); err != nil {
		s.logger.Warn("Catalog reload failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.CodeCatalogFailed, "catalog reload failed", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"source": s.lm.Catalog().Source(),
		"count":  len(s.lm.Catalog().Devices()),
	})
}

// GET /api/v1/controllers
func (s *Server) listControllers(c *gin.Context) {
	profiles := s.lm.Controllers().List()
	c.JSON(http.StatusOK, gin.H{
		"controllers": profiles,
		"count":       len(profiles),
	})
}
