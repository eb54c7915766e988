package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KevinKickass/FlasherCore/internal/scaffold"
	"github.com/KevinKickass/FlasherCore/internal/types"
)

type RenameNodeRequest struct {
	Folder string `json:"folder" binding:"required"`
	From   string `json:"from" binding:"required"`
	To     string `json:"to" binding:"required"`
}

// GET /api/v1/nodes?folder=...
func (s *Server) listNodes(c *gin.Context) {
	folder := c.Query("folder")
	if folder == "" {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeNodesBadRequest, "folder query parameter is required", nil))
		return
	}

	nodes, err := s.lm.Scaffolder().ListNodes(folder)
	if err != nil {
		s.nodeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"folder": folder,
		"nodes":  nodes,
		"count":  len(nodes),
	})
}

// POST /api/v1/nodes
func (s *Server) createNode(c *gin.Context) {
	var req types.NodeTarget
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeNodesBadRequest, "Invalid request body", err.Error()))
		return
	}

	layout, err := s.lm.Scaffolder().CreateNode(req)
	if err != nil {
		s.nodeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, layout)
}

// POST /api/v1/nodes/rename
func (s *Server) renameNode(c *gin.Context) {
	var req RenameNodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeNodesBadRequest, "Invalid request body", err.Error()))
		return
	}

	layout, err := s.lm.Scaffolder().RenameNode(req.Folder, req.From, req.To)
	if err != nil {
		s.nodeError(c, err)
		return
	}
	c.JSON(http.StatusOK, layout)
}

func (s *Server) nodeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, scaffold.ErrNodeNotFound):
		c.JSON(http.StatusNotFound, types.NewErrorResponse(types.CodeNodesNotFound, err.Error(), nil))
	case errors.Is(err, scaffold.ErrNodeExists):
		c.JSON(http.StatusConflict, types.NewErrorResponse(types.CodeNodesConflict, err.Error(), nil))
	default:
		status, code := scaffoldStatus(err, types.CodeNodesBadRequest, types.CodeNodesFailed)
		c.JSON(status, types.NewErrorResponse(code, err.Error(), nil))
	}
}
