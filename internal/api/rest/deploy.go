package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/KevinKickass/FlasherCore/internal/pipeline"
	"github.com/KevinKickass/FlasherCore/internal/scaffold"
	"github.com/KevinKickass/FlasherCore/internal/types"
)

// POST /api/v1/validate
func (s *Server) validate(c *gin.Context) {
	var req types.DeployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeDeployBadRequest, "Invalid request body", err.Error()))
		return
	}

	errs := s.lm.Pipeline().Validate(&req)
	c.JSON(http.StatusOK, gin.H{
		"valid":  len(errs) == 0,
		"errors": errs,
	})
}

// POST /api/v1/preview
func (s *Server) preview(c *gin.Context) {
	var req types.DeployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeDeployBadRequest, "Invalid request body", err.Error()))
		return
	}

	preview, err := s.lm.Pipeline().Preview(&req)
	if err != nil {
		status, code := scaffoldStatus(err, types.CodeDeployBadRequest, types.CodeDeployFailed)
		c.JSON(status, types.NewErrorResponse(code, "Preview failed", err.Error()))
		return
	}
	c.JSON(http.StatusOK, preview)
}

// POST /api/v1/deploy
func (s *Server) deploy(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeDeployBadRequest, "Failed to read request body", err.Error()))
		return
	}
	if err := s.schemas.ValidateDeploy(body); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeDeployBadRequest, "Invalid deploy request", err.Error()))
		return
	}

	var req types.DeployRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeDeployBadRequest, "Invalid deploy request", err.Error()))
		return
	}

	res := s.lm.Pipeline().Deploy(c.Request.Context(), &req)
	respondResult(c, res)
}

// POST /api/v1/init
func (s *Server) initNode(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeDeployBadRequest, "Failed to read request body", err.Error()))
		return
	}
	if err := s.schemas.ValidateInit(body); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeDeployBadRequest, "Invalid init request", err.Error()))
		return
	}

	var req types.InitRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeDeployBadRequest, "Invalid init request", err.Error()))
		return
	}

	res := s.lm.Pipeline().Init(c.Request.Context(), &req)
	respondResult(c, res)
}

// respondResult maps a pipeline result to an HTTP status. Failed results
// are returned as error details so callers see the stage and output.
func respondResult(c *gin.Context, res *types.Result) {
	if res.Success {
		c.JSON(http.StatusOK, res)
		return
	}

	switch res.Stage {
	case pipeline.StageValidate:
		c.JSON(http.StatusUnprocessableEntity, types.NewErrorResponse(types.CodeDeployUnprocessed, res.Error, res))
	case pipeline.StageTransport, string(scaffold.StageResolve):
		c.JSON(http.StatusBadRequest, types.NewErrorResponse(types.CodeDeployBadRequest, res.Error, res))
	default:
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse(types.CodeDeployFailed, res.Error, res))
	}
}

// scaffoldStatus picks the status for a scaffold error: bad names and
// paths are client errors, everything else is a server error.
func scaffoldStatus(err error, badRequest, failed string) (int, string) {
	var scErr *scaffold.ScaffoldError
	if errors.As(err, &scErr) && scErr.Stage == scaffold.StageResolve {
		return http.StatusBadRequest, badRequest
	}
	return http.StatusInternalServerError, failed
}
