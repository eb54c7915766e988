package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KevinKickass/FlasherCore/internal/catalog"
	"github.com/KevinKickass/FlasherCore/internal/codegen"
	"github.com/KevinKickass/FlasherCore/internal/deploy"
	"github.com/KevinKickass/FlasherCore/internal/events"
	"github.com/KevinKickass/FlasherCore/internal/scaffold"
	"github.com/KevinKickass/FlasherCore/internal/storage"
	"github.com/KevinKickass/FlasherCore/internal/types"
	"github.com/KevinKickass/FlasherCore/internal/validation"
)

// Pipeline stages reported in results besides the scaffold stages.
const (
	StageValidate  = "validate"
	StageGenerate  = "generate"
	StageTransport = "transport"
	StageExecute   = "execute"
)

// Operations recorded in the history.
const (
	OperationDeploy = "deploy"
	OperationInit   = "init"
)

// Deps are the collaborators of a Pipeline. History and Events are
// optional.
type Deps struct {
	Catalog     *catalog.Store
	Controllers validation.ControllerLookup
	Scaffolder  *scaffold.Scaffolder
	Builder     *deploy.Builder
	Executor    deploy.Executor
	History     storage.History
	Events      *events.Bus
	Logger      *zap.Logger
}

// Pipeline runs validate, scaffold, generate, build and execute for one
// request at a time per configuration root.
type Pipeline struct {
	catalog    *catalog.Store
	validator  *validation.Validator
	scaffolder *scaffold.Scaffolder
	builder    *deploy.Builder
	executor   deploy.Executor
	history    storage.History
	events     *events.Bus
	logger     *zap.Logger
}

func New(deps Deps) *Pipeline {
	return &Pipeline{
		catalog:    deps.Catalog,
		validator:  validation.NewValidator(deps.Catalog, deps.Controllers),
		scaffolder: deps.Scaffolder,
		builder:    deps.Builder,
		executor:   deps.Executor,
		history:    deps.History,
		events:     deps.Events,
		logger:     deps.Logger,
	}
}

// Validate checks a request without side effects.
func (p *Pipeline) Validate(req *types.DeployRequest) []types.ValidationError {
	_, errs := p.validator.ValidateRequest(req.Controller, &req.Slots)
	return errs
}

// Deploy runs the full pipeline. Failures are reported in the result;
// the returned result is never nil.
func (p *Pipeline) Deploy(ctx context.Context, req *types.DeployRequest) *types.Result {
	rec := p.newRecord(OperationDeploy, req.NodeTarget)
	rec.Controller = req.Controller
	rec.Transport = req.Transport
	rec.Slots = req.Slots

	p.emit(ctx, events.TypeDeploymentStarted, rec, "")

	res := p.deploy(ctx, req)
	res.DeploymentID = rec.ID.String()

	p.finish(ctx, rec, res)
	return res
}

func (p *Pipeline) deploy(ctx context.Context, req *types.DeployRequest) *types.Result {
	layout, err := p.scaffolder.Resolve(req.NodeTarget)
	if err != nil {
		return resultFromError(err)
	}

	profile, verrs := p.validator.ValidateRequest(req.Controller, &req.Slots)
	if len(verrs) > 0 {
		res := types.Failed(fmt.Sprintf("validation failed with %d error(s)", len(verrs)))
		res.Stage = StageValidate
		res.ValidationErrors = verrs
		return &res
	}

	// Generation and command building happen before any disk change.
	lines, err := codegen.Generate(&req.Slots, p.catalog)
	if err != nil {
		return resultFromError(err)
	}

	cmd, err := p.builder.Build(req.Transport, req.Port, layout.NodeDir)
	if err != nil {
		res := resultFromError(err)
		res.Program = lines
		return res
	}
	if cmd.Warning != "" {
		p.logger.Warn("Deploy endpoint substituted",
			zap.String("requested", req.Port),
			zap.String("endpoint", cmd.Endpoint),
			zap.String("warning", cmd.Warning))
	}

	unlock := p.scaffolder.Lock(layout.Root)
	defer unlock()

	if err := p.materialize(layout, req.Credentials, profile.Board, lines); err != nil {
		res := resultFromError(err)
		res.Program = lines
		return res
	}

	output, err := p.executor.Run(ctx, cmd)

	var res *types.Result
	if err != nil {
		res = resultFromError(err)
		if res.Output == "" {
			res.Output = output
		}
	} else {
		res = &types.Result{Success: true, Output: output}
	}
	res.Endpoint = cmd.Endpoint
	res.TransportLabel = cmd.TransportLabel
	res.Warning = cmd.Warning
	res.Program = lines
	return res
}

func (p *Pipeline) materialize(layout *scaffold.Layout, creds types.Credentials, board string, lines []string) error {
	outcome, err := p.scaffolder.Ensure(layout)
	if err != nil {
		return err
	}
	p.logger.Debug("Scaffold ready",
		zap.String("node", layout.NodeDir),
		zap.String("outcome", string(outcome)))

	if err := p.scaffolder.MergeCredentials(layout, creds); err != nil {
		return err
	}
	if err := p.scaffolder.WriteBoard(layout, board); err != nil {
		return err
	}
	if err := p.scaffolder.ClearProgram(layout); err != nil {
		return err
	}
	return p.scaffolder.AppendProgram(layout, lines)
}

// Init materializes the node scaffold and merges credentials without
// generating code or deploying.
func (p *Pipeline) Init(ctx context.Context, req *types.InitRequest) *types.Result {
	rec := p.newRecord(OperationInit, req.NodeTarget)

	res := p.init(req)
	res.DeploymentID = rec.ID.String()

	p.finish(ctx, rec, res)
	return res
}

func (p *Pipeline) init(req *types.InitRequest) *types.Result {
	layout, err := p.scaffolder.Resolve(req.NodeTarget)
	if err != nil {
		return resultFromError(err)
	}

	unlock := p.scaffolder.Lock(layout.Root)
	defer unlock()

	outcome, err := p.scaffolder.Ensure(layout)
	if err != nil {
		return resultFromError(err)
	}
	if err := p.scaffolder.MergeCredentials(layout, req.Credentials); err != nil {
		return resultFromError(err)
	}

	return &types.Result{
		Success: true,
		Output:  fmt.Sprintf("node %s ready (%s)", req.NodeName, outcome),
	}
}

// ReloadCatalog re-reads the device catalog. The previous catalog stays
// active when the reload fails.
func (p *Pipeline) ReloadCatalog(ctx context.Context) error {
	if err := p.catalog.Reload(); err != nil {
		return err
	}
	p.events.Emit(ctx, events.Event{
		Type:    events.TypeCatalogReloaded,
		Message: p.catalog.Source(),
	})
	return nil
}

func (p *Pipeline) newRecord(op string, target types.NodeTarget) *storage.DeploymentRecord {
	return &storage.DeploymentRecord{
		ID:        uuid.New(),
		Operation: op,
		Folder:    target.Folder,
		NodeName:  target.NodeName,
		CreatedAt: time.Now().UTC(),
	}
}

func (p *Pipeline) finish(ctx context.Context, rec *storage.DeploymentRecord, res *types.Result) {
	rec.FinishedAt = time.Now().UTC()
	rec.Success = res.Success
	rec.Stage = res.Stage
	rec.Error = res.Error
	rec.Output = res.Output
	rec.Warning = res.Warning
	rec.Endpoint = res.Endpoint
	rec.Program = res.Program
	rec.ValidationErrors = res.ValidationErrors

	fields := []zap.Field{
		zap.String("deployment_id", rec.ID.String()),
		zap.String("operation", rec.Operation),
		zap.String("node", rec.NodeName),
		zap.Bool("success", res.Success),
		zap.Duration("duration", rec.FinishedAt.Sub(rec.CreatedAt)),
	}
	if res.Success {
		p.logger.Info("Request finished", fields...)
	} else {
		p.logger.Warn("Request failed", append(fields,
			zap.String("stage", res.Stage),
			zap.String("error", res.Error))...)
	}

	evType := events.TypeDeploymentFinished
	switch {
	case rec.Operation == OperationInit && res.Success:
		evType = events.TypeNodeInitialized
	case res.Stage == StageValidate:
		evType = events.TypeDeploymentRejected
	case !res.Success:
		evType = events.TypeDeploymentFailed
	}
	p.emit(ctx, evType, rec, res.Error)

	if p.history == nil {
		return
	}
	// The request context may already be cancelled; history is kept anyway.
	if err := p.history.Record(context.WithoutCancel(ctx), rec); err != nil {
		p.logger.Error("Failed to record deployment",
			zap.String("deployment_id", rec.ID.String()),
			zap.Error(err))
	}
}

func (p *Pipeline) emit(ctx context.Context, t events.Type, rec *storage.DeploymentRecord, msg string) {
	p.events.Emit(ctx, events.Event{
		Type:         t,
		DeploymentID: rec.ID.String(),
		Folder:       rec.Folder,
		NodeName:     rec.NodeName,
		Stage:        rec.Stage,
		Endpoint:     rec.Endpoint,
		Message:      msg,
	})
}

// resultFromError maps the typed pipeline errors to a failed result.
func resultFromError(err error) *types.Result {
	res := types.Failed(err.Error())

	var scErr *scaffold.ScaffoldError
	var genErr *codegen.CodeGenerationError
	var execErr *deploy.DeployExecutionError

	switch {
	case errors.As(err, &scErr):
		res.Stage = string(scErr.Stage)
	case errors.As(err, &genErr):
		res.Stage = StageGenerate
	case errors.Is(err, deploy.ErrUnsupportedTransport):
		res.Stage = StageTransport
	case errors.As(err, &execErr):
		res.Stage = StageExecute
		res.Error = strings.TrimSpace(execErr.Error())
	}
	return &res
}
