package system

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/KevinKickass/FlasherCore/internal/api/rest"
	"github.com/KevinKickass/FlasherCore/internal/api/websocket"
	"github.com/KevinKickass/FlasherCore/internal/auth"
	"github.com/KevinKickass/FlasherCore/internal/catalog"
	"github.com/KevinKickass/FlasherCore/internal/config"
	"github.com/KevinKickass/FlasherCore/internal/controllers"
	"github.com/KevinKickass/FlasherCore/internal/deploy"
	"github.com/KevinKickass/FlasherCore/internal/events"
	"github.com/KevinKickass/FlasherCore/internal/interfaces"
	"github.com/KevinKickass/FlasherCore/internal/pipeline"
	"github.com/KevinKickass/FlasherCore/internal/scaffold"
	"github.com/KevinKickass/FlasherCore/internal/storage"
)

// Service name reported by the gRPC health endpoint.
const healthService = "flashercore.Deployer"

type LifecycleManager struct {
	config *config.Config
	logger *zap.Logger

	catalog     *catalog.Store
	watcher     *catalog.Watcher
	controllers *controllers.Registry
	scaffolder  *scaffold.Scaffolder
	pipeline    *pipeline.Pipeline
	history     storage.History
	db          *storage.PostgresClient
	bus         *events.Bus
	broker      *events.AMQPPublisher
	authService *auth.AuthService
	wsHub       *websocket.Hub

	restServer   *rest.Server
	grpcServer   *grpc.Server
	healthServer *health.Server

	runCtx    context.Context
	cancelRun context.CancelFunc
	wg        sync.WaitGroup

	stateMu      sync.RWMutex
	currentState SystemState

	shutdownChan chan struct{}
	shutdownOnce sync.Once
}

var _ interfaces.LifecycleManager = (*LifecycleManager)(nil)

// NewLifecycleManager builds every component from cfg. It loads the
// device catalog and controller registry and, when enabled, connects to
// PostgreSQL; nothing listens yet.
func NewLifecycleManager(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*LifecycleManager, error) {
	store := catalog.NewStore(cfg.Catalog.SearchPaths, cfg.Catalog.FileName, logger)
	if err := store.Load(); err != nil {
		logger.Warn("Device catalog unavailable, continuing with an empty catalog", zap.Error(err))
	}

	registry, err := controllers.NewRegistry(cfg.Controllers.OverrideFile, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load controllers: %w", err)
	}

	lm := &LifecycleManager{
		config:       cfg,
		logger:       logger,
		catalog:      store,
		controllers:  registry,
		bus:          events.NewBus(logger),
		authService:  auth.NewAuthService(cfg.Auth, logger),
		currentState: StateInitializing,
		shutdownChan: make(chan struct{}),
	}

	if cfg.Database.Enabled {
		db, err := storage.NewPostgresClient(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		lm.db = db
		lm.history = storage.NewPostgresHistory(db)
	} else {
		lm.history = storage.NewMemoryHistory(cfg.History.TTL, cfg.History.CleanupInterval)
	}

	lm.scaffolder = scaffold.NewScaffolder(afero.NewOsFs(), cfg.Scaffold.TemplateDir, scaffold.FileNames{
		SystemDoc:    cfg.Scaffold.SystemDoc,
		NodeTemplate: cfg.Scaffold.NodeTemplate,
		Program:      cfg.Scaffold.Program,
		Board:        cfg.Scaffold.Board,
	}, logger)

	lm.pipeline = pipeline.New(pipeline.Deps{
		Catalog:     store,
		Controllers: registry,
		Scaffolder:  lm.scaffolder,
		Builder: deploy.NewBuilder(deploy.Options{
			Tool:           cfg.Deploy.Tool,
			TunnelEndpoint: cfg.Deploy.TunnelEndpoint,
			LocalDevice:    cfg.Deploy.LocalDevice,
		}),
		Executor: deploy.NewShellExecutor(cfg.Deploy.Shell, cfg.Deploy.Timeout, logger),
		History:  lm.history,
		Events:   lm.bus,
		Logger:   logger,
	})

	lm.wsHub = websocket.NewHub(logger, lm.authService)
	lm.bus.Attach(lm.wsHub)

	return lm, nil
}

// Start starts the entire system
func (lm *LifecycleManager) Start() error {
	lm.logger.Info("Starting FlasherCore",
		zap.String("catalog", lm.catalog.Source()),
		zap.Int("device_types", len(lm.catalog.Devices())),
		zap.Int("controllers", len(lm.controllers.List())))

	lm.runCtx, lm.cancelRun = context.WithCancel(context.Background())

	lm.goRun(func() { lm.wsHub.Run(lm.runCtx) })

	if lm.config.Events.AMQP.Enabled {
		lm.broker = events.NewAMQPPublisher(lm.config.Events.AMQP.URL, lm.config.Events.AMQP.Exchange, lm.logger)
		lm.bus.Attach(lm.broker)
		lm.goRun(func() {
			if err := lm.broker.Start(lm.runCtx); err != nil && !errors.Is(lm.runCtx.Err(), context.Canceled) {
				lm.logger.Error("Event broker unavailable", zap.Error(err))
			}
		})
	}

	if lm.config.Catalog.Watch {
		if err := lm.startCatalogWatcher(); err != nil {
			lm.logger.Warn("Catalog hot reload disabled", zap.Error(err))
		}
	}

	if err := lm.startGRPCServer(); err != nil {
		lm.setError(err)
		return fmt.Errorf("failed to start gRPC: %w", err)
	}

	if err := lm.startRESTServer(); err != nil {
		lm.setError(err)
		return fmt.Errorf("failed to start REST API: %w", err)
	}

	lm.setState(StateRunning)
	lm.healthServer.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)

	lm.logger.Info("System started successfully",
		zap.Int("grpc_port", lm.config.Server.GRPCPort),
		zap.Int("http_port", lm.config.Server.HTTPPort),
		zap.Bool("auth_enabled", lm.config.Auth.Enabled),
		zap.Bool("database_enabled", lm.db != nil))

	return nil
}

func (lm *LifecycleManager) goRun(fn func()) {
	lm.wg.Add(1)
	go func() {
		defer lm.wg.Done()
		fn()
	}()
}

func (lm *LifecycleManager) startCatalogWatcher() error {
	w, err := catalog.NewWatcher(lm.catalog, lm.config.Catalog.Debounce, lm.logger)
	if err != nil {
		return err
	}
	lm.watcher = w

	lm.goRun(func() {
		for {
			select {
			case <-lm.runCtx.Done():
				return
			case err := <-w.Reloaded():
				if err != nil {
					continue
				}
				lm.logger.Info("Device catalog reloaded",
					zap.String("source", lm.catalog.Source()),
					zap.Int("device_types", len(lm.catalog.Devices())))
				lm.bus.Emit(lm.runCtx, events.Event{
					Type:    events.TypeCatalogReloaded,
					Message: lm.catalog.Source(),
				})
			}
		}
	})
	return nil
}

func (lm *LifecycleManager) startGRPCServer() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", lm.config.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	lm.grpcServer = grpc.NewServer()
	lm.healthServer = health.NewServer()
	lm.healthServer.SetServingStatus(healthService, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(lm.grpcServer, lm.healthServer)

	go func() {
		lm.logger.Info("gRPC server listening",
			zap.Int("port", lm.config.Server.GRPCPort),
			zap.String("services", "grpc.health.v1.Health"))
		if err := lm.grpcServer.Serve(lis); err != nil {
			lm.logger.Error("gRPC server failed", zap.Error(err))
		}
	}()

	return nil
}

func (lm *LifecycleManager) startRESTServer() error {
	srv, err := rest.NewServer(lm.config, lm, lm.logger, lm.wsHub, lm.authService)
	if err != nil {
		return err
	}
	lm.restServer = srv
	return lm.restServer.Start()
}

// Done is closed once Shutdown has finished.
func (lm *LifecycleManager) Done() <-chan struct{} {
	return lm.shutdownChan
}

// Shutdown gracefully shuts down the system
func (lm *LifecycleManager) Shutdown(ctx context.Context) error {
	var shutdownErr error

	lm.shutdownOnce.Do(func() {
		lm.logger.Info("Shutting down system")
		lm.setState(StateStopping)

		shutdownErr = lm.gracefulShutdown(ctx)

		lm.setState(StateStopped)
		close(lm.shutdownChan)
	})

	return shutdownErr
}

func (lm *LifecycleManager) gracefulShutdown(ctx context.Context) error {
	var errs []error

	if lm.healthServer != nil {
		lm.healthServer.Shutdown()
	}

	// In-flight deploys finish before the listeners go away.
	if lm.restServer != nil {
		if err := lm.restServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("rest api shutdown failed: %w", err))
		}
	}

	if lm.grpcServer != nil {
		stopped := make(chan struct{})
		go func() {
			lm.grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			lm.grpcServer.Stop()
			errs = append(errs, fmt.Errorf("grpc shutdown: %w", ctx.Err()))
		}
	}

	if lm.watcher != nil {
		if err := lm.watcher.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("catalog watcher stop failed: %w", err))
		}
	}

	if lm.cancelRun != nil {
		lm.cancelRun()
	}
	if lm.broker != nil {
		lm.broker.Stop()
	}
	lm.wg.Wait()

	if lm.db != nil {
		lm.db.Close()
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	lm.logger.Info("Graceful shutdown completed")
	return nil
}

func (lm *LifecycleManager) setState(state SystemState) {
	lm.stateMu.Lock()
	defer lm.stateMu.Unlock()

	if err := ValidateTransition(lm.currentState, state); err != nil {
		lm.logger.Warn("Unexpected state transition", zap.Error(err))
	}
	lm.currentState = state
}

func (lm *LifecycleManager) setError(err error) {
	lm.logger.Error("System error", zap.Error(err))
	lm.setState(StateError)
}

// GetCurrentStatus returns current system status (Interface implementation)
func (lm *LifecycleManager) GetCurrentStatus() interfaces.SystemStatus {
	lm.stateMu.RLock()
	state := lm.currentState
	lm.stateMu.RUnlock()

	backend := "memory"
	if lm.db != nil {
		backend = "postgres"
	}

	return interfaces.SystemStatus{
		State:          state.String(),
		CatalogSource:  lm.catalog.Source(),
		DeviceTypes:    len(lm.catalog.Devices()),
		Controllers:    len(lm.controllers.List()),
		HistoryBackend: backend,
		EventsBroker:   lm.broker != nil,
	}
}

func (lm *LifecycleManager) Config() *config.Config             { return lm.config }
func (lm *LifecycleManager) Pipeline() *pipeline.Pipeline       { return lm.pipeline }
func (lm *LifecycleManager) Catalog() *catalog.Store            { return lm.catalog }
func (lm *LifecycleManager) Controllers() *controllers.Registry { return lm.controllers }
func (lm *LifecycleManager) Scaffolder() *scaffold.Scaffolder   { return lm.scaffolder }
func (lm *LifecycleManager) History() storage.History           { return lm.history }
