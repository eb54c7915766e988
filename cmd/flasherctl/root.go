package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/KevinKickass/FlasherCore/internal/catalog"
	"github.com/KevinKickass/FlasherCore/internal/config"
	"github.com/KevinKickass/FlasherCore/internal/controllers"
	"github.com/KevinKickass/FlasherCore/internal/deploy"
	"github.com/KevinKickass/FlasherCore/internal/pipeline"
	"github.com/KevinKickass/FlasherCore/internal/scaffold"
)

var (
	version = "dev"
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "flasherctl",
	Short:         "Configure and deploy IoT nodes from declarative requests",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: built-in defaults and FLASHER_* environment)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"log progress to stderr")
}

// app bundles the components the commands work with.
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	catalog     *catalog.Store
	controllers *controllers.Registry
	scaffolder  *scaffold.Scaffolder
	pipeline    *pipeline.Pipeline
}

func newLogger() *zap.Logger {
	level := zapcore.WarnLevel
	if verbose {
		level = zapcore.DebugLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func loadApp() (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger := newLogger()

	store := catalog.NewStore(cfg.Catalog.SearchPaths, cfg.Catalog.FileName, logger)
	if err := store.Load(); err != nil {
		logger.Warn("Device catalog unavailable, continuing with an empty catalog", zap.Error(err))
	}

	registry, err := controllers.NewRegistry(cfg.Controllers.OverrideFile, logger)
	if err != nil {
		return nil, err
	}

	sc := scaffold.NewScaffolder(afero.NewOsFs(), cfg.Scaffold.TemplateDir, scaffold.FileNames{
		SystemDoc:    cfg.Scaffold.SystemDoc,
		NodeTemplate: cfg.Scaffold.NodeTemplate,
		Program:      cfg.Scaffold.Program,
		Board:        cfg.Scaffold.Board,
	}, logger)

	p := pipeline.New(pipeline.Deps{
		Catalog:     store,
		Controllers: registry,
		Scaffolder:  sc,
		Builder: deploy.NewBuilder(deploy.Options{
			Tool:           cfg.Deploy.Tool,
			TunnelEndpoint: cfg.Deploy.TunnelEndpoint,
			LocalDevice:    cfg.Deploy.LocalDevice,
		}),
		Executor: deploy.NewShellExecutor(cfg.Deploy.Shell, cfg.Deploy.Timeout, logger),
		Logger:   logger,
	})

	return &app{
		cfg:         cfg,
		logger:      logger,
		catalog:     store,
		controllers: registry,
		scaffolder:  sc,
		pipeline:    p,
	}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// exitError carries a process exit status through cobra.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func failWith(code int, format string, args ...any) error {
	return &exitError{code: code, msg: fmt.Sprintf(format, args...)}
}
