package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"

	"github.com/hupe1980/toolmesh"
	"github.com/hupe1980/toolmesh/catalog"
	"github.com/hupe1980/toolmesh/config"
	"github.com/hupe1980/toolmesh/core"
	"github.com/hupe1980/toolmesh/httpexec"
	"github.com/hupe1980/toolmesh/logging"
	"github.com/hupe1980/toolmesh/model"
	"github.com/hupe1980/toolmesh/model/anthropic"
	"github.com/hupe1980/toolmesh/model/openai"
)

// runtime bundles everything a command needs, built from one Config.
type runtime struct {
	cfg      *config.Config
	zap      *zap.Logger
	logger   logging.Logger
	resolver catalog.Resolver
	registry catalog.Registry // nil for remote catalogs
	closers  []func() error
}

func (r *runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newRuntime loads the configuration and opens logger and catalog.
func newRuntime() (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	zl, logger, err := logging.NewZapLogger(level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg, zap: zl, logger: logger}
	rt.closers = append(rt.closers, func() error { _ = zl.Sync(); return nil })

	switch cfg.Catalog.Type {
	case "remote":
		rt.resolver = catalog.NewRemoteResolver(cfg.Catalog.URL, func(o *catalog.RemoteOptions) {
			o.Timeout = cfg.Catalog.Timeout
		})
	case "memory":
		mem := catalog.NewMemoryResolver()
		rt.resolver, rt.registry = mem, mem
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath()), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory %s: %w", cfg.Catalog.DataDir, err)
		}
		b, err := catalog.NewBoltResolver(cfg.DBPath())
		if err != nil {
			return nil, fmt.Errorf("opening catalog at %s: %w", cfg.DBPath(), err)
		}
		rt.resolver, rt.registry = b, b
		rt.closers = append(rt.closers, b.Close)
	}

	if rt.registry != nil && len(cfg.Catalog.Files) > 0 {
		if _, err := importFiles(context.Background(), rt.registry, cfg.Catalog.Files); err != nil {
			_ = rt.Close()
			return nil, err
		}
	}
	return rt, nil
}

// newModel builds the completion model selected by the configuration.
func newModel(cfg config.ModelConfig) (model.Model, error) {
	switch cfg.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
			if cfg.Temperature != 0 {
				o.Temperature = cfg.Temperature
			}
			if cfg.MaxTokens > 0 {
				o.MaxCompletionTokens = int64(cfg.MaxTokens)
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			if cfg.Name != "" {
				o.Model = anthropicsdk.Model(cfg.Name)
			}
			if cfg.Temperature != 0 {
				o.Temperature = cfg.Temperature
			}
			if cfg.MaxTokens > 0 {
				o.MaxTokens = int64(cfg.MaxTokens)
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case "mock":
		return model.NewMockModel("mock"), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

// newOrchestrator wires the orchestrator from the runtime.
func (r *runtime) newOrchestrator() (*toolmesh.Orchestrator, error) {
	m, err := newModel(r.cfg.Model)
	if err != nil {
		return nil, err
	}

	var baseTools []core.ToolDefinition
	for _, path := range r.cfg.Tools.BaseFiles {
		defs, err := readDefinitions(path)
		if err != nil {
			return nil, err
		}
		baseTools = append(baseTools, defs...)
	}

	executor := httpexec.New(r.cfg.Tools.BaseURL, func(o *httpexec.Options) {
		o.Timeout = r.cfg.Tools.Timeout
		o.Logger = r.logger
	})

	return toolmesh.New(func(o *toolmesh.Options) {
		o.Model = m
		o.Resolver = r.resolver
		o.Executor = executor
		o.BasePrompt = r.cfg.Orchestrator.BasePrompt
		o.BaseTools = baseTools
		o.MaxDynamicTools = r.cfg.Orchestrator.MaxDynamicTools
		o.SearchLimit = r.cfg.Catalog.Limit
		o.CatalogTimeout = r.cfg.Catalog.Timeout
		o.CatalogRetries = r.cfg.Catalog.Retries
		o.ToolTimeout = r.cfg.Tools.Timeout
		o.Stream = r.cfg.Model.Stream
		o.Logger = r.logger
	})
}

func readDefinitions(path string) ([]core.ToolDefinition, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	defs, err := catalog.LoadDefinitions(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return defs, nil
}

func importFiles(ctx context.Context, reg catalog.Registry, paths []string) ([]core.ToolDefinition, error) {
	var all []core.ToolDefinition
	for _, path := range paths {
		defs, err := readDefinitions(path)
		if err != nil {
			return nil, err
		}
		all = append(all, defs...)
	}
	if err := reg.Register(ctx, all...); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}
	return all, nil
}
