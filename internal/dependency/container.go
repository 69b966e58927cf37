// Package dependency wires core monica services using go.uber.org/dig.
package dependency

import (
	"fmt"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"

	"github.com/monica-concierge/monica/internal/agent"
	"github.com/monica-concierge/monica/internal/artifact"
	"github.com/monica-concierge/monica/internal/bus"
	"github.com/monica-concierge/monica/internal/catalog"
	"github.com/monica-concierge/monica/internal/config"
	"github.com/monica-concierge/monica/internal/providers"
	"github.com/monica-concierge/monica/internal/schema"
	"github.com/monica-concierge/monica/internal/session"
	"github.com/monica-concierge/monica/internal/tools"
)

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	cfg       *config.Config
	provider  schema.LLMProvider
	msgBus    *bus.MessageBus
	catalog   *catalog.Catalog
	artifacts *artifact.Store
	sessions  *session.Manager
	registry  *prometheus.Registry
	loop      *agent.AgentLoop
}

func (c *Container) Config() *config.Config         { return c.cfg }
func (c *Container) Provider() schema.LLMProvider   { return c.provider }
func (c *Container) MessageBus() *bus.MessageBus    { return c.msgBus }
func (c *Container) Catalog() *catalog.Catalog      { return c.catalog }
func (c *Container) Artifacts() *artifact.Store     { return c.artifacts }
func (c *Container) Sessions() *session.Manager     { return c.sessions }
func (c *Container) Registry() *prometheus.Registry { return c.registry }
func (c *Container) AgentLoop() *agent.AgentLoop    { return c.loop }
func (c *Container) Looper() schema.AgentLooper     { return c.loop }

// LLMModel is a named string type so dig can distinguish it from plain
// strings when injecting the effective model name.
type LLMModel string

// New builds and wires all core services from cfg.
func New(cfg *config.Config) (*Container, error) {
	d := dig.New()

	constructors := []any{
		func() *config.Config { return cfg },
		newProvider,
		resolveLLMModel,
		newMessageBus,
		newCatalog,
		newArtifactStore,
		newSessionManager,
		newMetricsRegistry,
		newToolMetrics,
		newToolRegistry,
		newAgentLoop,
	}
	for _, c := range constructors {
		if err := d.Provide(c); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		provider schema.LLMProvider,
		msgBus *bus.MessageBus,
		cat *catalog.Catalog,
		store *artifact.Store,
		sessions *session.Manager,
		reg *prometheus.Registry,
		loop *agent.AgentLoop,
	) {
		result = &Container{
			cfg:       cfg,
			provider:  provider,
			msgBus:    msgBus,
			catalog:   cat,
			artifacts: store,
			sessions:  sessions,
			registry:  reg,
			loop:      loop,
		}
	})
	if err != nil {
		return nil, dig.RootCause(err)
	}
	return result, nil
}

func newProvider(cfg *config.Config) (schema.LLMProvider, error) {
	model := cfg.Agents.Defaults.Model
	result := cfg.MatchProvider(model)
	if result.Provider == nil {
		return nil, fmt.Errorf("no API key configured for model %q: edit %s", model, config.ConfigPath())
	}

	return providers.New(providers.Params{
		APIKey:       cfg.GetAPIKey(model),
		APIBase:      cfg.GetAPIBase(model),
		ExtraHeaders: result.Provider.ExtraHeaders,
		DefaultModel: model,
		ProviderName: result.Name,
	}), nil
}

func resolveLLMModel(cfg *config.Config, p schema.LLMProvider) LLMModel {
	m := cfg.Agents.Defaults.Model
	if m == "" {
		m = p.DefaultModel()
	}
	return LLMModel(m)
}

func newMessageBus() *bus.MessageBus {
	return bus.NewMessageBus(100)
}

func newCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	return catalog.Load(cfg.CatalogPath())
}

func newArtifactStore(cfg *config.Config) (*artifact.Store, error) {
	return artifact.NewStore(filepath.Join(cfg.WorkspacePath(), "artifacts"))
}

func newSessionManager(cfg *config.Config) (*session.Manager, error) {
	return session.NewManager(cfg.WorkspacePath())
}

func newMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newToolMetrics(reg *prometheus.Registry) *agent.ToolMetrics {
	return agent.NewToolMetrics(reg)
}

// newToolRegistry registers the catalog and artifact tools. The agent
// definition decides which of them the model sees.
func newToolRegistry(cat *catalog.Catalog, b *bus.MessageBus, store *artifact.Store) *tools.Registry {
	return tools.NewRegistryBuilder().
		WithTool(tools.NewLoadProductsTool(cat)).
		WithTool(tools.NewFormatProductsTool(cat, b)).
		WithTool(tools.NewLoadArtifactsTool(store)).
		Build()
}

func newAgentLoop(
	b *bus.MessageBus,
	p schema.LLMProvider,
	cfg *config.Config,
	m LLMModel,
	sessions *session.Manager,
	reg *tools.Registry,
	metrics *agent.ToolMetrics,
) *agent.AgentLoop {
	d := cfg.Agents.Defaults
	settings := schema.NewAgentSettings(string(m), d.MaxToolIter, d.Temperature, d.MaxTokens, d.MemoryWindow)
	return agent.NewAgentLoop(b, p, agent.NewDefinition(string(m)), settings, sessions, reg, metrics)
}
