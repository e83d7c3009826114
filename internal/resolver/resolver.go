// Package resolver decides which configuration applies to an entity. Three
// tiers are consulted in order: an explicit declaration on the descriptor,
// the static configuration table, and automatic discovery. Customization
// hooks run on a copy of whichever tier answered.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/conduit-lang/scopegraph/internal/cache"
	"github.com/conduit-lang/scopegraph/internal/config"
	"github.com/conduit-lang/scopegraph/internal/discovery"
	"github.com/conduit-lang/scopegraph/internal/entity"
	"github.com/conduit-lang/scopegraph/internal/model"
	"go.uber.org/zap"
)

// ErrUnknownEntity is returned when a name matches no registered descriptor
var ErrUnknownEntity = errors.New("unknown entity")

// ErrCacheDisabled is returned by cache management operations without a cache
var ErrCacheDisabled = errors.New("discovery cache is not configured")

// ErrDiscoveryDisabled is returned by Warm when discovery is turned off and
// cached entries would never be read
var ErrDiscoveryDisabled = errors.New("discovery is disabled")

// Source names the tier a configuration was resolved from
type Source string

const (
	SourceExplicit   Source = "explicit"
	SourceStatic     Source = "static"
	SourceDiscovered Source = "discovered"
	SourceNone       Source = "none"
)

// Resolution is the resolved graph and vector configuration of one entity
type Resolution struct {
	Key    string                `json:"key"`
	Source Source                `json:"source"`
	Graph  *entity.Configuration `json:"graph"`
	// Vector is nil when the entity has no vector configuration
	Vector   *entity.VectorConfig `json:"vector"`
	Warnings []discovery.Warning  `json:"warnings"`
}

// CustomizeFunc adjusts a resolved configuration. It receives a copy and
// returns the configuration to use; returning nil keeps the input.
type CustomizeFunc func(d model.Descriptor, cfg *entity.Configuration) *entity.Configuration

// Resolver implements the three-tier configuration fallback
type Resolver struct {
	orchestrator *discovery.Orchestrator
	cache        *cache.DiscoveryCache
	customizers  []CustomizeFunc
	logger       *zap.Logger

	discoveryEnabled bool
	cacheEnabled     bool
	cacheTTL         time.Duration

	mu     sync.RWMutex
	static *config.StaticTable
}

// Option configures a Resolver
type Option func(*Resolver)

// WithStaticTable sets the static configuration table
func WithStaticTable(table *config.StaticTable) Option {
	return func(r *Resolver) {
		r.static = table
	}
}

// WithCache sets the discovery cache
func WithCache(c *cache.DiscoveryCache) Option {
	return func(r *Resolver) {
		r.cache = c
	}
}

// WithDiscovery applies the discovery switches of the configuration file
func WithDiscovery(cfg config.Discovery) Option {
	return func(r *Resolver) {
		r.discoveryEnabled = cfg.Enabled
		r.cacheEnabled = cfg.Cache.Enabled
		r.cacheTTL = cfg.Cache.TTLDuration()
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithCustomizer adds a customization hook. Hooks run after the
// descriptor's own Customizer, in the order they were added.
func WithCustomizer(fn CustomizeFunc) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.customizers = append(r.customizers, fn)
		}
	}
}

// New creates a resolver. Discovery and caching are enabled by default.
func New(orchestrator *discovery.Orchestrator, opts ...Option) *Resolver {
	r := &Resolver{
		orchestrator:     orchestrator,
		logger:           zap.NewNop(),
		discoveryEnabled: true,
		cacheEnabled:     true,
		static:           config.NewStaticTable(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.orchestrator == nil {
		r.orchestrator = discovery.NewOrchestrator(nil, discovery.DefaultOptions(), r.logger)
	}
	return r
}

// OrchestratorOptions converts the discovery section of the configuration
// file into discovery options
func OrchestratorOptions(cfg config.Discovery) discovery.Options {
	opts := discovery.DefaultOptions()
	opts.Features = discovery.Features{
		Properties:    cfg.Features.Properties,
		Relationships: cfg.Features.Relationships,
		Scopes:        cfg.Features.Scopes,
		Aliases:       cfg.Features.Aliases,
		EmbedFields:   cfg.Features.EmbedFields,
	}
	opts.AliasMappings = cfg.AliasMappings
	opts.ExcludeProperties = cfg.ExcludeProperties
	opts.GenerateExamples = cfg.GenerateExamples
	return opts
}

// StaticTable returns the current static configuration table
func (r *Resolver) StaticTable() *config.StaticTable {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.static
}

// SetStaticTable replaces the static configuration table, e.g. after the
// file changed on disk
func (r *Resolver) SetStaticTable(table *config.StaticTable) {
	if table == nil {
		table = config.NewStaticTable()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.static = table
}

// DiscoveryEnabled reports whether the discovery tier is consulted
func (r *Resolver) DiscoveryEnabled() bool {
	return r.discoveryEnabled
}

// Resolve returns the configuration of d. The only errors are failing
// explicit declarations; everything else degrades to warnings.
func (r *Resolver) Resolve(ctx context.Context, d model.Descriptor) (*Resolution, error) {
	res := &Resolution{Key: d.Name(), Source: SourceNone, Warnings: []discovery.Warning{}}

	base, staticEntry, err := r.resolveGraph(ctx, d, res)
	if err != nil {
		return nil, err
	}
	res.Graph = r.customize(d, base)

	vector, err := r.resolveVector(d, res, staticEntry)
	if err != nil {
		return nil, err
	}
	res.Vector = vector

	r.logger.Debug("configuration resolved",
		zap.String("entity", res.Key),
		zap.String("source", string(res.Source)),
	)
	return res, nil
}

func (r *Resolver) resolveGraph(ctx context.Context, d model.Descriptor, res *Resolution) (*entity.Configuration, *config.StaticEntry, error) {
	if provider, ok := model.AsGraphConfigProvider(d); ok {
		cfg, err := provider.GraphConfig(r.orchestrator)
		if err != nil {
			return nil, nil, fmt.Errorf("graph configuration of %s: %w", d.Name(), err)
		}
		if cfg != nil {
			res.Source = SourceExplicit
			return cfg, nil, nil
		}
	}

	if entry, ok := r.StaticTable().Lookup(d.Name(), d.ShortName()); ok {
		res.Source = SourceStatic
		return entry.Graph, entry, nil
	}

	if r.discoveryEnabled {
		cfg, warnings := r.discover(ctx, d)
		res.Source = SourceDiscovered
		res.Warnings = append(res.Warnings, warnings...)
		return cfg, nil, nil
	}

	empty := entity.NewConfiguration(d.ShortName())
	empty.CollectionName = d.CollectionName()
	return empty, nil, nil
}

func (r *Resolver) resolveVector(d model.Descriptor, res *Resolution, staticEntry *config.StaticEntry) (*entity.VectorConfig, error) {
	if provider, ok := model.AsVectorConfigProvider(d); ok {
		vc, err := provider.VectorConfig()
		if err != nil {
			return nil, fmt.Errorf("vector configuration of %s: %w", d.Name(), err)
		}
		return vc, nil
	}

	if staticEntry != nil && staticEntry.Vector != nil {
		clone := *staticEntry.Vector
		clone.EmbedFields = append([]string{}, staticEntry.Vector.EmbedFields...)
		clone.MetadataFields = append([]string{}, staticEntry.Vector.MetadataFields...)
		return &clone, nil
	}

	if res.Source == SourceDiscovered {
		return entity.VectorFromConfiguration(res.Graph), nil
	}
	return nil, nil
}

// customize runs the descriptor's hook, then the resolver-level hooks, on a
// copy of base
func (r *Resolver) customize(d model.Descriptor, base *entity.Configuration) *entity.Configuration {
	cfg := base.Clone()

	if c, ok := model.AsCustomizer(d); ok {
		if out := c.CustomizeGraphConfig(cfg); out != nil {
			cfg = out
		}
	}
	for _, fn := range r.customizers {
		if out := fn(d, cfg); out != nil {
			cfg = out
		}
	}
	return cfg
}

// discover returns the cached configuration or runs the orchestrator and
// caches the result. Concurrent misses may both discover; the later write wins.
func (r *Resolver) discover(ctx context.Context, d model.Descriptor) (*entity.Configuration, []discovery.Warning) {
	key := d.Name()
	useCache := r.cacheEnabled && r.cache != nil

	if useCache {
		if cfg, ok := r.cache.Get(ctx, key); ok {
			return cfg, nil
		}
	}

	start := time.Now()
	cfg, report := r.orchestrator.Discover(ctx, d)
	cache.ObserveDiscovery(time.Since(start))

	if useCache {
		if err := r.cache.Put(ctx, key, cfg, r.cacheTTL); err != nil {
			r.logger.Warn("failed to cache discovered configuration", zap.String("entity", key), zap.Error(err))
		}
	}
	return cfg, report.Warnings
}

// ResolveAll resolves every registered descriptor in registration order and
// drops relationships whose target label no resolved entity carries
func (r *Resolver) ResolveAll(ctx context.Context, registry *model.Registry) ([]*Resolution, error) {
	descriptors := registry.All()
	results := make([]*Resolution, 0, len(descriptors))
	for _, d := range descriptors {
		res, err := r.Resolve(ctx, d)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}

	known := registry.ShortNames()
	for _, res := range results {
		known[res.Graph.Label] = true
	}

	for _, res := range results {
		kept := make([]entity.Relationship, 0, len(res.Graph.Relationships))
		for _, rel := range res.Graph.Relationships {
			if !known[rel.TargetLabel] {
				w := discovery.Warning{
					Kind:    discovery.WarnUnknownTarget,
					Entity:  res.Graph.Label,
					Message: fmt.Sprintf("relationship %s points at unknown entity %s", rel.RelationName, rel.TargetLabel),
				}
				res.Warnings = append(res.Warnings, w)
				r.logger.Warn("dropping relationship to unknown entity",
					zap.String("entity", res.Graph.Label),
					zap.String("relationship", rel.RelationName),
					zap.String("target", rel.TargetLabel),
				)
				continue
			}
			kept = append(kept, rel)
		}
		res.Graph.Relationships = kept
	}
	return results, nil
}

// Configs returns the graph configurations of resolutions
func Configs(resolutions []*Resolution) []*entity.Configuration {
	result := make([]*entity.Configuration, 0, len(resolutions))
	for _, res := range resolutions {
		result = append(result, res.Graph)
	}
	return result
}
