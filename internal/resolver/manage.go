package resolver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/conduit-lang/scopegraph/internal/cache"
	"github.com/conduit-lang/scopegraph/internal/discovery"
	"github.com/conduit-lang/scopegraph/internal/entity"
	"github.com/conduit-lang/scopegraph/internal/model"
	"go.uber.org/zap"
)

// Preview runs discovery for d without reading or writing the cache
func (r *Resolver) Preview(ctx context.Context, d model.Descriptor) (*entity.Configuration, *discovery.Report) {
	return r.orchestrator.Discover(ctx, d)
}

// FieldDiff lists the values of one configuration field that only one side has
type FieldDiff struct {
	Field          string   `json:"field"`
	OnlyDiscovered []string `json:"only_discovered"`
	OnlyStatic     []string `json:"only_static"`
}

// Equal returns true if both sides agree
func (f FieldDiff) Equal() bool {
	return len(f.OnlyDiscovered) == 0 && len(f.OnlyStatic) == 0
}

// Comparison is the per-field difference between the discovered and the
// static configuration of one entity
type Comparison struct {
	Entity     string                `json:"entity"`
	HasStatic  bool                  `json:"has_static"`
	Fields     []FieldDiff           `json:"fields"`
	Report     *discovery.Report     `json:"report"`
	Static     *entity.Configuration `json:"static,omitempty"`
	Discovered *entity.Configuration `json:"discovered"`
}

// Identical returns true if every compared field agrees
func (c *Comparison) Identical() bool {
	for _, f := range c.Fields {
		if !f.Equal() {
			return false
		}
	}
	return true
}

// Compare diffs a fresh discovery of d against its static table entry. Without
// an entry every discovered value is reported as discovered-only.
func (r *Resolver) Compare(ctx context.Context, d model.Descriptor) *Comparison {
	discovered, report := r.Preview(ctx, d)

	static := entity.NewConfiguration(d.ShortName())
	entry, hasStatic := r.StaticTable().Lookup(d.Name(), d.ShortName())
	if hasStatic {
		static = entry.Graph
	}

	cmp := &Comparison{
		Entity:     d.Name(),
		HasStatic:  hasStatic,
		Report:     report,
		Discovered: discovered,
	}
	if hasStatic {
		cmp.Static = static
	}

	cmp.Fields = []FieldDiff{
		diff("properties", discovered.Properties, static.Properties),
		diff("relationships", relationshipKeys(discovered), relationshipKeys(static)),
		diff("embed_fields", discovered.EmbedFields, static.EmbedFields),
		diff("vector_metadata_fields", discovered.VectorMetadataFields, static.VectorMetadataFields),
		diff("aliases", discovered.Aliases, static.Aliases),
		diff("scopes", scopeKeys(discovered), scopeKeys(static)),
	}
	return cmp
}

func diff(field string, discovered, static []string) FieldDiff {
	inStatic := make(map[string]bool, len(static))
	for _, s := range static {
		inStatic[s] = true
	}
	inDiscovered := make(map[string]bool, len(discovered))
	for _, s := range discovered {
		inDiscovered[s] = true
	}

	fd := FieldDiff{Field: field, OnlyDiscovered: []string{}, OnlyStatic: []string{}}
	for _, s := range discovered {
		if !inStatic[s] {
			fd.OnlyDiscovered = append(fd.OnlyDiscovered, s)
		}
	}
	for _, s := range static {
		if !inDiscovered[s] {
			fd.OnlyStatic = append(fd.OnlyStatic, s)
		}
	}
	sort.Strings(fd.OnlyDiscovered)
	sort.Strings(fd.OnlyStatic)
	return fd
}

func relationshipKeys(c *entity.Configuration) []string {
	keys := make([]string, 0, len(c.Relationships))
	for _, rel := range c.Relationships {
		keys = append(keys, fmt.Sprintf("%s %s->%s", rel.Type, rel.RelationName, rel.TargetLabel))
	}
	return keys
}

func scopeKeys(c *entity.Configuration) []string {
	keys := make([]string, 0, len(c.Scopes))
	for _, s := range c.Scopes {
		keys = append(keys, s.Name+" ("+string(s.PatternType)+")")
	}
	return keys
}

// Warm discovers and caches the configuration of each descriptor that
// resolves through discovery, replacing existing entries. Descriptors whose
// explicit declaration returns no configuration fall through like they do
// in Resolve. It returns the number of entries written.
func (r *Resolver) Warm(ctx context.Context, descriptors ...model.Descriptor) (int, error) {
	if r.cache == nil || !r.cacheEnabled {
		return 0, ErrCacheDisabled
	}
	if !r.discoveryEnabled {
		return 0, ErrDiscoveryDisabled
	}

	warmed := 0
	for _, d := range descriptors {
		if err := ctx.Err(); err != nil {
			return warmed, err
		}
		if provider, ok := model.AsGraphConfigProvider(d); ok {
			cfg, err := provider.GraphConfig(r.orchestrator)
			if err != nil {
				return warmed, fmt.Errorf("graph configuration of %s: %w", d.Name(), err)
			}
			if cfg != nil {
				continue
			}
		}
		if _, ok := r.StaticTable().Lookup(d.Name(), d.ShortName()); ok {
			continue
		}

		start := time.Now()
		cfg, _ := r.orchestrator.Discover(ctx, d)
		cache.ObserveDiscovery(time.Since(start))

		if err := r.cache.Put(ctx, d.Name(), cfg, r.cacheTTL); err != nil {
			return warmed, fmt.Errorf("failed to cache %s: %w", d.Name(), err)
		}
		warmed++
	}

	r.logger.Info("discovery cache warmed", zap.Int("entities", warmed))
	return warmed, nil
}

// Clear invalidates the cached configuration of the given entity names.
// Without names the whole cache is cleared.
func (r *Resolver) Clear(ctx context.Context, names ...string) error {
	if r.cache == nil {
		return ErrCacheDisabled
	}

	if len(names) == 0 {
		if err := r.cache.InvalidateAll(ctx); err != nil {
			return fmt.Errorf("failed to clear discovery cache: %w", err)
		}
		r.logger.Info("discovery cache cleared")
		return nil
	}

	for _, name := range names {
		if err := r.cache.Invalidate(ctx, name); err != nil {
			return fmt.Errorf("failed to invalidate %s: %w", name, err)
		}
		r.logger.Info("discovery cache entry invalidated", zap.String("entity", name))
	}
	return nil
}

// Cached lists the fully-qualified names with a discovery cache entry
func (r *Resolver) Cached(ctx context.Context) ([]string, error) {
	if r.cache == nil {
		return nil, ErrCacheDisabled
	}
	names, err := r.cache.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list discovery cache: %w", err)
	}
	return names, nil
}

// Lookup finds a registered descriptor by fully-qualified or short name
func Lookup(registry *model.Registry, name string) (model.Descriptor, error) {
	d, ok := registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEntity, name)
	}
	return d, nil
}
