// Package discovery derives entity configurations from model descriptors.
// Each discoverer is a pure function of a descriptor and an optional schema
// introspector; the Orchestrator composes them into one configuration.
package discovery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/conduit-lang/scopegraph/internal/entity"
	"github.com/conduit-lang/scopegraph/internal/introspect"
	"github.com/conduit-lang/scopegraph/internal/model"
	"go.uber.org/zap"
)

// Features toggles the individual discovery facets
type Features struct {
	Properties    bool
	Relationships bool
	Scopes        bool
	Aliases       bool
	EmbedFields   bool
}

// AllFeatures enables every facet
func AllFeatures() Features {
	return Features{Properties: true, Relationships: true, Scopes: true, Aliases: true, EmbedFields: true}
}

// Options is the static configuration of a discovery run
type Options struct {
	Features          Features
	AliasMappings     map[string][]string
	ExcludeProperties []string
	GenerateExamples  bool
	Synonyms          map[string][]string
}

// DefaultOptions enables every facet with the built-in synonym table
func DefaultOptions() Options {
	return Options{
		Features:         AllFeatures(),
		GenerateExamples: true,
		Synonyms:         DefaultSynonyms,
	}
}

// Orchestrator assembles one entity configuration from the discoverers.
// It never returns an error: a failing facet is left empty and reported.
type Orchestrator struct {
	opts   Options
	si     introspect.SchemaIntrospector
	logger *zap.Logger
}

// NewOrchestrator creates an orchestrator. si may be nil, in which case
// heuristics run on names and casts only.
func NewOrchestrator(si introspect.SchemaIntrospector, opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Synonyms == nil {
		opts.Synonyms = DefaultSynonyms
	}
	return &Orchestrator{opts: opts, si: si, logger: logger}
}

// Options returns the orchestrator's options
func (o *Orchestrator) Options() Options {
	return o.opts
}

// DiscoverConfig runs discovery without a report. It lets descriptor-level
// overrides layer their additions on top of discovered output.
func (o *Orchestrator) DiscoverConfig(d model.Descriptor) *entity.Configuration {
	cfg, _ := o.Discover(context.Background(), d)
	return cfg
}

// Discover runs every enabled facet for d. The configuration is a pure
// function of the descriptor, the introspected schema and the options.
func (o *Orchestrator) Discover(ctx context.Context, d model.Descriptor) (*entity.Configuration, *Report) {
	start := time.Now()
	report := &Report{Entity: d.ShortName(), Warnings: []Warning{}}
	features := o.opts.Features

	si := o.si
	if si == nil {
		si = introspect.Nop{}
		if features.Relationships || features.EmbedFields {
			report.warn(WarnMissingService, "", "no schema introspector; using name and cast heuristics")
		}
	}

	cfg := entity.NewConfiguration(d.ShortName())
	cfg.CollectionName = d.CollectionName()
	cfg.Description = d.ShortName() + " entity"

	if features.Properties {
		o.facet(report, "properties", func() {
			cfg.Properties = DiscoverProperties(d, o.opts.ExcludeProperties)
		})
	}

	// Scopes need the declared relations to resolve traversals even when
	// relationships are not part of the output
	var rels []entity.Relationship
	if features.Relationships || features.Scopes {
		o.facet(report, "relationships", func() {
			rels = DiscoverRelationships(ctx, d, si)
		})
	}
	if features.Relationships && rels != nil {
		cfg.Relationships = rels
	}

	if features.Aliases {
		o.facet(report, "aliases", func() {
			cfg.Aliases = GenerateAliases(d, o.opts.Synonyms, o.opts.AliasMappings)
		})
	}

	if features.EmbedFields {
		o.facet(report, "embed_fields", func() {
			cfg.EmbedFields = DetectEmbedFields(ctx, d, cfg.Properties, rels, si)
		})
	}

	o.facet(report, "vector_metadata", func() {
		cfg.VectorMetadataFields = VectorMetadataFields(d, cfg.Properties, rels, cfg.EmbedFields)
	})

	if features.Scopes {
		o.facet(report, "scopes", func() {
			scopes, warnings := DiscoverScopes(d, rels, ScopeOptions{GenerateExamples: o.opts.GenerateExamples})
			cfg.Scopes = scopes
			report.Warnings = append(report.Warnings, warnings...)
		})
	}

	cfg.PropertyDescriptions = describeProperties(cfg.Properties, rels, d.PrimaryKey())

	report.Elapsed = time.Since(start)
	o.log(report)
	return cfg, report
}

// facet runs one discoverer, recovering from a panicking descriptor adapter
func (o *Orchestrator) facet(report *Report, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			report.warn(WarnFacetFailed, "", fmt.Sprintf("%s discovery failed: %v", name, r))
		}
	}()
	fn()
}

func (o *Orchestrator) log(report *Report) {
	for _, w := range report.Warnings {
		o.logger.Warn("discovery warning",
			zap.String("entity", w.Entity),
			zap.String("scope", w.Scope),
			zap.String("kind", string(w.Kind)),
			zap.String("message", w.Message),
		)
	}
	o.logger.Debug("entity discovered",
		zap.String("entity", report.Entity),
		zap.Duration("elapsed", report.Elapsed),
		zap.Int("warnings", len(report.Warnings)),
	)
}

// knownDescriptions maps well-known property names to descriptions
var knownDescriptions = map[string]string{
	"email":       "Email address",
	"name":        "Display name",
	"first_name":  "Given name",
	"last_name":   "Family name",
	"title":       "Title",
	"status":      "Current status",
	"phone":       "Phone number",
	"bio":         "Biography",
	"description": "Free-text description",
	"created_at":  "Creation timestamp",
	"updated_at":  "Last update timestamp",
	"deleted_at":  "Deletion timestamp",
}

func describeProperties(props []string, rels []entity.Relationship, pk string) map[string]string {
	fkTargets := make(map[string]string)
	for _, r := range rels {
		if r.ForeignKey != "" && r.Type == entity.RelationOutbound {
			fkTargets[r.ForeignKey] = r.TargetLabel
		}
	}

	result := make(map[string]string)
	for _, p := range props {
		switch {
		case p == pk:
			result[p] = "Unique identifier"
		case fkTargets[p] != "":
			result[p] = "Reference to " + fkTargets[p]
		case knownDescriptions[strings.ToLower(p)] != "":
			result[p] = knownDescriptions[strings.ToLower(p)]
		}
	}
	return result
}
