package main

import (
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/resolve-cli/internal/config"
	"github.com/sells-group/resolve-cli/internal/match"
	"github.com/sells-group/resolve-cli/internal/merge"
	"github.com/sells-group/resolve-cli/internal/model"
	"github.com/sells-group/resolve-cli/internal/trust"
)

// engine bundles the matcher and coordinator built from configuration.
type engine struct {
	catalog     *trust.Catalog
	matcher     *match.Matcher
	coordinator *merge.Coordinator
	workers     int
}

// initEngine loads the trust catalog and field schema and wires the
// matching and merge components. The catalog is loaded exactly once here;
// nothing reloads it mid-run.
func initEngine(cfg *config.Config) (*engine, error) {
	catalog, err := trust.Load(cfg.Trust.CatalogPath)
	if err != nil {
		return nil, eris.Wrap(err, "init: trust catalog")
	}

	schema := model.DefaultSchema()
	if cfg.Schema.Path != "" {
		if _, statErr := os.Stat(cfg.Schema.Path); statErr == nil {
			schema, err = model.LoadSchema(cfg.Schema.Path)
			if err != nil {
				return nil, eris.Wrap(err, "init: field schema")
			}
		}
	}

	matcher := match.New(match.Config{
		FuzzyThreshold: cfg.Matcher.FuzzyThreshold,
		GeoPrecision:   cfg.Matcher.GeoPrecision,
		NameField:      cfg.Matcher.NameField,
		LatField:       cfg.Matcher.LatField,
		LngField:       cfg.Matcher.LngField,
	})

	return &engine{
		catalog:     catalog,
		matcher:     matcher,
		coordinator: merge.NewCoordinator(catalog, schema),
		workers:     cfg.Merge.Workers,
	}, nil
}
