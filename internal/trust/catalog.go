// Package trust provides the per-source trust catalog consulted by the
// merge cascade. The catalog is loaded once per run and read-only
// afterward, so concurrent readers need no synchronization.
package trust

import (
	"os"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultTrust is the score assigned to sources with no configured entry.
const DefaultTrust = 50.0

// Catalog maps source identifiers to numeric trust scores.
type Catalog struct {
	scores   map[string]float64
	fallback float64
}

// catalogFile is the on-disk YAML shape of a trust catalog.
type catalogFile struct {
	Default *float64           `yaml:"default"`
	Sources map[string]float64 `yaml:"sources"`
}

// New builds a catalog from an explicit score map. A nil map is allowed;
// every lookup then returns the fallback.
func New(scores map[string]float64, fallback float64) *Catalog {
	if scores == nil {
		scores = map[string]float64{}
	}
	return &Catalog{scores: scores, fallback: fallback}
}

// Load reads a trust catalog from a YAML file. A missing "default" key
// falls back to DefaultTrust.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "trust: read catalog %s", path)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "trust: parse catalog %s", path)
	}

	fallback := DefaultTrust
	if f.Default != nil {
		fallback = *f.Default
	}
	for src, score := range f.Sources {
		if score < 0 {
			return nil, eris.Errorf("trust: source %q has negative score %v", src, score)
		}
	}

	zap.L().Info("trust: catalog loaded",
		zap.String("path", path),
		zap.Int("sources", len(f.Sources)),
		zap.Float64("default", fallback),
	)

	return New(f.Sources, fallback), nil
}

// Trust returns the configured score for a source, or the catalog default
// for unconfigured sources. A configuration gap is non-fatal and logged as
// a warning.
func (c *Catalog) Trust(sourceID string) float64 {
	if score, ok := c.scores[sourceID]; ok {
		return score
	}
	zap.L().Warn("trust: unconfigured source, using default",
		zap.String("source_id", sourceID),
		zap.Float64("default", c.fallback),
	)
	return c.fallback
}

// Sources returns a copy of the configured score map for display.
func (c *Catalog) Sources() map[string]float64 {
	out := make(map[string]float64, len(c.scores))
	for k, v := range c.scores {
		out[k] = v
	}
	return out
}

// Default returns the fallback score for unconfigured sources.
func (c *Catalog) Default() float64 {
	return c.fallback
}
