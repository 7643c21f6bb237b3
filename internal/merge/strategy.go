package merge

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/musehq/muse/internal/score"
)

// Strategy selects how one (track, dimension) pair merges.
type Strategy string

const (
	// StrategyMerge runs the full three-way diff. Default.
	StrategyMerge Strategy = "merge"
	// StrategyOurs takes the left side verbatim, skipping the diff.
	StrategyOurs Strategy = "ours"
	// StrategyTheirs takes the right side verbatim, skipping the diff.
	StrategyTheirs Strategy = "theirs"
)

// ValidStrategies defines allowed strategy names.
var ValidStrategies = map[Strategy]bool{
	StrategyMerge:  true,
	StrategyOurs:   true,
	StrategyTheirs: true,
}

// Resolver supplies per-track, per-dimension strategy overrides.
type Resolver interface {
	Resolve(trackID string, dim score.Dimension) Strategy
}

type defaultResolver struct{}

func (defaultResolver) Resolve(string, score.Dimension) Strategy { return StrategyMerge }

// DefaultResolver resolves every pair to the full three-way merge.
func DefaultResolver() Resolver { return defaultResolver{} }

// Attributes is a file-backed Resolver: a per-project strategy table in
// the spirit of .gitattributes.
//
// File shape:
//
//	default: merge
//	tracks:
//	  drums:
//	    note: ours
//	    cc: theirs
type Attributes struct {
	defaultStrategy Strategy
	tracks          map[string]map[score.Dimension]Strategy
}

type attributesFile struct {
	Default string                       `yaml:"default"`
	Tracks  map[string]map[string]string `yaml:"tracks"`
}

// LoadAttributes parses merge attributes from YAML. Unknown dimensions
// or strategies fail here, not mid-merge.
func LoadAttributes(r io.Reader) (*Attributes, error) {
	var file attributesFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse merge attributes: %w", err)
	}

	attrs := &Attributes{
		defaultStrategy: StrategyMerge,
		tracks:          map[string]map[score.Dimension]Strategy{},
	}
	if file.Default != "" {
		s := Strategy(file.Default)
		if !ValidStrategies[s] {
			return nil, fmt.Errorf("merge attributes: unknown default strategy %q", file.Default)
		}
		attrs.defaultStrategy = s
	}
	for track, dims := range file.Tracks {
		byDim := map[score.Dimension]Strategy{}
		for dimName, stratName := range dims {
			dim := score.Dimension(dimName)
			if !score.ValidDimensions[dim] {
				return nil, fmt.Errorf("merge attributes: track %q: unknown dimension %q", track, dimName)
			}
			s := Strategy(stratName)
			if !ValidStrategies[s] {
				return nil, fmt.Errorf("merge attributes: track %q dimension %q: unknown strategy %q", track, dimName, stratName)
			}
			byDim[dim] = s
		}
		attrs.tracks[track] = byDim
	}
	return attrs, nil
}

// LoadAttributesFile reads merge attributes from a file path.
func LoadAttributesFile(path string) (*Attributes, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open merge attributes: %w", err)
	}
	defer f.Close()
	return LoadAttributes(f)
}

// Resolve implements Resolver.
func (a *Attributes) Resolve(trackID string, dim score.Dimension) Strategy {
	if byDim, ok := a.tracks[trackID]; ok {
		if s, ok := byDim[dim]; ok {
			return s
		}
	}
	return a.defaultStrategy
}
