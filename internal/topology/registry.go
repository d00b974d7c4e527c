package topology

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed topologies.yaml
var embeddedTopologies []byte

// ErrUnknownTopology is returned when no table exists for a protocol/version pair.
var ErrUnknownTopology = errors.New("unknown topology")

// registryFile is the on-disk layout of a topology table set.
type registryFile struct {
	Defaults   map[Protocol]string `yaml:"defaults" validate:"required"`
	Topologies []LandmarkTopology  `yaml:"topologies" validate:"required,min=1,dive"`
}

// Registry maps (protocol, version) to an immutable topology.
type Registry struct {
	topologies map[string]*LandmarkTopology
	defaults   map[Protocol]string
}

// Default loads the tables compiled into the binary.
func Default() (*Registry, error) {
	return Load(embeddedTopologies)
}

// LoadFile loads tables from a YAML file. An empty path selects the built-in tables.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading topology file: %w", err)
	}
	return Load(data)
}

// Load parses and validates a YAML topology set.
func Load(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("error parsing topology file: %w", err)
	}
	if err := validator.New().Struct(file); err != nil {
		return nil, fmt.Errorf("invalid topology file: %w", err)
	}

	r := &Registry{
		topologies: make(map[string]*LandmarkTopology, len(file.Topologies)),
		defaults:   make(map[Protocol]string, len(file.Defaults)),
	}
	for i := range file.Topologies {
		t := file.Topologies[i]
		if err := t.check(); err != nil {
			return nil, err
		}
		if _, dup := r.topologies[t.Key()]; dup {
			return nil, fmt.Errorf("duplicate topology %s", t.Key())
		}
		r.topologies[t.Key()] = &t
	}
	for p, v := range file.Defaults {
		if _, ok := r.topologies[key(p, v)]; !ok {
			return nil, fmt.Errorf("default %s points to missing version %q", p, v)
		}
		r.defaults[p] = v
	}
	return r, nil
}

// Get returns the topology for protocol and version; an empty version selects the default.
func (r *Registry) Get(p Protocol, version string) (*LandmarkTopology, error) {
	if version == "" {
		v, ok := r.defaults[p]
		if !ok {
			return nil, fmt.Errorf("%w: no default version for %s", ErrUnknownTopology, p)
		}
		version = v
	}
	t, ok := r.topologies[key(p, version)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopology, key(p, version))
	}
	return t, nil
}

// DefaultVersion reports the version used when a request names none.
func (r *Registry) DefaultVersion(p Protocol) string {
	return r.defaults[p]
}

// List returns all topologies ordered by protocol then version.
func (r *Registry) List() []*LandmarkTopology {
	out := make([]*LandmarkTopology, 0, len(r.topologies))
	for _, t := range r.topologies {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Protocol != out[j].Protocol {
			return out[i].Protocol < out[j].Protocol
		}
		return out[i].Version < out[j].Version
	})
	return out
}
