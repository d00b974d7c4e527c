// Package topology holds the static landmark tables of each measurement protocol:
// landmark names, the segments measured between them and the angles computed at
// their joints. Tables are data, loaded once at startup and shared read-only.
package topology

import (
	"fmt"
	"strings"
)

// Protocol identifies a photographic view.
type Protocol string

const (
	Frontal  Protocol = "frontal"
	Sagittal Protocol = "sagittal"
)

// DefaultSegmentDescription is reported for segments without a configured description.
const DefaultSegmentDescription = "Distance between landmarks"

// ParseProtocol accepts the protocol names used by clients, including the Portuguese spellings.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "frontal", "front":
		return Frontal, nil
	case "sagittal", "sagital", "lateral":
		return Sagittal, nil
	default:
		return "", fmt.Errorf("unknown protocol %q", s)
	}
}

// Segment is a pair of landmark indices measured as a straight distance.
type Segment struct {
	A           int    `yaml:"a" json:"a" validate:"min=0"`
	B           int    `yaml:"b" json:"b" validate:"min=0"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// AngleTriple is an angle measured at Vertex between the rays towards A and C.
type AngleTriple struct {
	Name   string `yaml:"name" json:"name" validate:"required"`
	A      int    `yaml:"a" json:"a" validate:"min=0"`
	Vertex int    `yaml:"vertex" json:"vertex" validate:"min=0"`
	C      int    `yaml:"c" json:"c" validate:"min=0"`
}

// LandmarkTopology describes one protocol version. It must not be modified after
// it has been registered.
type LandmarkTopology struct {
	Protocol Protocol      `yaml:"protocol" json:"protocol" validate:"required,oneof=frontal sagittal"`
	Version  string        `yaml:"version" json:"version" validate:"required"`
	Points   int           `yaml:"points,omitempty" json:"points,omitempty" validate:"min=0"`
	Names    []string      `yaml:"names" json:"names" validate:"dive,required"`
	Segments []Segment     `yaml:"segments" json:"segments" validate:"required,min=1,dive"`
	Angles   []AngleTriple `yaml:"angles,omitempty" json:"angles,omitempty" validate:"dive"`
}

// Size is the number of landmarks the protocol expects. Points may declare more
// landmarks than there are names.
func (t *LandmarkTopology) Size() int {
	if t.Points > len(t.Names) {
		return t.Points
	}
	return len(t.Names)
}

// Name returns the display name of landmark i, or P{i} when none is configured.
func (t *LandmarkTopology) Name(i int) string {
	if i >= 0 && i < len(t.Names) {
		return t.Names[i]
	}
	return fmt.Sprintf("P%d", i)
}

// Label returns the segment description or the generic placeholder.
func (s Segment) Label() string {
	if s.Description != "" {
		return s.Description
	}
	return DefaultSegmentDescription
}

// Key returns the registry key of the topology.
func (t *LandmarkTopology) Key() string {
	return key(t.Protocol, t.Version)
}

// check verifies that every segment and angle references a landmark inside Size.
func (t *LandmarkTopology) check() error {
	n := t.Size()
	for i, s := range t.Segments {
		if s.A >= n || s.B >= n {
			return fmt.Errorf("%s: segment %d (%d,%d) references a landmark outside 0..%d", t.Key(), i, s.A, s.B, n-1)
		}
	}
	for _, a := range t.Angles {
		if a.A >= n || a.Vertex >= n || a.C >= n {
			return fmt.Errorf("%s: angle %q references a landmark outside 0..%d", t.Key(), a.Name, n-1)
		}
	}
	return nil
}

func key(p Protocol, version string) string {
	return string(p) + "/" + version
}
