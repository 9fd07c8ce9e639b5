package source

import (
	"context"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Source supplies the URL pattern collection.
type Source interface {
	FetchPatterns(ctx context.Context) ([]string, error)
}

// Update carries the latest pattern list of one named source. It replaces
// what that source sent before and leaves other sources alone.
type Update struct {
	Source   string
	Patterns []string
}

type URLPatternSet struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   URLPatternSetSpec   `json:"spec,omitempty"`
	Status URLPatternSetStatus `json:"status,omitempty"`
}

type URLPatternSetSpec struct {
	TargetSelector map[string]string `json:"targetSelector,omitempty"`
	Patterns       []string          `json:"patterns,omitempty"`
	Interval       int               `json:"interval,omitempty"` // seconds
}

type URLPatternSetStatus struct {
	SelectorHash       string             `json:"selectorHash,omitempty"`
	SpecHash           string             `json:"specHash,omitempty"`
	ObservedGeneration int64              `json:"observedGeneration,omitempty"`
	Conditions         []metav1.Condition `json:"conditions,omitempty"`
}

type ControllerResponse struct {
	PatternSet URLPatternSet `json:"patternSet"`
}

// PatternFile is the YAML layout of a patterns file.
type PatternFile struct {
	Patterns []string `yaml:"patterns"`
}

type Poller struct {
	source   Source
	interval time.Duration
	name     string
	verbose  bool
	updates  chan<- Update
}
