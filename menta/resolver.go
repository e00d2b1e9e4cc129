package menta

import (
	"strconv"
	"strings"

	"github.com/comalice/botix"
)

// Resolver picks a branch label from an updater reading. It implements
// botix.BranchResolver.
type Resolver struct {
	updater Updater
	label   func([]float64) string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLabelFunc replaces the default reading-to-label mapping.
func WithLabelFunc(f func([]float64) string) ResolverOption {
	return func(r *Resolver) { r.label = f }
}

// NewResolver resolves branches by reading u at each decision point.
func NewResolver(u Updater, opts ...ResolverOption) *Resolver {
	r := &Resolver{updater: u, label: Label}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve reads the updater and returns its label.
func (r *Resolver) Resolve(*botix.MovingTransition) (string, error) {
	return r.label(r.updater.Values()), nil
}

// Label formats readings in their shortest form joined by commas, so bit
// readings become "0", "1" or "1,0".
func Label(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(parts, ",")
}

var _ botix.BranchResolver = (*Resolver)(nil)
