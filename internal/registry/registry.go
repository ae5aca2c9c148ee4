// Package registry binds logical sources to processors. A Registry is built
// once at startup and never changes, so lookups need no locking.
package registry

import (
	"fmt"
	"sort"

	"cdcrouter/internal/processor"
	"cdcrouter/pkg/models"
)

type Registration struct {
	Source    models.LogicalSource
	Processor processor.Processor
}

type Registry struct {
	processors map[models.LogicalSource]processor.Processor
}

// New validates regs and returns the immutable registry. Empty sources, nil
// processors and duplicate sources are rejected.
func New(regs ...Registration) (*Registry, error) {
	processors := make(map[models.LogicalSource]processor.Processor, len(regs))

	for i, reg := range regs {
		if reg.Source == "" {
			return nil, fmt.Errorf("registration %d: source is required", i)
		}
		if reg.Processor == nil {
			return nil, fmt.Errorf("registration %d (%s): processor is nil", i, reg.Source)
		}
		if _, exists := processors[reg.Source]; exists {
			return nil, fmt.Errorf("registration %d: duplicate source %s", i, reg.Source)
		}
		processors[reg.Source] = reg.Processor
	}

	return &Registry{processors: processors}, nil
}

func (r *Registry) Lookup(source models.LogicalSource) (processor.Processor, bool) {
	if r == nil {
		return nil, false
	}
	p, ok := r.processors[source]
	return p, ok
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.processors)
}

// Sources lists the registered sources in sorted order.
func (r *Registry) Sources() []models.LogicalSource {
	if r == nil {
		return nil
	}
	out := make([]models.LogicalSource, 0, len(r.processors))
	for s := range r.processors {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
