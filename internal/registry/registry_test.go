package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cdcrouter/internal/processor"
	"cdcrouter/pkg/models"
)

func noop() processor.Processor {
	return processor.Func(func(context.Context, models.ChangeBatch) ([]models.TriggerRequest, error) {
		return nil, nil
	})
}

func TestNewAndLookup(t *testing.T) {
	orders := noop()
	reg, err := New(
		Registration{Source: "Orders", Processor: orders},
		Registration{Source: "EvaluationJobMetadata", Processor: noop()},
	)
	require.NoError(t, err)

	got, ok := reg.Lookup("Orders")
	require.True(t, ok)
	assert.NotNil(t, got)

	_, ok = reg.Lookup("Unrelated")
	assert.False(t, ok)

	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []models.LogicalSource{"EvaluationJobMetadata", "Orders"}, reg.Sources())
}

func TestNewRejectsInvalidRegistrations(t *testing.T) {
	tests := []struct {
		name string
		regs []Registration
	}{
		{"empty source", []Registration{{Source: "", Processor: noop()}}},
		{"nil processor", []Registration{{Source: "Orders"}}},
		{"duplicate", []Registration{{Source: "Orders", Processor: noop()}, {Source: "Orders", Processor: noop()}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.regs...)
			assert.Error(t, err)
		})
	}
}

func TestNilRegistryLookup(t *testing.T) {
	var reg *Registry
	_, ok := reg.Lookup("Orders")
	assert.False(t, ok)
	assert.Zero(t, reg.Len())
}

func TestConcurrentLookups(t *testing.T) {
	reg, err := New(Registration{Source: "Orders", Processor: noop()})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := reg.Lookup("Orders")
			assert.True(t, ok)
		}()
	}
	wg.Wait()
}
