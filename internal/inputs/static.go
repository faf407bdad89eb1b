// Package inputs holds filter input values for surfaces that have no live page to read from.
package inputs

import (
	"context"
	"maps"
	"strings"
	"sync"

	"github.com/dgnsrekt/salesboard/internal/chart"
)

// Static is an in-memory set of input values keyed by input identifier.
type Static struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStatic returns a Static seeded with defaults.
func NewStatic(defaults map[string]string) *Static {
	s := &Static{values: make(map[string]string, len(defaults))}
	for id, v := range defaults {
		s.values[id] = strings.TrimSpace(v)
	}
	return s
}

// Selection reads the inputs named by ids. Each call returns an independent copy.
func (s *Static) Selection(_ context.Context, ids chart.InputIDs) (chart.FilterSelection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return chart.FilterSelection{
		Entity:      s.lookup(ids.Entity),
		StartPeriod: s.lookup(ids.Start),
		EndPeriod:   s.lookup(ids.End),
	}, nil
}

func (s *Static) lookup(id string) string {
	if id == "" {
		return ""
	}
	return s.values[id]
}

// Set updates the given inputs. An empty value clears the input.
func (s *Static) Set(values map[string]string) error {
	for id := range values {
		if strings.TrimSpace(id) == "" {
			return chart.NewError(chart.CodeValidation, "input id is required", nil)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			delete(s.values, id)
			continue
		}
		s.values[id] = v
	}
	return nil
}

// Values returns a copy of every set input.
func (s *Static) Values() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}
