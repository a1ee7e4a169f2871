package app

import (
	"context"

	"github.com/ayusman/mudra/internal/store"
)

type memorySettings struct {
	values map[string]float64
	err    error
}

func newMemorySettings() *memorySettings {
	return &memorySettings{values: make(map[string]float64)}
}

func (m *memorySettings) GetFloat(_ context.Context, key string) (float64, error) {
	v, ok := m.values[key]
	if !ok {
		return 0, store.ErrNotFound
	}
	return v, nil
}

func (m *memorySettings) SetFloat(_ context.Context, key string, v float64) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = v
	return nil
}
