package catalog

import (
	"context"

	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/models"
)

// Memory is a fixed in-process catalog used by tests and local runs.
type Memory struct {
	flowers map[string]models.Flower
}

func NewMemory(flowers ...models.Flower) *Memory {
	m := &Memory{flowers: make(map[string]models.Flower, len(flowers))}
	for _, f := range flowers {
		m.flowers[f.ID] = f
	}
	return m
}

func (m *Memory) Lookup(_ context.Context, flowerID string) (models.Flower, error) {
	f, ok := m.flowers[flowerID]
	if !ok {
		return models.Flower{}, apperr.NotFound("flower", flowerID)
	}
	return f, nil
}
