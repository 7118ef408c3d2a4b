package suppliers

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	items []Supplier
}

func (m *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Supplier, int, error) {
	return m.items, len(m.items), nil
}

func (m *memoryRepo) Get(ctx context.Context, id uuid.UUID) (Supplier, error) {
	for _, s := range m.items {
		if s.ID == id {
			return s, nil
		}
	}
	return Supplier{}, ErrNotFound
}

func (m *memoryRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := m.Get(ctx, id)
	return err == nil, nil
}

func TestServiceOptionsAndExists(t *testing.T) {
	acme := Supplier{ID: uuid.New(), Name: "Acme Supplies"}
	svc := NewService(&memoryRepo{items: []Supplier{acme, {ID: uuid.New(), Name: "Beta Trading"}}})
	ctx := context.Background()

	opts, err := svc.Options(ctx)
	require.NoError(t, err)
	require.Len(t, opts, 2)
	require.Equal(t, acme.ID, opts[0].ID)
	require.Equal(t, "Acme Supplies", opts[0].Name)

	ok, err := svc.Exists(ctx, acme.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.Exists(ctx, uuid.Nil)
	require.NoError(t, err)
	require.False(t, ok)

	_, err = svc.Get(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
