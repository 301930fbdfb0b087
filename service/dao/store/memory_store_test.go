package store_test

import (
	"context"
	"testing"

	"github.com/nyayaflow/lexflow/service/dao/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID   string
	Name string
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore[string, record](func(r *record) string { return r.ID })

	// missing key loads as nil without error
	got, err := s.Load(ctx, "r-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.Save(ctx, &record{ID: "r-1", Name: "first"}))
	require.NoError(t, s.Save(ctx, &record{ID: "r-2", Name: "second"}))
	require.NoError(t, s.Save(ctx, &record{ID: "r-1", Name: "first-updated"}))

	got, err = s.Load(ctx, "r-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first-updated", got.Name)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.Delete(ctx, "r-1"))
	got, err = s.Load(ctx, "r-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// nil entity is ignored
	require.NoError(t, s.Save(ctx, nil))
}
