package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/factory"
	"github.com/forgo/factory/adapter/memory"
)

func TestSave_AssignsIdentifier(t *testing.T) {
	store := memory.New()

	saved, err := store.Save(context.Background(), "user", factory.Attrs{"name": "N"})
	require.NoError(t, err)

	id, ok := factory.Identifier(saved)
	require.True(t, ok)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, store.Count("user"))

	row, ok := store.Get("user", id)
	require.True(t, ok)
	assert.Equal(t, "N", row.(factory.Attrs)["name"])
}

func TestSave_ResaveOverwritesRow(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	saved, err := store.Save(ctx, "user", factory.Attrs{"name": "N"})
	require.NoError(t, err)
	u := saved.(factory.Attrs)

	u["name"] = "After Hook"
	_, err = store.Save(ctx, "user", u)
	require.NoError(t, err)

	assert.Equal(t, 1, store.Count("user"))
	row, ok := store.Get("user", u["id"])
	require.True(t, ok)
	assert.Equal(t, "After Hook", row.(factory.Attrs)["name"])
}

func TestSave_RowsAreSnapshots(t *testing.T) {
	store := memory.New()

	saved, err := store.Save(context.Background(), "user", factory.Attrs{"name": "N"})
	require.NoError(t, err)
	u := saved.(factory.Attrs)

	// Mutations without a re-save must not reach the store.
	u["name"] = "mutated"
	row, ok := store.Get("user", u["id"])
	require.True(t, ok)
	assert.Equal(t, "N", row.(factory.Attrs)["name"])
}

func TestSave_StructInstances(t *testing.T) {
	type user struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	store := memory.New()

	saved, err := store.Save(context.Background(), "user", user{Name: "N"})
	require.NoError(t, err)

	u, ok := saved.(user)
	require.True(t, ok)
	assert.NotEmpty(t, u.ID)
}

func TestInstantiate_CopiesAttrs(t *testing.T) {
	store := memory.New()
	attrs := factory.Attrs{"name": "N"}

	raw, err := store.Instantiate("user", attrs)
	require.NoError(t, err)

	clone := raw.(factory.Attrs)
	clone["name"] = "changed"
	assert.Equal(t, "N", attrs["name"])
	// Instantiate never persists.
	assert.Zero(t, store.Count("user"))
}

func TestAllAndReset(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.Save(ctx, "user", factory.Attrs{"n": i})
		require.NoError(t, err)
	}
	_, err := store.Save(ctx, "post", factory.Attrs{})
	require.NoError(t, err)

	assert.Len(t, store.All("user"), 3)
	assert.Equal(t, 1, store.Count("post"))

	store.Reset()
	assert.Zero(t, store.Count("user"))
	assert.Zero(t, store.Count("post"))
}
