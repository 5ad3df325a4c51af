package factory_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgo/factory"
)

func TestDecode_StructFieldMatching(t *testing.T) {
	type profile struct {
		ID       string `json:"id"`
		FullName string `factory:"name" json:"full_name"`
		Email    string `json:"email"`
		Age      int
		Bio      *string `json:"bio"`
		internal string
	}

	bio := "hi"
	attrs := factory.Attrs{
		"id":    "profile:1",
		"name":  "Ada",  // factory tag wins over json tag
		"email": "a@mail.com",
		"age":   int64(30), // numeric kinds convert
		"bio":   bio,       // pointer fields allocate
	}

	var p profile
	require.NoError(t, factory.Decode(attrs, &p))

	assert.Equal(t, "profile:1", p.ID)
	assert.Equal(t, "Ada", p.FullName)
	assert.Equal(t, "a@mail.com", p.Email)
	assert.Equal(t, 30, p.Age)
	require.NotNil(t, p.Bio)
	assert.Equal(t, "hi", *p.Bio)
	assert.Empty(t, p.internal)
}

func TestDecode_NilAndUnknownAttributes(t *testing.T) {
	type profile struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	var p profile
	err := factory.Decode(factory.Attrs{
		"name":    "Ada",
		"email":   nil,   // nil leaves the zero value
		"unknown": "x",   // unmatched keys are ignored
	}, &p)
	require.NoError(t, err)

	assert.Equal(t, "Ada", p.Name)
	assert.Empty(t, p.Email)
}

func TestDecode_RejectsCrossKindValues(t *testing.T) {
	type profile struct {
		Name string `json:"name"`
	}

	var p profile
	err := factory.Decode(factory.Attrs{"name": 42}, &p)
	require.Error(t, err)
	assert.ErrorIs(t, err, factory.ErrShape)
}

func TestDecode_IntoMap(t *testing.T) {
	var m map[string]any
	require.NoError(t, factory.Decode(factory.Attrs{"a": 1, "b": nil}, &m))
	assert.Equal(t, 1, m["a"])
	assert.Nil(t, m["b"])
}

func TestDecode_RequiresPointerTarget(t *testing.T) {
	type profile struct{}
	err := factory.Decode(factory.Attrs{}, profile{})
	require.Error(t, err)
	assert.ErrorIs(t, err, factory.ErrShape)
}

func TestLazy_EvaluatedPerInvocation(t *testing.T) {
	n := 0
	users := factory.Define[factory.Attrs]("user", func() factory.Attrs {
		return factory.Attrs{
			"token": factory.Lazy(func() any {
				n++
				return fmt.Sprintf("token-%d", n)
			}),
		}
	})

	first, err := users.Build()
	require.NoError(t, err)
	second, err := users.Build()
	require.NoError(t, err)

	assert.Equal(t, "token-1", first["token"])
	assert.Equal(t, "token-2", second["token"])
}

func TestSequence_CountsAcrossInvocations(t *testing.T) {
	emailSeq := factory.Sequence(func(n int64) any {
		return fmt.Sprintf("user%d@test.local", n)
	})
	users := factory.Define[factory.Attrs]("user", func() factory.Attrs {
		return factory.Attrs{"email": emailSeq}
	})

	first := users.MustBuild()
	second := users.MustBuild()

	assert.Equal(t, "user1@test.local", first["email"])
	assert.Equal(t, "user2@test.local", second["email"])
}

func TestIdentifier_MapAndStruct(t *testing.T) {
	_, ok := factory.Identifier(factory.Attrs{"name": "N"})
	assert.False(t, ok)

	id, ok := factory.Identifier(factory.Attrs{"id": "user:1"})
	require.True(t, ok)
	assert.Equal(t, "user:1", id)

	type row struct{ ID string }
	_, ok = factory.Identifier(row{})
	assert.False(t, ok)

	id, ok = factory.Identifier(row{ID: "r1"})
	require.True(t, ok)
	assert.Equal(t, "r1", id)

	id, ok = factory.Identifier(&row{ID: "r2"})
	require.True(t, ok)
	assert.Equal(t, "r2", id)
}

func TestSetIdentifier_MapStructAndPointer(t *testing.T) {
	m := factory.Attrs{"name": "N"}
	got, err := factory.SetIdentifier(m, "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.(factory.Attrs)["id"])

	type row struct {
		Key string `factory:"id"`
	}

	// Value instances come back as an updated copy.
	got, err = factory.SetIdentifier(row{}, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.(row).Key)

	// Pointer instances update in place.
	r := &row{}
	got, err = factory.SetIdentifier(r, "r2")
	require.NoError(t, err)
	assert.Same(t, r, got)
	assert.Equal(t, "r2", r.Key)

	type bare struct{ Name string }
	_, err = factory.SetIdentifier(bare{}, "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, factory.ErrNoIdentifier)
}
