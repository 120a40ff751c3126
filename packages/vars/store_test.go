package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SetGet(t *testing.T) {
	s := NewStore()
	s.Set("token", "abc123")

	v, err := s.Get("token")
	require.NoError(t, err)
	assert.Equal(t, "abc123", v)
}

func TestStore_GetUnset(t *testing.T) {
	s := NewStore()

	_, err := s.Get("missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "missing")
}

func TestStore_LastWriteWins(t *testing.T) {
	s := NewStore()
	s.Set("id", 1)
	s.Set("id", 2)

	v, err := s.Get("id")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	s := NewStore()
	s.Set("a", "x")

	s.Clear()
	assert.Equal(t, 0, s.Len())
	s.Clear()
	assert.Equal(t, 0, s.Len())

	_, err := s.Get("a")
	assert.True(t, IsNotFound(err))
}

func TestStore_CopiesValuesIn(t *testing.T) {
	s := NewStore()
	ids := []any{"18382788819"}
	s.Set("goodsIds", ids)

	// Mutating the caller's slice must not change the stored value.
	ids[0] = "mutated"

	v, err := s.Get("goodsIds")
	require.NoError(t, err)
	assert.Equal(t, []any{"18382788819"}, v)
}

func TestStore_Has(t *testing.T) {
	s := NewStore()
	assert.False(t, s.Has("token"))
	s.Set("token", nil)
	assert.True(t, s.Has("token"))
}
