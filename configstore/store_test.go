package configstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/paymentkit/types"
)

func TestStore_Upsert(t *testing.T) {
	s := New()

	t.Run("insert then overwrite keeps one entry", func(t *testing.T) {
		s.Upsert("epoch_expiration_duration", types.U64Value(30))
		s.Upsert("registry_managed_funds", types.BoolValue(false))
		s.Upsert("epoch_expiration_duration", types.U64Value(5))

		assert.Equal(t, 2, s.Len())
		v, ok := s.Get("epoch_expiration_duration")
		require.True(t, ok)
		n, err := v.AsU64()
		require.NoError(t, err)
		assert.Equal(t, uint64(5), n)
	})

	t.Run("overwritten key moves to the end", func(t *testing.T) {
		assert.Equal(t, []string{"registry_managed_funds", "epoch_expiration_duration"}, s.Keys())
	})

	t.Run("replacement may change the variant", func(t *testing.T) {
		s.Upsert("label", types.TypeNameValue("SUI"))
		s.Upsert("label", types.BoolValue(true))
		v, _ := s.Get("label")
		assert.Equal(t, types.KindBool, v.Kind())
	})
}

func TestStore_GetAndRemove(t *testing.T) {
	s := New()
	_, ok := s.Get("missing")
	assert.False(t, ok)

	s.Upsert("a", types.U64Value(1))
	s.Upsert("b", types.U64Value(2))
	v, ok := s.Remove("a")
	require.True(t, ok)
	assert.True(t, v.Equal(types.U64Value(1)))
	assert.False(t, s.Contains("a"))
	assert.Equal(t, []string{"b"}, s.Keys())

	_, ok = s.Remove("a")
	assert.False(t, ok)
}

func TestStore_KeysIsACopy(t *testing.T) {
	s := New()
	s.Upsert("a", types.U64Value(1))
	keys := s.Keys()
	keys[0] = "z"
	assert.Equal(t, []string{"a"}, s.Keys())
}
