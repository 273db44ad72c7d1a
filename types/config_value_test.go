package types

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValue_Accessors(t *testing.T) {
	addr := MustHexToAddress("0x2")

	t.Run("matching variant returns payload", func(t *testing.T) {
		n, err := U64Value(30).AsU64()
		require.NoError(t, err)
		assert.Equal(t, uint64(30), n)

		a, err := AddressValue(addr).AsAddress()
		require.NoError(t, err)
		assert.Equal(t, addr, a)

		b, err := BoolValue(true).AsBool()
		require.NoError(t, err)
		assert.True(t, b)

		name, err := TypeNameValue("0x2::sui::SUI").AsTypeName()
		require.NoError(t, err)
		assert.Equal(t, "0x2::sui::SUI", name)
	})

	t.Run("mismatched variant fails", func(t *testing.T) {
		_, err := U64Value(1).AsBool()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrConfigTypeMismatch))

		_, err = BoolValue(false).AsU64()
		assert.ErrorIs(t, err, ErrConfigTypeMismatch)

		s, err := ASCIIValue("abc")
		require.NoError(t, err)
		_, err = s.AsString()
		assert.ErrorIs(t, err, ErrConfigTypeMismatch, "ascii and utf-8 strings are distinct variants")
	})

	t.Run("zero value holds no variant", func(t *testing.T) {
		var v ConfigValue
		assert.Equal(t, KindInvalid, v.Kind())
		_, err := v.AsU64()
		assert.ErrorIs(t, err, ErrConfigTypeMismatch)
	})
}

func TestConfigValue_StringValidation(t *testing.T) {
	_, err := StringValue("héllo")
	assert.NoError(t, err)

	_, err = StringValue(string([]byte{0xff, 0xfe}))
	assert.ErrorIs(t, err, ErrInvalidString)

	_, err = ASCIIValue("héllo")
	assert.ErrorIs(t, err, ErrInvalidString)
}

func TestConfigValue_BytesAreCopied(t *testing.T) {
	src := []byte{1, 2, 3}
	v := BytesValue(src)
	src[0] = 9

	got, err := v.AsBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	got[1] = 9
	again, _ := v.AsBytes()
	assert.Equal(t, []byte{1, 2, 3}, again)
}

func TestConfigValue_Equal(t *testing.T) {
	assert.True(t, U64Value(5).Equal(U64Value(5)))
	assert.False(t, U64Value(5).Equal(U64Value(6)))
	assert.False(t, U64Value(1).Equal(BoolValue(true)))
	assert.True(t, BytesValue([]byte("x")).Equal(BytesValue([]byte("x"))))
	assert.False(t, TypeNameValue("a").Equal(TypeNameValue("b")))
}

func TestConfigValue_JSON(t *testing.T) {
	label, err := StringValue("café")
	require.NoError(t, err)

	for _, v := range []ConfigValue{U64Value(^uint64(0)), AddressValue(MustHexToAddress("0x2")), label, BytesValue([]byte{0, 1}), BoolValue(false)} {
		raw, err := json.Marshal(v)
		require.NoError(t, err)

		var back ConfigValue
		require.NoError(t, json.Unmarshal(raw, &back))
		assert.True(t, v.Equal(back), "%s", raw)
	}

	_, err = json.Marshal(ConfigValue{})
	assert.Error(t, err)

	var v ConfigValue
	err = json.Unmarshal([]byte(`{"kind":"ascii","str":"caf\u00e9"}`), &v)
	assert.ErrorIs(t, err, ErrInvalidString)
	err = json.Unmarshal([]byte(`{"kind":"float"}`), &v)
	assert.ErrorIs(t, err, ErrConfigTypeMismatch)
}
