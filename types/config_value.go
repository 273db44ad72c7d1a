package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// ConfigKind tags the variant held by a ConfigValue.
type ConfigKind uint8

const (
	KindInvalid ConfigKind = iota
	KindU64
	KindAddress
	KindString
	KindASCII
	KindBool
	KindBytes
	KindTypeName
)

func (k ConfigKind) String() string {
	switch k {
	case KindU64:
		return "u64"
	case KindAddress:
		return "address"
	case KindString:
		return "string"
	case KindASCII:
		return "ascii"
	case KindBool:
		return "bool"
	case KindBytes:
		return "bytes"
	case KindTypeName:
		return "type_name"
	default:
		return "invalid"
	}
}

func kindFromString(s string) ConfigKind {
	for k := KindU64; k <= KindTypeName; k++ {
		if k.String() == s {
			return k
		}
	}
	return KindInvalid
}

// ConfigValue is a closed tagged union over the value types a registry can
// store in its configuration. Values are immutable: byte slices are copied
// on the way in and on the way out.
//
// The zero ConfigValue holds no variant and every accessor fails on it.
type ConfigValue struct {
	kind  ConfigKind
	u64   uint64
	addr  Address
	str   string
	flag  bool
	bytes []byte
}

func U64Value(v uint64) ConfigValue {
	return ConfigValue{kind: KindU64, u64: v}
}

func AddressValue(a Address) ConfigValue {
	return ConfigValue{kind: KindAddress, addr: a}
}

// StringValue holds a UTF-8 string. Invalid UTF-8 is rejected.
func StringValue(s string) (ConfigValue, error) {
	if !utf8.ValidString(s) {
		return ConfigValue{}, NewError(ErrInvalidString, "config string is not valid UTF-8")
	}
	return ConfigValue{kind: KindString, str: s}, nil
}

// ASCIIValue holds a string restricted to 7-bit ASCII.
func ASCIIValue(s string) (ConfigValue, error) {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return ConfigValue{}, NewError(ErrInvalidString, "config string has non-ASCII byte at offset %d", i)
		}
	}
	return ConfigValue{kind: KindASCII, str: s}, nil
}

func BoolValue(b bool) ConfigValue {
	return ConfigValue{kind: KindBool, flag: b}
}

func BytesValue(b []byte) ConfigValue {
	return ConfigValue{kind: KindBytes, bytes: append([]byte{}, b...)}
}

// TypeNameValue holds a type identifier such as an asset type name.
func TypeNameValue(name string) ConfigValue {
	return ConfigValue{kind: KindTypeName, str: name}
}

func (v ConfigValue) Kind() ConfigKind {
	return v.kind
}

func (v ConfigValue) mismatch(want ConfigKind) error {
	return NewError(ErrConfigTypeMismatch, "config value holds %s, not %s", v.kind, want)
}

func (v ConfigValue) AsU64() (uint64, error) {
	if v.kind != KindU64 {
		return 0, v.mismatch(KindU64)
	}
	return v.u64, nil
}

func (v ConfigValue) AsAddress() (Address, error) {
	if v.kind != KindAddress {
		return Address{}, v.mismatch(KindAddress)
	}
	return v.addr, nil
}

func (v ConfigValue) AsString() (string, error) {
	if v.kind != KindString {
		return "", v.mismatch(KindString)
	}
	return v.str, nil
}

func (v ConfigValue) AsASCII() (string, error) {
	if v.kind != KindASCII {
		return "", v.mismatch(KindASCII)
	}
	return v.str, nil
}

func (v ConfigValue) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, v.mismatch(KindBool)
	}
	return v.flag, nil
}

func (v ConfigValue) AsBytes() ([]byte, error) {
	if v.kind != KindBytes {
		return nil, v.mismatch(KindBytes)
	}
	return append([]byte{}, v.bytes...), nil
}

func (v ConfigValue) AsTypeName() (string, error) {
	if v.kind != KindTypeName {
		return "", v.mismatch(KindTypeName)
	}
	return v.str, nil
}

// Equal reports whether both values hold the same variant and payload.
func (v ConfigValue) Equal(o ConfigValue) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindU64:
		return v.u64 == o.u64
	case KindAddress:
		return v.addr == o.addr
	case KindString, KindASCII, KindTypeName:
		return v.str == o.str
	case KindBool:
		return v.flag == o.flag
	case KindBytes:
		return bytes.Equal(v.bytes, o.bytes)
	default:
		return true
	}
}

func (v ConfigValue) String() string {
	switch v.kind {
	case KindU64:
		return fmt.Sprintf("u64(%d)", v.u64)
	case KindAddress:
		return fmt.Sprintf("address(%s)", v.addr.Hex())
	case KindString, KindASCII, KindTypeName:
		return fmt.Sprintf("%s(%q)", v.kind, v.str)
	case KindBool:
		return fmt.Sprintf("bool(%t)", v.flag)
	case KindBytes:
		return fmt.Sprintf("bytes(%x)", v.bytes)
	default:
		return "invalid"
	}
}

type configValueJSON struct {
	Kind    string   `json:"kind"`
	U64     uint64   `json:"u64,omitempty"`
	Address *Address `json:"address,omitempty"`
	Str     string   `json:"str,omitempty"`
	Bool    bool     `json:"bool,omitempty"`
	Bytes   []byte   `json:"bytes,omitempty"`
}

// MarshalJSON encodes the variant tag with its payload. The zero value
// cannot be encoded.
func (v ConfigValue) MarshalJSON() ([]byte, error) {
	out := configValueJSON{Kind: v.kind.String()}
	switch v.kind {
	case KindU64:
		out.U64 = v.u64
	case KindAddress:
		addr := v.addr
		out.Address = &addr
	case KindString, KindASCII, KindTypeName:
		out.Str = v.str
	case KindBool:
		out.Bool = v.flag
	case KindBytes:
		out.Bytes = v.bytes
	default:
		return nil, NewError(ErrConfigTypeMismatch, "config value holds no variant")
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes what MarshalJSON produced, re-checking string
// payloads.
func (v *ConfigValue) UnmarshalJSON(data []byte) error {
	var in configValueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	var (
		decoded ConfigValue
		err     error
	)
	switch kindFromString(in.Kind) {
	case KindU64:
		decoded = U64Value(in.U64)
	case KindAddress:
		if in.Address == nil {
			return NewError(ErrConfigTypeMismatch, "address config value has no address")
		}
		decoded = AddressValue(*in.Address)
	case KindString:
		decoded, err = StringValue(in.Str)
	case KindASCII:
		decoded, err = ASCIIValue(in.Str)
	case KindBool:
		decoded = BoolValue(in.Bool)
	case KindBytes:
		decoded = BytesValue(in.Bytes)
	case KindTypeName:
		decoded = TypeNameValue(in.Str)
	default:
		return NewError(ErrConfigTypeMismatch, "unknown config kind %q", in.Kind)
	}
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}
