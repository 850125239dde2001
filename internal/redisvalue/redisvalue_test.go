package redisvalue

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToJSONNil(t *testing.T) {
	require.Nil(t, ToJSON(nil))
}

func TestToJSONInt(t *testing.T) {
	require.Equal(t, int64(42), ToJSON(int64(42)))
}

func TestToJSONStatusAndOK(t *testing.T) {
	require.Equal(t, "OK", ToJSON("OK"))
	require.Equal(t, "PONG", ToJSON("PONG"))
}

func TestToJSONBulkArray(t *testing.T) {
	reply := []interface{}{[]byte("a"), int64(1), nil}
	require.Equal(t, []interface{}{"a", int64(1), nil}, ToJSON(reply))
}

// TestToJSONValidUTF8BytesPassThrough covers spec.md §4.1/§8's value codec
// totality property for the common case: valid UTF-8 bulk bytes become a
// plain JSON string, not base64.
func TestToJSONValidUTF8BytesPassThrough(t *testing.T) {
	require.Equal(t, "hello", ToJSON([]byte("hello")))
}

// TestToJSONNonUTF8BytesBase64Encoded covers spec.md §8's "value codec
// totality" property: bytes that are not valid UTF-8 must still produce a
// valid JSON value, as the base64 encoding of the raw bytes, so that the
// original bytes round-trip exactly.
func TestToJSONNonUTF8BytesBase64Encoded(t *testing.T) {
	raw := []byte{0xff, 0xfe, 0x00, 0x80, 0x01}
	got := ToJSON(raw)

	s, ok := got.(string)
	require.True(t, ok, "non-UTF-8 bytes must produce a JSON string leaf")

	decoded, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	require.Equal(t, raw, decoded)
}

func TestToJSONNestedBulkWithNonUTF8Bytes(t *testing.T) {
	raw := []byte{0xc3, 0x28} // invalid UTF-8 sequence
	reply := []interface{}{[]byte("ok"), raw}

	got := ToJSON(reply)
	arr, ok := got.([]interface{})
	require.True(t, ok)
	require.Equal(t, "ok", arr[0])

	s, ok := arr[1].(string)
	require.True(t, ok)
	decoded, err := base64.StdEncoding.DecodeString(s)
	require.NoError(t, err)
	require.Equal(t, raw, decoded)
}
