// Package redisvalue converts redigo reply values into the generic JSON
// value tree returned to HTTP clients.
//
// redigo surfaces RESP replies as plain Go values: nil, int64, []byte,
// []interface{}, and a bare string for simple-string replies (status
// replies and the literal "OK" reply are indistinguishable at this layer,
// which matches the Upstash REST API: both become a JSON string).
package redisvalue

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"
)

// ToJSON converts a single redigo reply value to its JSON representation.
// Bulk strings that are not valid UTF-8 are base64-encoded so that the
// result is always representable as JSON text.
func ToJSON(reply interface{}) interface{} {
	switch v := reply.(type) {
	case nil:
		return nil
	case int64:
		return v
	case int:
		return int64(v)
	case []byte:
		return bytesToJSON(v)
	case string:
		return v
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, elem := range v {
			out[i] = ToJSON(elem)
		}
		return out
	default:
		// Defensive fallback for reply shapes redigo does not otherwise
		// produce (e.g. a custom Conn implementation in tests).
		return fmt.Sprint(v)
	}
}

func bytesToJSON(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return base64.StdEncoding.EncodeToString(b)
}
