// Package encoding implements the optional base64 wrapping of string
// leaves in a JSON response, negotiated by the upstash-encoding request
// header.
package encoding

import "encoding/base64"

// Header is the request header that enables encoding for a single
// request. The match is case-sensitive on the header value only; header
// names themselves are already canonicalized by net/http.
const Header = "Upstash-Encoding"

// HeaderValue is the only value of Header that enables encoding.
const HeaderValue = "base64"

// Enabled reports whether the given header value turns encoding on for
// this request. The comparison is exact-match, case-sensitive, per the
// reference SDK's behavior.
func Enabled(headerValue string) bool {
	return headerValue == HeaderValue
}

// Encode applies the Response Encoder to value. When enabled is false,
// value is returned unchanged. Otherwise, if value is a map containing a
// "result" key, only that field is recursively encoded and wrapped back
// into a single-key map; any other value is recursively encoded as-is.
//
// Recursively, nil/bool/number values pass through unchanged, arrays and
// map values are encoded element-wise, and string leaves are replaced by
// the base64 encoding of their UTF-8 bytes. Encode is not idempotent and
// must be applied at most once per response.
func Encode(value interface{}, enabled bool) interface{} {
	if !enabled {
		return value
	}
	if obj, ok := value.(map[string]interface{}); ok {
		if result, ok := obj["result"]; ok {
			return map[string]interface{}{"result": encodeValue(result)}
		}
	}
	return encodeValue(value)
}

func encodeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return base64.StdEncoding.EncodeToString([]byte(v))
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, elem := range v {
			out[i] = encodeValue(elem)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, elem := range v {
			out[k] = encodeValue(elem)
		}
		return out
	default:
		// bool, int64, float64, json.Number, etc. pass through unchanged.
		return v
	}
}
