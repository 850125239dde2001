// Package decode implements the Request Decoder (spec.md §4.5): parsing
// the two accepted request-body shapes into a normalized list of
// command argument vectors, coercing every scalar to its string form.
package decode

import (
	"encoding/json"
	"errors"
	"strconv"
)

// ErrMalformed is returned for any envelope shape the decoder does not
// recognize; handlers map it to HTTP 400.
var ErrMalformed = errors.New("invalid command array. Please provide a valid redis command")

// ErrEmptyCommand is returned when a single-command body decodes to an
// empty argument vector.
var ErrEmptyCommand = errors.New("command array cannot be empty")

// envelope is the `{"_json": [...]}` body shape some SDK versions send
// instead of a bare top-level array.
type envelope struct {
	JSON json.RawMessage `json:"_json"`
}

// rawBody unmarshals body into either a bare array or a {"_json": array}
// object, per §4.5 step 1, returning the chosen array's raw elements.
func rawBody(body []byte) ([]json.RawMessage, error) {
	// A JSON null unmarshals into a nil slice without error; only a non-nil
	// slice means the value really was an array.
	var arr []json.RawMessage
	if err := json.Unmarshal(body, &arr); err == nil && arr != nil {
		return arr, nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && len(env.JSON) > 0 {
		var inner []json.RawMessage
		if err := json.Unmarshal(env.JSON, &inner); err == nil && inner != nil {
			return inner, nil
		}
	}
	return nil, ErrMalformed
}

// Command decodes a single-command request body (§4.5 step 2): if the
// first element of the envelope array is itself an array, that inner
// array is the command; otherwise the envelope array itself is the
// command.
func Command(body []byte) ([]string, error) {
	elems, err := rawBody(body)
	if err != nil {
		return nil, err
	}
	if len(elems) > 0 {
		if inner, ok := asArray(elems[0]); ok {
			elems = inner
		}
	}
	cmd, err := coerceAll(elems)
	if err != nil {
		return nil, err
	}
	if len(cmd) == 0 {
		return nil, ErrEmptyCommand
	}
	return cmd, nil
}

// Batch decodes a pipeline or transaction request body (§4.5 step 3):
// every top-level element must itself be an array; empty commands are
// skipped after coercion.
func Batch(body []byte) ([][]string, error) {
	elems, err := rawBody(body)
	if err != nil {
		return nil, err
	}

	out := make([][]string, 0, len(elems))
	for _, elem := range elems {
		inner, ok := asArray(elem)
		if !ok {
			return nil, ErrMalformed
		}
		cmd, err := coerceAll(inner)
		if err != nil {
			return nil, err
		}
		if len(cmd) == 0 {
			continue
		}
		out = append(out, cmd)
	}
	return out, nil
}

func asArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	var arr []json.RawMessage
	if err := json.Unmarshal(raw, &arr); err != nil || arr == nil {
		return nil, false
	}
	return arr, true
}

// coerceAll applies the §3 scalar coercion rules element-wise.
func coerceAll(elems []json.RawMessage) ([]string, error) {
	out := make([]string, len(elems))
	for i, raw := range elems {
		s, err := coerceScalar(raw)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// coerceScalar converts one JSON value to its string form per §3:
// strings pass through; numbers keep their JSON text (see formatNumber);
// booleans become "true"/"false"; null becomes ""; anything else falls
// back to its compact JSON rendering.
func coerceScalar(raw json.RawMessage) (string, error) {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", ErrMalformed
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return formatNumber(raw, t), nil
	default:
		compact, err := json.Marshal(t)
		if err != nil {
			return "", ErrMalformed
		}
		return string(compact), nil
	}
}

// formatNumber prefers the original JSON text of a number (so integers
// like 100 render as "100", not "1e+02" or "100.0"), falling back to a
// canonical decimal rendering of the parsed float.
func formatNumber(raw json.RawMessage, f float64) string {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
