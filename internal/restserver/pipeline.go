package restserver

import (
	"net/http"
	"strings"

	"github.com/slashless/slashless/internal/auth"
	"github.com/slashless/slashless/internal/decode"
	"github.com/slashless/slashless/internal/encoding"
	"github.com/slashless/slashless/internal/pool"
	"github.com/slashless/slashless/internal/redisvalue"
)

// handlePipeline implements the Pipeline Handler (spec.md §4.7): a
// non-atomic batch submitted in one round trip, with the MGET/DEL
// zero-argument short-circuits applied before Redis is ever contacted.
func (s *Server) handlePipeline(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	cmds, err := decode.Batch(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	if shortCircuit, ok := pipelineShortCircuit(cmds); ok {
		writeJSON(w, http.StatusOK, encodeResults(shortCircuit, auth.EncodingEnabled(r)))
		return
	}

	if len(cmds) == 0 {
		writeJSON(w, http.StatusOK, []interface{}{})
		return
	}

	poolCmds := make([]pool.Cmd, len(cmds))
	for i, c := range cmds {
		args := make([]interface{}, len(c)-1)
		for j, a := range c[1:] {
			args[j] = a
		}
		poolCmds[i] = pool.Cmd{Name: c[0], Args: args}
	}

	replies, err := s.Pool.ExecutePipeline(r.Context(), poolCmds)
	if err != nil {
		writeJSON(w, http.StatusOK, errorBody{Error: err.Error()})
		return
	}

	results := make([]interface{}, len(replies))
	for i, reply := range replies {
		if e, ok := reply.(error); ok {
			results[i] = errorBody{Error: e.Error()}
			continue
		}
		results[i] = map[string]interface{}{"result": redisvalue.ToJSON(reply)}
	}
	writeJSON(w, http.StatusOK, encodeResults(results, auth.EncodingEnabled(r)))
}

// pipelineShortCircuit implements spec.md §4.7's zero-argument
// short-circuits: a pipeline that is exactly one MGET or DEL command
// with no arguments never touches Redis.
func pipelineShortCircuit(cmds [][]string) ([]interface{}, bool) {
	if len(cmds) != 1 || len(cmds[0]) != 1 {
		return nil, false
	}
	switch strings.ToUpper(cmds[0][0]) {
	case "MGET":
		return []interface{}{map[string]interface{}{"result": []interface{}{}}}, true
	case "DEL":
		return []interface{}{map[string]interface{}{"result": int64(0)}}, true
	default:
		return nil, false
	}
}

// encodeResults applies the Response Encoder to each {"result":...} or
// {"error":...} element independently, the way a batch of independent
// single-command responses would be encoded.
func encodeResults(results []interface{}, enabled bool) []interface{} {
	out := make([]interface{}, len(results))
	for i, r := range results {
		if eb, ok := r.(errorBody); ok {
			out[i] = eb
			continue
		}
		out[i] = encoding.Encode(r, enabled)
	}
	return out
}
