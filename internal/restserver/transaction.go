package restserver

import (
	"net/http"

	"github.com/slashless/slashless/internal/auth"
	"github.com/slashless/slashless/internal/decode"
	"github.com/slashless/slashless/internal/pool"
	"github.com/slashless/slashless/internal/redisvalue"
)

// handleTransaction implements the Transaction Handler (spec.md §4.8):
// MULTI, queue every decoded command, EXEC, atomically, with
// whole-transaction retry on connection loss at any step.
func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
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

	values, err := s.Pool.ExecuteTransaction(r.Context(), poolCmds)
	if err != nil {
		writeJSON(w, http.StatusOK, errorBody{Error: err.Error()})
		return
	}

	results := make([]interface{}, len(values))
	for i, v := range values {
		if e, ok := v.(error); ok {
			results[i] = errorBody{Error: e.Error()}
			continue
		}
		results[i] = map[string]interface{}{"result": redisvalue.ToJSON(v)}
	}
	writeJSON(w, http.StatusOK, encodeResults(results, auth.EncodingEnabled(r)))
}
