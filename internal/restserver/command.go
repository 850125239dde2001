package restserver

import (
	"net/http"

	"github.com/slashless/slashless/internal/auth"
	"github.com/slashless/slashless/internal/decode"
	"github.com/slashless/slashless/internal/encoding"
	"github.com/slashless/slashless/internal/redisvalue"
)

// handleCommand implements the Command Handler (spec.md §4.6): one
// decoded command executed through the pool, wrapped in {"result":...}
// on success and {"error":...} on any Redis-level failure.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	cmd, err := decode.Command(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	args := make([]interface{}, len(cmd)-1)
	for i, a := range cmd[1:] {
		args[i] = a
	}

	reply, err := s.Pool.ExecuteCommand(r.Context(), cmd[0], args...)
	if err != nil {
		writeJSON(w, http.StatusOK, errorBody{Error: err.Error()})
		return
	}

	body2 := map[string]interface{}{"result": redisvalue.ToJSON(reply)}
	writeJSON(w, http.StatusOK, encoding.Encode(body2, auth.EncodingEnabled(r)))
}
