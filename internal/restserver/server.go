// Package restserver implements the HTTP surface described in spec.md
// §6: the Upstash-compatible REST API routes, bearer auth, body-size
// limit, and permissive CORS, executing commands against an
// internal/pool.Pool and shaping responses with internal/redisvalue and
// internal/encoding.
package restserver

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/slashless/slashless/internal/auth"
	"github.com/slashless/slashless/internal/pool"
)

// maxBodyBytes enforces spec.md §6's 10 MiB request body limit.
const maxBodyBytes = 10 << 20

// Server executes Redis commands received over the Upstash-compatible
// REST API against Pool, gated by Token.
type Server struct {
	Pool   *pool.Pool
	Token  string
	Logger *logrus.Logger
}

// New builds the http.Handler for the full HTTP surface: the welcome
// and health routes (no auth), and the three authenticated execution
// routes, wrapped in a permissive CORS policy.
func New(p *pool.Pool, token string, logger *logrus.Logger) http.Handler {
	s := &Server{Pool: p, Token: token, Logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/pipeline", s.requireAuth(s.handlePipeline))
	mux.HandleFunc("/multi-exec", s.requireAuth(s.handleTransaction))

	// AllowAll configures rs/cors to accept any origin, echo back whatever
	// method and headers the preflight requests (spec.md §6: "all origins,
	// all methods, all headers"), matching the original's
	// tower_http::cors::CorsLayer::permissive() rather than enumerating a
	// fixed method list.
	return cors.AllowAll().Handler(mux)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.requireAuth(s.handleCommand)(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "Welcome to Serverless Redis HTTP!")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireAuth wraps next with spec.md §4.3's Auth Filter: malformed
// Authorization headers are a 400, mismatched tokens a 401.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.ExtractToken(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		if err := auth.Validate(token, s.Token); err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid token"})
			return
		}
		next(w, r)
	}
}

// errorBody is the {"error": "..."} shape returned for both HTTP-level
// errors and Redis logic/connection errors (spec.md §7).
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return io.ReadAll(r.Body)
}
