package rest

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"cf-ddns/internal/domain"
	"cf-ddns/internal/handler"
	"cf-ddns/internal/usecase"

	"github.com/go-logr/logr"
	"golang.org/x/time/rate"
)

// RunFactory returns a reconciler with empty caches. Every request is its own run.
type RunFactory func() usecase.DDNSUsecase

// APIKeys holds the bearer tokens accepted by the server
type APIKeys struct {
	keys [][]byte
}

// ParseAPIKeys reads a comma separated key list, ignoring blanks
func ParseAPIKeys(list string) *APIKeys {
	s := &APIKeys{}
	for _, k := range strings.Split(list, ",") {
		if k = strings.TrimSpace(k); k != "" {
			s.keys = append(s.keys, []byte(k))
		}
	}
	return s
}

// Len returns the number of configured keys
func (s *APIKeys) Len() int {
	return len(s.keys)
}

// Validate checks if a key is valid
func (s *APIKeys) Validate(key string) bool {
	for _, k := range s.keys {
		if subtle.ConstantTimeCompare(k, []byte(key)) == 1 {
			return true
		}
	}
	return false
}

// Options configure the trigger server
type Options struct {
	Version string
	// SyncEvery and SyncBurst limit how often runs may be triggered
	SyncEvery time.Duration
	SyncBurst int
	Logger    logr.Logger
}

// Server exposes the reconciler over HTTP so routers and cron jobs can
// trigger a run with a plain webhook.
type Server struct {
	newRun    RunFactory
	hostnames map[string]domain.HostnameConfig
	apiKeys   *APIKeys
	limiter   *rate.Limiter
	version   string
	log       logr.Logger
}

// NewServer creates a new HTTP trigger server
func NewServer(newRun RunFactory, hostnames map[string]domain.HostnameConfig, apiKeys *APIKeys, opts Options) *Server {
	if opts.SyncEvery <= 0 {
		opts.SyncEvery = 10 * time.Second
	}
	if opts.SyncBurst <= 0 {
		opts.SyncBurst = 3
	}
	return &Server{
		newRun:    newRun,
		hostnames: hostnames,
		apiKeys:   apiKeys,
		limiter:   rate.NewLimiter(rate.Every(opts.SyncEvery), opts.SyncBurst),
		version:   opts.Version,
		log:       opts.Logger,
	}
}

// Handler returns the routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check (no auth required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		s.writeSuccess(w, map[string]string{
			"status":  "ok",
			"service": "cf-ddns-http",
			"version": s.version,
		})
	})

	mux.HandleFunc("POST /api/sync", s.authMiddleware(s.limit(s.handleSyncAll)))
	mux.HandleFunc("POST /api/sync/{hostname}", s.authMiddleware(s.limit(s.handleSyncHostname)))
	mux.HandleFunc("GET /api/ip", s.authMiddleware(s.handlePublicIP))

	return mux
}

// authMiddleware validates API keys
func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.writeError(w, http.StatusUnauthorized, "Missing Authorization header")
			return
		}

		// Extract Bearer token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			s.writeError(w, http.StatusUnauthorized, "Invalid Authorization format. Use: Bearer <token>")
			return
		}

		if !s.apiKeys.Validate(parts[1]) {
			s.writeError(w, http.StatusUnauthorized, "Invalid API key")
			return
		}

		next(w, r)
	}
}

// limit rejects sync runs beyond the configured rate
func (s *Server) limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.writeError(w, http.StatusTooManyRequests, "Too many sync requests, try again later")
			return
		}
		next(w, r)
	}
}

func (s *Server) handleSyncAll(w http.ResponseWriter, r *http.Request) {
	report := s.newRun().SyncAll(r.Context(), s.hostnames)
	s.log.Info("sync finished", "hostnames", len(report.Hostnames), "changed", report.Changed(), "failed", report.Failed())

	status := http.StatusOK
	if report.Failed() > 0 {
		status = http.StatusBadGateway
	}
	s.writeJSON(w, status, report.Failed() == 0, handler.NewReportView(report))
}

func (s *Server) handleSyncHostname(w http.ResponseWriter, r *http.Request) {
	hostname := r.PathValue("hostname")

	arguments := map[string]interface{}{}
	// an empty body means no overrides
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&arguments); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}

	overrides, err := handler.ParseOverrides(arguments)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg := overrides.Merge(s.hostnames[hostname])

	result, err := s.newRun().CommitRecord(r.Context(), hostname, cfg)
	if err != nil {
		s.log.Error(err, "sync failed", "hostname", hostname)
		s.writeJSON(w, statusFor(err), false, handler.NewHostnameView(hostname, nil, err))
		return
	}
	s.writeSuccess(w, handler.NewHostnameView(hostname, result, nil))
}

func (s *Server) handlePublicIP(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("family")
	if raw == "" {
		raw = "ipv4"
	}
	family, ok := domain.ParseIPFamily(raw)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "family must be ipv4 or ipv6")
		return
	}

	ip, err := s.newRun().PublicIP(r.Context(), family)
	if err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeSuccess(w, map[string]string{"family": family.String(), "ip": ip})
}

// statusFor maps an error kind to an HTTP status
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrConfig:
		return http.StatusBadRequest
	case domain.ErrNetwork, domain.ErrAPI, domain.ErrProtocol, domain.ErrProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes an error response
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// writeSuccess writes a success response
func (s *Server) writeSuccess(w http.ResponseWriter, data interface{}) {
	s.writeJSON(w, http.StatusOK, true, data)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, success bool, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": success,
		"data":    data,
	})
}
