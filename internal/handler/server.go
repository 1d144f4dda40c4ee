package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/pricofy/translation-proxy/internal/domain"
)

// Burst limiter table bounds.
const (
	maxClients = 10000
	clientIdle = 10 * time.Minute
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Server exposes the handler over net/http.
type Server struct {
	handler    *Handler
	gatherer   prometheus.Gatherer
	rateLimit  float64
	rateBurst  int
	trustProxy bool

	mu      sync.Mutex
	clients map[string]*client
	now     func() time.Time
}

// NewServer creates an HTTP server. A rateLimit of zero disables the
// per-client burst limiter. A nil gatherer disables /metrics. Forwarding
// headers identify the client only when trustProxy is set.
func NewServer(h *Handler, gatherer prometheus.Gatherer, rateLimit float64, rateBurst int, trustProxy bool) *Server {
	return &Server{
		handler:    h,
		gatherer:   gatherer,
		rateLimit:  rateLimit,
		rateBurst:  rateBurst,
		trustProxy: trustProxy,
		clients:    make(map[string]*client),
		now:        time.Now,
	}
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /translate", s.burstLimit(s.handleTranslate))
	mux.HandleFunc("OPTIONS /translate", s.handlePreflight)
	mux.HandleFunc("GET /{$}", s.handleInfo)
	mux.HandleFunc("GET /privacy", s.handleInfo)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return cors(mux)
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("request body exceeds %d bytes", MaxBodyBytes))
			return
		}
		writeJSONError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	identity := strings.TrimSpace(r.Header.Get(HeaderIdentity))
	writeReply(w, s.handler.Translate(r.Context(), identity, body))
}

func (s *Server) handlePreflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleInfo(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(InfoPage())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func writeReply(w http.ResponseWriter, reply Reply) {
	for k, v := range reply.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(reply.Status)
	_, _ = w.Write(reply.Body)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.ErrorBody{Error: msg})
}

// cors allows calls from the design-tool plugin iframe, which has a null origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, "+HeaderIdentity)
		h.Set("Access-Control-Expose-Headers", HeaderRemaining+", "+HeaderLimit+", "+HeaderRequestID)
		next.ServeHTTP(w, r)
	})
}

// burstLimit throttles rapid requests per client IP before they reach the
// daily quota. It is not a quota decision, so the reply has no rateLimited marker.
func (s *Server) burstLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimit > 0 && !s.getLimiter(s.getClientIP(r)).Allow() {
			writeJSONError(w, http.StatusTooManyRequests, "too many requests")
			return
		}
		next(w, r)
	}
}

func (s *Server) getLimiter(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if c, ok := s.clients[ip]; ok {
		c.lastSeen = now
		return c.limiter
	}

	if len(s.clients) >= maxClients {
		s.evict(now)
	}

	c := &client{limiter: rate.NewLimiter(rate.Limit(s.rateLimit), s.rateBurst), lastSeen: now}
	s.clients[ip] = c
	return c.limiter
}

// evict drops idle clients, or every client if none are idle.
// Callers hold s.mu.
func (s *Server) evict(now time.Time) {
	for ip, c := range s.clients {
		if now.Sub(c.lastSeen) > clientIdle {
			delete(s.clients, ip)
		}
	}
	if len(s.clients) >= maxClients {
		clear(s.clients)
	}
}

func (s *Server) getClientIP(r *http.Request) string {
	if s.trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			return strings.TrimSpace(first)
		}

		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			return xri
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
