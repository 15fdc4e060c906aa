package relay

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gopkg.in/op/go-logging.v1"

	"cipherline/internal/domain"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// Server is the in-memory relay. All state is lost on exit.
type Server struct {
	mu       sync.Mutex
	bundles  map[domain.Username]domain.PreKeyBundle
	oneTime  map[domain.Username][]domain.OneTimePreKeyPublic
	issued   map[domain.Username]map[domain.OneTimePreKeyID]struct{}
	queues   map[domain.Username][]domain.Envelope
	now      func() time.Time
	log      *logging.Logger
	metrics  *metrics
	registry *prometheus.Registry
	mux      *http.ServeMux
}

// NewServer returns a relay with its own metrics registry.
func NewServer(log *logging.Logger) *Server {
	s := &Server{
		bundles:  make(map[domain.Username]domain.PreKeyBundle),
		oneTime:  make(map[domain.Username][]domain.OneTimePreKeyPublic),
		issued:   make(map[domain.Username]map[domain.OneTimePreKeyID]struct{}),
		queues:   make(map[domain.Username][]domain.Envelope),
		now:      time.Now,
		log:      log,
		registry: prometheus.NewRegistry(),
		mux:      http.NewServeMux(),
	}
	s.metrics = newMetrics(s.registry)

	s.handle("POST /register", "register", s.handleRegister)
	s.handle("GET /prekey/{username}", "prekey", s.handleBundle)
	s.handle("POST /msg/{username}", "send", s.handleSend)
	s.handle("GET /msg/{username}", "fetch", s.handleFetch)
	s.handle("POST /msg/{username}/ack", "ack", s.handleAck)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// statusWriter records the status code and body size of a response.
type statusWriter struct {
	http.ResponseWriter
	code  int
	bytes int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (s *Server) handle(pattern, route string, fn http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		r.Body = http.MaxBytesReader(sw, r.Body, maxBodyBytes)
		fn(sw, r)
		s.metrics.requests.WithLabelValues(route, strconv.Itoa(sw.code)).Inc()
		s.log.Debugf("%s %s from %s: %d, %d bytes in %v",
			r.Method, r.URL.Path, r.RemoteAddr, sw.code, sw.bytes, s.now().Sub(start))
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg domain.PreKeyRegistration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	user := reg.Bundle.Username
	if user == "" {
		http.Error(w, "missing username", http.StatusBadRequest)
		return
	}
	reg.Bundle.OneTimePreKey = nil

	s.mu.Lock()
	if prev, ok := s.bundles[user]; !ok || !prev.IdentityKey.Equal(reg.Bundle.IdentityKey) {
		// A new identity numbers its one-time keys from scratch.
		s.issued[user] = make(map[domain.OneTimePreKeyID]struct{})
	}
	s.bundles[user] = reg.Bundle
	// The client uploads every key it has not seen consumed. Keys already
	// handed out to an initiator stay retired even if the client re-sends them.
	issued := s.issued[user]
	pool := make([]domain.OneTimePreKeyPublic, 0, len(reg.OneTimePreKeys))
	for _, opk := range reg.OneTimePreKeys {
		if _, gone := issued[opk.ID]; !gone {
			pool = append(pool, opk)
		}
	}
	s.oneTime[user] = pool
	s.mu.Unlock()

	s.metrics.registrations.Inc()
	s.log.Infof("Registered %s with %d one-time pre-keys (%d retired)",
		user, len(pool), len(reg.OneTimePreKeys)-len(pool))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleBundle(w http.ResponseWriter, r *http.Request) {
	user := domain.Username(r.PathValue("username"))

	s.mu.Lock()
	b, ok := s.bundles[user]
	if ok {
		if pool := s.oneTime[user]; len(pool) > 0 {
			opk := pool[0]
			b.OneTimePreKey = &opk
			s.oneTime[user] = pool[1:]
			s.issued[user][opk.ID] = struct{}{}
		}
	}
	s.mu.Unlock()

	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	s.metrics.bundlesServed.Inc()
	if b.OneTimePreKey == nil {
		s.metrics.oneTimeExhausted.Inc()
		s.log.Warningf("One-time pre-keys of %s exhausted", user)
	}
	writeJSON(w, b)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	user := domain.Username(r.PathValue("username"))
	var env domain.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	env.To = user
	if env.Timestamp == 0 {
		env.Timestamp = s.now().Unix()
	}

	s.mu.Lock()
	s.queues[user] = append(s.queues[user], env)
	s.mu.Unlock()

	s.metrics.queued.Inc()
	s.metrics.queueDepth.Inc()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	user := domain.Username(r.PathValue("username"))
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	s.mu.Lock()
	q := s.queues[user]
	if limit > 0 && limit < len(q) {
		q = q[:limit]
	}
	out := append(make([]domain.Envelope, 0, len(q)), q...)
	s.mu.Unlock()

	writeJSON(w, out)
}

func (s *Server) handleAck(w http.ResponseWriter, r *http.Request) {
	user := domain.Username(r.PathValue("username"))
	var req ackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Count < 0 {
		http.Error(w, "invalid ack", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	q := s.queues[user]
	n := min(req.Count, len(q))
	if n == len(q) {
		delete(s.queues, user)
	} else {
		s.queues[user] = q[n:]
	}
	s.mu.Unlock()

	s.metrics.delivered.Add(float64(n))
	s.metrics.queueDepth.Sub(float64(n))
	w.WriteHeader(http.StatusOK)
}
