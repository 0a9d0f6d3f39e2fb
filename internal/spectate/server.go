// Package spectate serves a read-only view of a running session: a websocket
// feed of snapshots plus small JSON and metrics endpoints. Spectators cannot
// send commands.
package spectate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lox/horserace/internal/game"
	"github.com/lox/horserace/internal/metrics"
	"github.com/lox/horserace/internal/race"
)

const (
	// DefaultBroadcastRate caps frame broadcasts per second.
	DefaultBroadcastRate = 20
	// DefaultResultsTTL is how long completed tournaments stay listed.
	DefaultResultsTTL = time.Hour
)

// Message is the envelope sent to spectators.
type Message struct {
	Type     string          `json:"type"`
	Outcome  string          `json:"outcome,omitempty"`
	Snapshot json.RawMessage `json:"snapshot"`
}

// Server fans snapshots out to spectator websockets.
type Server struct {
	addr     string
	logger   *log.Logger
	upgrader websocket.Upgrader
	metrics  *metrics.Collector
	results  *cache.Cache
	limiter  *rate.Limiter

	register   chan *spectator
	unregister chan *spectator
	broadcast  chan []byte
	done       chan struct{}
	spectators atomic.Int64

	mu          sync.RWMutex
	latest      []byte // encoded Message
	latestState []byte // encoded Snapshot
	lastStatus  game.Status
	lastRound   int
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics serves c on /metrics and reports the spectator count to it.
func WithMetrics(c *metrics.Collector) Option {
	return func(s *Server) { s.metrics = c }
}

// WithBroadcastRate caps how many frames per second are broadcast. Status
// and round changes are always sent.
func WithBroadcastRate(perSecond float64) Option {
	return func(s *Server) {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithResultsTTL sets how long completed tournaments are kept.
func WithResultsTTL(ttl time.Duration) Option {
	return func(s *Server) { s.results = cache.New(ttl, ttl*2) }
}

// NewServer creates a spectator server that will listen on addr.
func NewServer(addr string, logger *log.Logger, opts ...Option) *Server {
	s := &Server{
		addr:   addr,
		logger: logger.WithPrefix("spectate"),
		upgrader: websocket.Upgrader{
			// Read-only feed, any origin may watch.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		results:    cache.New(DefaultResultsTTL, DefaultResultsTTL*2),
		limiter:    rate.NewLimiter(rate.Limit(DefaultBroadcastRate), 1),
		register:   make(chan *spectator),
		unregister: make(chan *spectator),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("GET /state", s.handleState)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /results", s.handleResults)
	mux.HandleFunc("GET /results/{id}", s.handleResult)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// Run serves HTTP and the broadcast hub until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.runHub(ctx)
		return nil
	})
	g.Go(func() error {
		s.logger.Info("Starting spectator server", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("spectator server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Spectators returns the number of connected websockets.
func (s *Server) Spectators() int {
	return int(s.spectators.Load())
}

// Publish records snap as the latest state and broadcasts it unless the
// frame is throttled. It reports whether a broadcast was queued. Safe to call
// from the engine goroutine; it never blocks.
func (s *Server) Publish(snap game.Snapshot, outcome game.TickOutcome) bool {
	state, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error("Failed to encode snapshot", "error", err)
		return false
	}
	msg, err := json.Marshal(Message{Type: "snapshot", Outcome: outcome.String(), Snapshot: state})
	if err != nil {
		s.logger.Error("Failed to encode message", "error", err)
		return false
	}

	s.mu.Lock()
	changed := s.latest == nil || snap.Status != s.lastStatus || snap.RoundIndex != s.lastRound
	s.latest = msg
	s.latestState = state
	s.lastStatus = snap.Status
	s.lastRound = snap.RoundIndex
	s.mu.Unlock()

	if !changed && outcome != game.TickFinished && !s.limiter.Allow() {
		return false
	}

	select {
	case s.broadcast <- msg:
		return true
	default:
		s.logger.Debug("Broadcast queue full, dropping frame")
		return false
	}
}

// OnEvent keeps completed tournaments for /results.
func (s *Server) OnEvent(event game.GameEvent) {
	if done, ok := event.(game.TournamentCompletedEvent); ok {
		s.results.Set(done.TournamentID, done.Races, cache.DefaultExpiration)
	}
}

func (s *Server) runHub(ctx context.Context) {
	defer close(s.done)

	clients := make(map[*spectator]bool)
	drop := func(c *spectator) {
		if clients[c] {
			delete(clients, c)
			close(c.send)
			s.setSpectators(len(clients))
		}
	}

	for {
		select {
		case <-ctx.Done():
			for c := range clients {
				drop(c)
			}
			return

		case c := <-s.register:
			clients[c] = true
			s.setSpectators(len(clients))
			s.mu.RLock()
			latest := s.latest
			s.mu.RUnlock()
			if latest != nil {
				c.send <- latest
			}
			s.logger.Info("Spectator connected", "id", c.id, "total", len(clients))

		case c := <-s.unregister:
			if clients[c] {
				drop(c)
				s.logger.Info("Spectator disconnected", "id", c.id, "total", len(clients))
			}

		case msg := <-s.broadcast:
			for c := range clients {
				select {
				case c.send <- msg:
				default:
					s.logger.Warn("Dropping slow spectator", "id", c.id)
					drop(c)
				}
			}
		}
	}
}

func (s *Server) setSpectators(n int) {
	s.spectators.Store(int64(n))
	if s.metrics != nil {
		s.metrics.Spectators.Set(float64(n))
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	c := newSpectator(conn, s.logger)
	select {
	case s.register <- c:
	case <-s.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump(s.unregister, s.done)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	state := s.latestState
	s.mu.RUnlock()

	if state == nil {
		http.Error(w, "no session yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(state)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	ids := make([]string, 0, s.results.ItemCount())
	for id := range s.results.Items() {
		ids = append(ids, id)
	}
	// Tournament ids sort by creation time.
	sort.Strings(ids)
	writeJSON(w, map[string][]string{"tournaments": ids})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	value, ok := s.results.Get(id)
	if !ok {
		http.Error(w, "unknown tournament", http.StatusNotFound)
		return
	}
	races, _ := value.([]race.Race)
	writeJSON(w, map[string]any{"tournament_id": id, "races": races})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
