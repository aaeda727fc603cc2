package sonic_transport

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agnivade/sonic_transport/engines"
	"github.com/agnivade/sonic_transport/history"
	"github.com/agnivade/sonic_transport/observe"
)

// Sender plays a message. *Transport implements it.
type Sender interface {
	Send(ctx context.Context, text string, protocol engines.Protocol, volume int) error
}

// HistorySource returns recent reports.
type HistorySource interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// ServerConfig configures the relay server.
type ServerConfig struct {
	// Addr is the listen address. Default: ":8081".
	Addr string

	// Sender handles transmit requests from clients. Requests are rejected
	// when it is nil.
	Sender Sender

	// History serves /history when set.
	History HistorySource

	// Protocol and Volume apply to requests that leave them out.
	Protocol engines.Protocol
	Volume   int

	// Metrics is optional.
	Metrics *observe.Metrics
}

// Server relays decoded reports to WebSocket clients and accepts transmit
// requests from them.
type Server struct {
	srv     *http.Server
	log     *log.Logger
	cfg     ServerConfig
	metrics *observe.Metrics

	mu    sync.Mutex
	conns map[*WebConn]struct{}
}

// New creates a relay server.
func New(cfg ServerConfig, logger *log.Logger) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":8081"
	}
	mux := http.NewServeMux()

	server := &Server{
		srv: &http.Server{
			Addr:         cfg.Addr,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
			Handler:      mux,
		},
		log:     logger,
		cfg:     cfg,
		metrics: cfg.Metrics,
		conns:   make(map[*WebConn]struct{}),
	}

	mux.HandleFunc("/ws", server.handleWebSocket)
	mux.HandleFunc("/history", server.handleHistory)
	mux.Handle("/metrics", promhttp.Handler())

	return server
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.log.Printf("Starting server on %s", s.srv.Addr)
	if err := s.srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down and closes every client connection.
func (s *Server) Stop() error {
	s.log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	err := s.srv.Shutdown(ctx)
	s.stopAllConns()
	return err
}

// Broadcast sends resp to every connected client. Clients that are not
// keeping up miss the message.
func (s *Server) Broadcast(resp WebSocketResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.log.Printf("Failed to marshal response: %v\n", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for wc := range s.conns {
		if !wc.enqueue(data) {
			s.log.Printf("dropping message for slow client %s\n", wc.remote)
		}
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *Server) addConn(wc *WebConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[wc]; ok {
		return
	}
	s.conns[wc] = struct{}{}
	s.metrics.RelayClientConnected(context.Background(), 1)
}

// removeConn unregisters wc and closes its outgoing queue. It reports
// whether wc was registered.
func (s *Server) removeConn(wc *WebConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[wc]; !ok {
		return false
	}
	delete(s.conns, wc)
	if wc.send != nil {
		close(wc.send)
	}
	s.metrics.RelayClientConnected(context.Background(), -1)
	return true
}

func (s *Server) stopAllConns() {
	s.mu.Lock()
	conns := make([]*WebConn, 0, len(s.conns))
	for wc := range s.conns {
		conns = append(conns, wc)
	}
	s.mu.Unlock()

	for _, wc := range conns {
		if wc.conn != nil {
			wc.conn.Close()
		}
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.cfg.History == nil {
		http.Error(w, "history disabled", http.StatusNotFound)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.cfg.History.Recent(r.Context(), limit)
	if err != nil {
		s.log.Printf("history: %v\n", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}

	out := make([]WebSocketResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ResponseFromEntry(e))
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.log.Printf("write history: %v\n", err)
	}
}
