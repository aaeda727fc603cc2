package sonic_transport

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/agnivade/sonic_transport/engines"
	"github.com/agnivade/sonic_transport/history"
)

const (
	// KindSent acknowledges a transmit request.
	KindSent = "sent"
	// KindError reports a failed transmit request.
	KindError = "error"

	sendQueueSize = 16
	writeWait     = 10 * time.Second

	// transmitMargin is allowed on top of the airtime of a transmit request.
	transmitMargin = 10 * time.Second
)

var errTransmitDisabled = errors.New("transmit disabled on this relay")

// airtimer is implemented by senders that know how long a message plays.
type airtimer interface {
	Airtime(length int, protocol engines.Protocol) time.Duration
}

// WebSocketRequest asks the relay to transmit Text. Protocol and Volume fall
// back to the server defaults.
type WebSocketRequest struct {
	Text     string `json:"text"`
	Protocol string `json:"protocol,omitempty"`
	Volume   *int   `json:"volume,omitempty"`
}

// WebSocketResponse is a report pushed to clients, or the answer to a
// request.
type WebSocketResponse struct {
	Message    string    `json:"message"`
	Kind       string    `json:"kind"`
	Display    string    `json:"display,omitempty"`
	Lat        *float64  `json:"lat,omitempty"`
	Lng        *float64  `json:"lng,omitempty"`
	Fallback   bool      `json:"fallback,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	Error      string    `json:"error,omitempty"`
}

// ResponseFromEntry converts a history entry.
func ResponseFromEntry(e history.Entry) WebSocketResponse {
	return WebSocketResponse{
		Message:    e.Message,
		Kind:       e.Kind,
		Display:    e.Display,
		Lat:        e.Lat,
		Lng:        e.Lng,
		Fallback:   e.Fallback,
		ReceivedAt: e.ReceivedAt,
	}
}

// WebConn is one relay client.
type WebConn struct {
	conn   *websocket.Conn
	log    *log.Logger
	server *Server
	remote string
	send   chan []byte
	wg     sync.WaitGroup
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Printf("WebSocket upgrade failed: %v\n", err)
		return
	}

	webConn := &WebConn{
		conn:   conn,
		log:    s.log,
		server: s,
		remote: conn.RemoteAddr().String(),
		send:   make(chan []byte, sendQueueSize),
	}
	s.addConn(webConn)

	webConn.Start()
}

// Start runs the connection until the client goes away.
func (wc *WebConn) Start() {
	defer wc.conn.Close()

	wc.wg.Add(1)
	go func() {
		defer wc.wg.Done()
		wc.writer()
	}()

	wc.reader()
	wc.server.removeConn(wc)
	wc.wg.Wait()
}

// enqueue queues data without blocking. Callers hold the server lock.
func (wc *WebConn) enqueue(data []byte) bool {
	select {
	case wc.send <- data:
		return true
	default:
		return false
	}
}

func (wc *WebConn) reader() {
	for {
		_, message, err := wc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				wc.log.Printf("WebSocket read error: %v\n", err)
			}
			return
		}

		var req WebSocketRequest
		if err := json.Unmarshal(message, &req); err != nil {
			wc.log.Printf("Failed to unmarshal WebSocket message: %v\n", err)
			wc.reply(WebSocketResponse{Kind: KindError, Error: "malformed request"})
			continue
		}
		wc.reply(wc.server.transmit(req))
	}
}

func (wc *WebConn) writer() {
	for data := range wc.send {
		wc.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := wc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			wc.log.Printf("WebSocket write error: %v\n", err)
			wc.conn.Close()
			// Drain so broadcasters never block on a dead client.
			for range wc.send {
			}
			return
		}
	}
}

func (wc *WebConn) reply(resp WebSocketResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		wc.log.Printf("Failed to marshal response: %v\n", err)
		return
	}
	wc.server.mu.Lock()
	defer wc.server.mu.Unlock()
	if _, ok := wc.server.conns[wc]; ok {
		wc.enqueue(data)
	}
}

// transmit plays a client request and returns the answer for that client.
func (s *Server) transmit(req WebSocketRequest) WebSocketResponse {
	resp := WebSocketResponse{Message: req.Text, Kind: KindSent, ReceivedAt: time.Now()}
	fail := func(err error) WebSocketResponse {
		resp.Kind = KindError
		resp.Error = err.Error()
		return resp
	}

	if s.cfg.Sender == nil {
		return fail(errTransmitDisabled)
	}
	protocol := s.cfg.Protocol
	if req.Protocol != "" {
		p, err := engines.ParseProtocol(req.Protocol)
		if err != nil {
			return fail(err)
		}
		protocol = p
	}
	volume := s.cfg.Volume
	if req.Volume != nil {
		volume = *req.Volume
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.transmitTimeout(req.Text, protocol))
	defer cancel()
	if err := s.cfg.Sender.Send(ctx, req.Text, protocol, volume); err != nil {
		s.log.Printf("transmit %q: %v\n", req.Text, err)
		return fail(err)
	}
	return resp
}

// transmitTimeout bounds a transmit request by the airtime of its message.
func (s *Server) transmitTimeout(text string, protocol engines.Protocol) time.Duration {
	var airtime time.Duration
	if a, ok := s.cfg.Sender.(airtimer); ok {
		airtime = a.Airtime(len(text), protocol)
	} else if protocol.IsValid() {
		airtime = engines.Airtime(engines.Parameters{}, protocol, len(text))
	}
	return airtime + transmitMargin
}
