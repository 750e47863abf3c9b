// Package websocket pushes JSON messages to connected browsers.
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/yegors/routemap/pkg/logger"
	"golang.org/x/net/websocket"
)

// sendBuffer is how many messages a client may fall behind before it is dropped
const sendBuffer = 16

// Message is the envelope of everything sent to clients
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server fans messages out to every connected client
type Server struct {
	logger *logger.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool

	// Welcome, when set, produces the first message a new client receives
	Welcome func() *Message
}

// NewServer creates a websocket server with no clients
func NewServer(logger *logger.Logger) *Server {
	return &Server{
		logger:  logger.Named("websocket"),
		clients: make(map[*client]struct{}),
	}
}

// Handler returns the HTTP handler that upgrades requests. Origins are not
// checked here; CORS is enforced by the API router.
func (s *Server) Handler() http.Handler {
	return websocket.Server{
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   s.serve,
	}
}

func (s *Server) serve(conn *websocket.Conn) {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}

	// The welcome is queued before the client is visible to Broadcast, so it
	// is always the first message
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	if data := s.welcome(); data != nil {
		c.send <- data
	}
	s.clients[c] = struct{}{}
	count := len(s.clients)
	s.mu.Unlock()

	remote := conn.Request().RemoteAddr
	s.logger.Info("Client connected", logger.String("remote", remote), logger.Int("clients", count))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for data := range c.send {
			if err := websocket.Message.Send(conn, string(data)); err != nil {
				s.logger.Debug("Write failed", logger.String("remote", remote), logger.Error(err))
				conn.Close()
				return
			}
		}
	}()

	// Clients never send anything meaningful; reading only detects disconnects.
	for {
		var ignored string
		if err := websocket.Message.Receive(conn, &ignored); err != nil {
			break
		}
	}

	s.remove(c)
	<-done
	conn.Close()
	s.logger.Info("Client disconnected", logger.String("remote", remote))
}

// welcome encodes the Welcome message, if any. Called with s.mu held.
func (s *Server) welcome() []byte {
	if s.Welcome == nil {
		return nil
	}
	msg := s.Welcome()
	if msg == nil {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Failed to encode welcome message", logger.Error(err))
		return nil
	}
	return data
}

func (s *Server) remove(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// Broadcast sends message to every client. Clients whose buffer is full are
// disconnected.
func (s *Server) Broadcast(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		s.logger.Error("Failed to encode message", logger.String("type", message.Type), logger.Error(err))
		return
	}

	s.mu.Lock()
	var slow []*client
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	s.mu.Unlock()

	for _, c := range slow {
		s.logger.Warn("Dropping slow client", logger.String("remote", c.conn.Request().RemoteAddr))
		c.conn.Close()
	}
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close disconnects every client and refuses new ones
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	conns := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		conns = append(conns, c.conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
