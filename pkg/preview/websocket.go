package preview

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
)

// handleWebSocket registers a browser for the patch stream.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	s.clientsMu.Unlock()
	if s.config.Metrics != nil {
		s.config.Metrics.ClientConnected()
	}
	s.logger.Debug("preview client connected", "remote", r.RemoteAddr)

	// The first message tells the client it will receive every later patch.
	if data, err := json.Marshal(Message{Type: MessageConnected}); err == nil {
		s.writeMu.Lock()
		err = conn.WriteMessage(websocket.TextMessage, data)
		s.writeMu.Unlock()
		if err != nil {
			s.drop(conn)
			return
		}
	}

	// Keep connection alive until client disconnects
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.drop(conn)
}

func (s *Server) drop(conn *websocket.Conn) {
	s.clientsMu.Lock()
	_, ok := s.clients[conn]
	delete(s.clients, conn)
	s.clientsMu.Unlock()
	conn.Close()

	if ok {
		if s.config.Metrics != nil {
			s.config.Metrics.ClientDisconnected()
		}
		s.logger.Debug("preview client disconnected")
	}
}

// broadcast sends a message to all connected clients.
func (s *Server) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("encode message", "error", err)
		return
	}

	s.clientsMu.RLock()
	clients := make([]*websocket.Conn, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.clientsMu.RUnlock()

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	for _, client := range clients {
		if err := client.WriteMessage(websocket.TextMessage, data); err != nil {
			go s.drop(client)
		}
	}
}

// ClientCount returns the number of connected clients.
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
