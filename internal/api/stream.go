package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// AnalysisEvent describes websocket payloads emitted after each analysis.
type AnalysisEvent struct {
	Type           string    `json:"type"`
	AnalysisID     string    `json:"analysis_id,omitempty"`
	UID            string    `json:"uid"`
	SupplementName string    `json:"supplement_name"`
	OverallSafety  string    `json:"overall_safety,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking. A non-empty uid limits the
// client to that user's events.
type wsClient struct {
	conn *websocket.Conn
	uid  string
	mu   sync.Mutex
}

// AnalysisNotifier keeps track of active websocket clients and broadcasts analysis events.
type AnalysisNotifier struct {
	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

// NewAnalysisNotifier constructs a notifier instance.
func NewAnalysisNotifier() *AnalysisNotifier {
	return &AnalysisNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and returns a client handle.
func (n *AnalysisNotifier) Register(conn *websocket.Conn, uid string) *wsClient {
	client := &wsClient{conn: conn, uid: strings.TrimSpace(uid)}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	n.mu.Unlock()
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *AnalysisNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the supplied event to every interested client.
func (n *AnalysisNotifier) Broadcast(event AnalysisEvent) {
	if n == nil {
		return
	}
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	defer n.mu.Unlock()
	for client := range n.clients {
		if client.uid != "" && client.uid != event.UID {
			continue
		}
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
}

// Clients returns the number of connected sockets.
func (n *AnalysisNotifier) Clients() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.clients)
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}

func (s *Server) handleStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn, c.Query("uid"))
	logrus.WithFields(logrus.Fields{
		"remote": conn.RemoteAddr().String(),
		"uid":    client.uid,
	}).Info("analysis websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("analysis websocket closed")
			} else {
				logrus.WithError(err).Warn("analysis websocket unexpected close")
			}
			break
		}
	}
}
