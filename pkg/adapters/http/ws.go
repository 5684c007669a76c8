package http

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/chaptree/pkg/domain"
	"github.com/aretw0/chaptree/pkg/schema"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// wsConn serializes writes; gorilla connections allow one concurrent writer.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

// StreamDocument handles the GET /documents/{id}/ws request.
// The server sends the current document, then every new revision.
// Clients may send command envelopes; rejected commands are answered
// with an ErrorResponse.
func (s *Server) StreamDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := domain.ValidateDocumentID(id); err != nil {
		s.writeError(w, r, err)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.allowOrigin(origin)
		},
	}
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws: upgrade failed", "document", id, "err", err)
		return
	}
	defer raw.Close()
	conn := &wsConn{conn: raw}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	ch, unsubscribe := s.Streams.Subscribe(id)
	defer unsubscribe()

	doc, err := s.Documents.Open(ctx, id)
	if err != nil {
		conn.writeJSON(ErrorResponse{Error: err.Error()})
		return
	}
	if err := conn.writeJSON(doc); err != nil {
		return
	}
	s.logger.Info("ws: client connected", "document", id)

	go s.readCommands(ctx, cancel, id, conn)

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	sent := doc.Revision
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ws: client disconnected", "document", id)
			return
		case u, ok := <-ch:
			if !ok {
				return
			}
			if u.Document.Revision <= sent {
				continue
			}
			if err := conn.writeJSON(u.Document); err != nil {
				s.logger.Debug("ws: write failed", "document", id, "err", err)
				return
			}
			sent = u.Document.Revision
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				return
			}
		}
	}
}

func (s *Server) readCommands(ctx context.Context, cancel context.CancelFunc, id string, conn *wsConn) {
	defer cancel()
	conn.conn.SetReadLimit(MaxBodySize)
	conn.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := conn.conn.ReadMessage()
		if err != nil {
			return
		}
		conn.conn.SetReadDeadline(time.Now().Add(wsPongWait))

		cmd, err := schema.Decode(bytes.NewReader(data))
		if err == nil {
			_, err = s.Documents.Apply(ctx, id, cmd)
		}
		if err != nil {
			s.logger.DebugContext(ctx, "ws: command rejected", "document", id, "err", err)
			resp := ErrorResponse{Error: err.Error()}
			if werr := conn.writeJSON(resp); werr != nil {
				return
			}
		}
	}
}
