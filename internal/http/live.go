package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"friendlychat/backend/internal/domain/chat"
	"friendlychat/backend/internal/domain/identity"
	"friendlychat/backend/internal/domain/messages"
	"friendlychat/backend/internal/live"
	"friendlychat/backend/internal/middleware"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

const (
	eventMessages = "messages"
	eventSession  = "session"
	eventError    = "error"
)

type liveEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// liveHandler streams the recent-messages window and the session signal
// over a websocket. Closing the socket ends both subscriptions.
type liveHandler struct {
	chat     *chat.Service
	upgrader websocket.Upgrader
}

func newLiveHandler(svc *chat.Service, allowedOrigins []string) *liveHandler {
	return &liveHandler{
		chat: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

func (h *liveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[live] upgrade: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches, msgSub, err := live.Latest(func(fn func([]messages.Message)) (*live.Subscription, error) {
		return h.chat.LoadMessages(ctx, fn)
	})
	if err != nil {
		writeEvent(conn, eventError, err.Error())
		return
	}
	defer msgSub.UnsubscribeWait()

	sessions, sessionSub, _ := live.Latest(func(fn func(*identity.Session)) (*live.Subscription, error) {
		return h.chat.Sessions(fn), nil
	})
	defer sessionSub.UnsubscribeWait()

	go readPump(conn, cancel)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-msgSub.Done():
			if err := msgSub.Err(); err != nil {
				log.Printf("[live] messages query ended: %v", err)
				writeEvent(conn, eventError, err.Error())
			}
			return

		case batch := <-batches:
			if batch == nil {
				batch = []messages.Message{}
			}
			if err := writeEvent(conn, eventMessages, batch); err != nil {
				return
			}

		case s := <-sessions:
			if err := writeEvent(conn, eventSession, s); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and cancels once the peer goes away.
func readPump(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[live] read: %v", err)
			}
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, typ string, data any) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(liveEvent{Type: typ, Data: data}); err != nil {
		log.Printf("[live] write %s: %v", typ, err)
		return err
	}
	return nil
}
