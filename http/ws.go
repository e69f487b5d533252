package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsReadLimit  = 64 << 10
	wsPongWait   = 60 * time.Second
	wsWriteWait  = 10 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// wsMessage is a client request: {"type":"predict","values":{...}} or {"type":"ping"}.
type wsMessage struct {
	Type   string         `json:"type"`
	Values map[string]any `json:"values,omitempty"`
}

type wsReply struct {
	Type string `json:"type"`
	*predictResponse
	Error  string            `json:"error,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *Handlers) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || len(h.deps.AllowedOrigins) == 0 {
				return true
			}
			return originAllowed(h.deps.AllowedOrigins, origin)
		},
	}
}

// handleWebSocket serves predictions over one connection; each predict
// message gets exactly one result or error reply, in order.
func (h *Handlers) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	conn.SetReadLimit(wsReadLimit)
	conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	done := make(chan struct{})
	defer close(done)
	writes := make(chan wsReply)
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		h.wsWritePump(conn, writes, done)
	}()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket closed", zap.Error(err))
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(wsPongWait))

		reply := h.wsHandle(r, msg)
		select {
		case writes <- reply:
		case <-pumpDone:
			return
		}
	}
}

func (h *Handlers) wsHandle(r *http.Request, msg wsMessage) wsReply {
	switch msg.Type {
	case "ping":
		return wsReply{Type: "pong"}
	case "predict":
		if msg.Values == nil {
			return wsReply{Type: "error", Error: `missing "values"`}
		}
		prediction, err := h.predictJSON(r.Context(), msg.Values)
		if err != nil {
			_, body := h.apiError(r.Context(), err)
			return wsReply{Type: "error", Error: body.Error, Fields: body.Fields}
		}
		return wsReply{Type: "result", predictResponse: newPredictResponse(prediction)}
	default:
		return wsReply{Type: "error", Error: "unknown message type " + msg.Type}
	}
}

// wsWritePump owns all writes on conn, interleaving replies with keepalive pings.
func (h *Handlers) wsWritePump(conn *websocket.Conn, replies <-chan wsReply, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case reply := <-replies:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(reply); err != nil {
				h.logger.Debug("websocket write failed", zap.Error(err))
				conn.Close()
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}
