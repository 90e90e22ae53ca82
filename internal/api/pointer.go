package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"pagebuilder/internal/editor"
)

// Pointer ids are local to a socket. Each connection gets its own block
// of session ids so two clients never share a capture.
const pointerIDSpace = 1 << 20

type pointerReply struct {
	editor.PointerResult
	Error string `json:"error,omitempty"`
}

// PointerStream handles GET /v1/pointer. Each text frame is one
// editor.PointerEvent; each reply is the matching result. Pointer ids must
// lie in [0, 2^20) and only address this connection's pointers. Pointers
// still captured when the socket closes are cancelled.
func (h *Handler) PointerStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader().Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("pointer upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	base := int(h.pointerConns.Add(1)) * pointerIDSpace
	held := make(map[int]bool) // session ids
	defer func() {
		for id := range held {
			h.editor.HandlePointer(context.Background(), editor.PointerEvent{
				PointerID: id, Type: editor.PointerCancel, Device: "disconnect",
			})
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("pointer stream closed", zap.Error(err))
			}
			return
		}

		var ev editor.PointerEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			if conn.WriteJSON(pointerReply{Error: "invalid pointer event: " + err.Error()}) != nil {
				return
			}
			continue
		}

		if ev.PointerID < 0 || ev.PointerID >= pointerIDSpace {
			reply := pointerReply{PointerResult: editor.PointerResult{PointerID: ev.PointerID}, Error: "pointer id out of range"}
			if conn.WriteJSON(reply) != nil {
				return
			}
			continue
		}
		clientID := ev.PointerID
		ev.PointerID = base + clientID

		res, err := h.editor.HandlePointer(r.Context(), ev)
		res.PointerID = clientID
		reply := pointerReply{PointerResult: res}
		if err != nil {
			reply.Error = err.Error()
		} else {
			switch ev.Type {
			case editor.PointerDown:
				if res.State != editor.StateIdle {
					held[ev.PointerID] = true
				}
			case editor.PointerUp, editor.PointerCancel:
				delete(held, ev.PointerID)
			}
		}
		if err := conn.WriteJSON(reply); err != nil {
			return
		}
	}
}
