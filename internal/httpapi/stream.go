package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"asrd/internal/session"
	"asrd/pkg/types"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  32 << 10,
	WriteBufferSize: 4 << 10,
	CheckOrigin:     checkOrigin,
}

// checkOrigin allows any origin unless CORS is enabled with an explicit
// origin list.
func checkOrigin(r *http.Request) bool {
	if !corsEnabled || len(corsAllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range corsAllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

type wsConn struct {
	*websocket.Conn
}

func (c wsConn) send(m types.StreamMessage) error {
	_ = c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	streamMessagesTotal.WithLabelValues(m.Type).Inc()
	return c.WriteJSON(m)
}

func (c wsConn) fail(err error) {
	_ = c.send(types.StreamMessage{Type: types.StreamError, Error: err.Error()})
	c.closeWith(websocket.CloseInternalServerErr, "")
}

func (c wsConn) closeWith(code int, text string) {
	_ = c.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

// streamHandler godoc
// @Summary      Stream PCM audio for incremental transcription
// @Description  WebSocket. Send a JSON config, wait for {"type":"ready"}, then
// @Description  binary little-endian int16 mono PCM frames. Each frame yields a
// @Description  partial; an empty frame or {"type":"end"} yields the final result.
// @Tags         transcribe
// @Param        config  body  types.StreamConfig  true  "First message"
// @Success      101  {object}  types.StreamMessage
// @Router       /api/transcribe/stream [get]
func streamHandler(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// upgrader already replied
			return
		}
		conn := wsConn{Conn: raw}
		defer raw.Close()
		raw.SetReadLimit(maxUploadBytes)
		streamsActive.Inc()
		defer streamsActive.Dec()

		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()

		var cfg types.StreamConfig
		if err := raw.ReadJSON(&cfg); err != nil {
			conn.fail(errBadStreamConfig)
			return
		}
		st, err := svc.OpenStream(ctx, session.StreamConfig{Model: cfg.Model, Precision: cfg.DType, Language: cfg.Language})
		if err != nil {
			conn.fail(err)
			return
		}
		defer st.Close()
		logDebug(r, "stream opened", map[string]any{"model": st.Model()})
		if err := conn.send(types.StreamMessage{Type: types.StreamReady}); err != nil {
			return
		}

		for {
			mt, data, err := raw.ReadMessage()
			if err != nil {
				// client went away; the model stays loaded
				return
			}
			switch mt {
			case websocket.BinaryMessage:
				if len(data) == 0 {
					finishStream(ctx, conn, st)
					return
				}
				text, err := st.Push(ctx, data)
				if err != nil {
					conn.fail(err)
					return
				}
				if err := conn.send(types.StreamMessage{Type: types.StreamPartial, Text: text}); err != nil {
					return
				}
			case websocket.TextMessage:
				var msg types.StreamMessage
				if json.Unmarshal(data, &msg) == nil && msg.Type == types.StreamEnd {
					finishStream(ctx, conn, st)
					return
				}
				conn.fail(errUnexpectedMessage)
				return
			}
		}
	}
}

func finishStream(ctx context.Context, conn wsConn, st *session.Stream) {
	res, err := st.Finish(ctx)
	if err != nil {
		conn.fail(err)
		return
	}
	_ = conn.send(types.StreamMessage{Type: types.StreamFinal, Text: res.Text, Language: res.Language})
	conn.closeWith(websocket.CloseNormalClosure, "")
}
