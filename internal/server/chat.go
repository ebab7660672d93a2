package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ziadkadry99/docchat/internal/apperr"
	"github.com/ziadkadry99/docchat/internal/auth"
	"github.com/ziadkadry99/docchat/internal/render"
)

// The zero CheckOrigin rejects cross-origin handshakes, which matters because
// the session rides in a cookie.
var upgrader = websocket.Upgrader{}

// chatMessage is the incoming websocket frame. It mirrors POST /query.
type chatMessage struct {
	UserQuery   string  `json:"user_query"`
	ChatHistory [][]any `json:"chat_history"`
}

// chatReply is the outgoing websocket frame.
type chatReply struct {
	Type string `json:"type"` // "response" or "error"
	queryResponse
	Message string `json:"message,omitempty"`
}

func (s *Server) handleChatSocket(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.CurrentUser(r.Context())

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade", zap.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.cfg.MaxQueryBytes)

	for {
		var msg chatMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read", zap.Error(err))
			}
			return
		}

		// The token is only checked at handshake, so expiry is enforced here.
		if claims.ExpiresAt != nil && !s.now().Before(claims.ExpiresAt.Time) {
			s.send(conn, chatReply{Type: "error", Message: "Session expired"})
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "session expired"),
				s.now().Add(time.Second))
			return
		}

		reply, err := s.deps.Questions.Ask(r.Context(), claims.UserID, msg.UserQuery, turns(msg.ChatHistory))
		if err != nil {
			s.send(conn, chatReply{Type: "error", Message: apperr.Message(err)})
			continue
		}
		s.send(conn, chatReply{
			Type: "response",
			queryResponse: queryResponse{
				Response:     reply.Response,
				ResponseHTML: render.MustHTML(reply.Response),
				Source:       reply.Source,
				Sources:      reply.Sources,
			},
		})
	}
}

func (s *Server) send(conn *websocket.Conn, reply chatReply) {
	if err := conn.WriteJSON(reply); err != nil {
		s.logger.Warn("websocket write", zap.Error(err))
	}
}
