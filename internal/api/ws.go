package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/arlow/fitcoach/internal/agent"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// wsEvent is one message on the agent WebSocket stream.
type wsEvent struct {
	Type   string      `json:"type"` // step, answer, error
	Step   *agent.Step `json:"step,omitempty"`
	Answer string      `json:"answer,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// wsQuestion is the client's opening message.
type wsQuestion struct {
	Input string `json:"input"`
}

// handleAgentWS streams the agent's reasoning over a WebSocket: one
// "step" event per completed observation, then a final "answer" or
// "error" event.
func (s *Server) handleAgentWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var q wsQuestion
	if err := conn.ReadJSON(&q); err != nil || q.Input == "" {
		_ = conn.WriteJSON(wsEvent{Type: "error", Error: "expected {\"input\": \"...\"} as the first message"})
		return
	}

	s.logger.Info("agent websocket session", "input_len", len(q.Input))

	res, err := s.loop.RunWithCallback(r.Context(), q.Input, func(st agent.Step) {
		step := st
		if err := conn.WriteJSON(wsEvent{Type: "step", Step: &step}); err != nil {
			s.logger.Debug("websocket step write failed", "error", err)
		}
	})
	if err != nil {
		_ = conn.WriteJSON(wsEvent{Type: "error", Error: err.Error()})
		return
	}

	_ = conn.WriteJSON(wsEvent{Type: "answer", Answer: res.Answer})
}
