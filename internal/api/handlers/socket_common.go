package handlers

import (
	"encoding/json"
	"errors"

	"github.com/yoockh/yoobuddy/internal/sessions"
)

// Both sockets require {"username": string} as the very first frame.
// A missing or empty value is a fatal handshake error.
type handshakeMsg struct {
	Username string `json:"username"`
}

func readHandshake(conn *sessions.Conn) (string, error) {
	data, err := conn.ReadMessage()
	if err != nil {
		return "", err
	}

	var h handshakeMsg
	if err := json.Unmarshal(data, &h); err != nil {
		return "", errors.New("invalid handshake frame")
	}
	if h.Username == "" {
		return "", errors.New("username required")
	}
	return h.Username, nil
}

// rejectHandshake writes a terminal error frame and closes. The frame
// shape differs per role, so callers pass the whole frame.
func rejectHandshake(conn *sessions.Conn, frame map[string]any) {
	_ = conn.WriteJSON(frame)
	_ = conn.Close()
}
