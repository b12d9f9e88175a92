package chat

import (
	"encoding/json"
	"errors"
	"strings"
)

var ErrInvalidFrame = errors.New("invalid chat frame")

// Sender identifica al autor de un frame; nil para anónimos.
type Sender struct {
	UserID   string
	UserName string
}

// EncodeFrame valida un frame entrante y lo prepara para broadcast. Con
// sender conocido agrega user_id/user_name; sin él los elimina para que un
// cliente anónimo no pueda hacerse pasar por otro.
func EncodeFrame(raw []byte, sender *Sender) ([]byte, error) {
	var frame map[string]any
	if err := json.Unmarshal(raw, &frame); err != nil || frame == nil {
		return nil, ErrInvalidFrame
	}
	msg, ok := frame["message"].(string)
	if !ok || strings.TrimSpace(msg) == "" {
		return nil, ErrInvalidFrame
	}

	if sender != nil {
		frame["user_id"] = sender.UserID
		frame["user_name"] = sender.UserName
	} else {
		delete(frame, "user_id")
		delete(frame, "user_name")
	}
	return json.Marshal(frame)
}
