package model

// WebSocket message types
const (
	WSMessageTypeUpdate = "update"
	WSMessageTypePing   = "ping"
	WSMessageTypePong   = "pong"
)

// WSMessage is the minimal envelope exchanged with websocket clients.
type WSMessage struct {
	Type string `json:"type"`
}

// WSUpdateMessage carries one notification event to subscribed viewers.
type WSUpdateMessage struct {
	Type    string         `json:"type"`
	TrackID string         `json:"trackId"`
	Status  TrackStatus    `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}
