package model

import "time"

// ChatMessage is one entry in the bounded chat history replayed to newly
// identified connections
type ChatMessage struct {
	PlayerID    PlayerID  `json:"userId"`
	DisplayName string    `json:"userName"`
	Text        string    `json:"text"`
	SentAt      time.Time `json:"sentAt"`
}
