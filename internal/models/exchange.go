package models

// ChatExchange is one persisted player-message/character-reply pair.
// Rows are append-only: there is no update or delete path anywhere in the
// service, and the surrogate id is the only identity.
type ChatExchange struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	CharacterID string `json:"characterId" gorm:"column:character_id;index"`
	Name        string `json:"name" gorm:"index"`
	Interaction string `json:"interaction"`
	Content     string `json:"content"`
	// Timestamp is server-assigned at append time, RFC 3339 UTC. Stored as
	// text so range queries compare lexicographically, which for this format
	// matches chronological order.
	Timestamp string `json:"timestamp" gorm:"index"`
}

// TableName keeps the historical table name used by the game client.
func (ChatExchange) TableName() string {
	return "chat_log"
}
