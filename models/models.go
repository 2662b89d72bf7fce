package models

import (
	"time"
)

// Run represents one session run of the bot
type Run struct {
	ID         string     `gorm:"primaryKey;type:uuid"`
	StartedAt  time.Time  `gorm:"type:timestamp with time zone;default:CURRENT_TIMESTAMP"`
	FinishedAt *time.Time `gorm:"type:timestamp with time zone"`
}

// TableName overrides the table name
func (Run) TableName() string {
	return "runs"
}

// ConversationResult represents the tallies of one conversation visit
type ConversationResult struct {
	ID               int       `gorm:"primaryKey;autoIncrement"`
	RunID            string    `gorm:"type:uuid;not null;index"`
	ConversationID   string    `gorm:"type:text;not null"`
	CandidatesFound  int       `gorm:"not null"`
	Amplified        int       `gorm:"not null"`
	AlreadyAmplified int       `gorm:"not null"`
	Failed           int       `gorm:"not null"`
	CreatedAt        time.Time `gorm:"type:timestamp with time zone;default:CURRENT_TIMESTAMP"`

	// Relationships
	Run Run `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// TableName overrides the table name
func (ConversationResult) TableName() string {
	return "conversation_results"
}
