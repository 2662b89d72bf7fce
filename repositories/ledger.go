package repositories

import (
	"log"
	"time"

	"gorm.io/gorm"

	"amplify-bot/domain"
	"amplify-bot/models"
)

// RunLedger records run history for auditing. It is never consulted for
// dedup decisions: the watermark inside each conversation stays the only
// durable record of what was handled.
type RunLedger interface {
	StartRun(runID string) error
	SaveSummary(runID string, summary domain.ConversationSummary) error
	FinishRun(runID string) error
}

// PostgresLedger persists runs and per-conversation results via gorm.
type PostgresLedger struct {
	db *gorm.DB
}

func NewPostgresLedger(db *gorm.DB) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) StartRun(runID string) error {
	run := models.Run{
		ID:        runID,
		StartedAt: time.Now().UTC(),
	}
	if err := l.db.Create(&run).Error; err != nil {
		log.Printf("Error inserting into runs: %v", err)
		return err
	}
	return nil
}

func (l *PostgresLedger) SaveSummary(runID string, summary domain.ConversationSummary) error {
	result := models.ConversationResult{
		RunID:            runID,
		ConversationID:   summary.ConversationID,
		CandidatesFound:  summary.CandidatesFound,
		Amplified:        summary.Amplified,
		AlreadyAmplified: summary.AlreadyAmplified,
		Failed:           summary.Failed,
	}
	if err := l.db.Create(&result).Error; err != nil {
		log.Printf("Error inserting into conversation_results: %v", err)
		return err
	}
	return nil
}

func (l *PostgresLedger) FinishRun(runID string) error {
	return l.db.
		Model(&models.Run{}).
		Where("id = ?", runID).
		Update("finished_at", gorm.Expr("NOW()")).Error
}

// NoopLedger is used when no ledger DSN is configured.
type NoopLedger struct{}

func (NoopLedger) StartRun(string) error                                { return nil }
func (NoopLedger) SaveSummary(string, domain.ConversationSummary) error { return nil }
func (NoopLedger) FinishRun(string) error                               { return nil }
