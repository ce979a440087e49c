package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/freeeve/iron-rails/api/internal/bot"
	"github.com/freeeve/iron-rails/api/internal/model"
)

// AuditRepo persists bot strategy audits. The full audit travels as one
// JSON document; turn number is lifted into its own column for lookup.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates an AuditRepo.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// SaveTurnAudit inserts one turn's audit record.
func (r *AuditRepo) SaveTurnAudit(ctx context.Context, gameID, playerID string, audit *bot.StrategyAudit) error {
	doc, err := json.Marshal(audit)
	if err != nil {
		return fmt.Errorf("encode audit: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO turn_audits (game_id, player_id, turn_number, audit)
		 VALUES ($1, $2, $3, $4)`,
		gameID, playerID, audit.TurnNumber, doc)
	if err != nil {
		return fmt.Errorf("save turn audit: %w", err)
	}
	return nil
}

// ListTurnAudits returns a seat's audits in turn order, decoded back
// into strategy audits.
func (r *AuditRepo) ListTurnAudits(ctx context.Context, gameID, playerID string) ([]bot.StrategyAudit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT audit FROM turn_audits
		 WHERE game_id = $1 AND player_id = $2
		 ORDER BY turn_number, created_at`, gameID, playerID)
	if err != nil {
		return nil, fmt.Errorf("list turn audits: %w", err)
	}
	defer rows.Close()

	var audits []bot.StrategyAudit
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		var a bot.StrategyAudit
		if err := json.Unmarshal(doc, &a); err != nil {
			return nil, fmt.Errorf("decode audit: %w", err)
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}

// ListByGame returns every audit row in a game, most recent first,
// without decoding the documents.
func (r *AuditRepo) ListByGame(ctx context.Context, gameID string) ([]model.TurnAudit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, game_id, player_id, turn_number, audit, created_at
		 FROM turn_audits WHERE game_id = $1
		 ORDER BY created_at DESC LIMIT 200`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list game audits: %w", err)
	}
	defer rows.Close()

	var audits []model.TurnAudit
	for rows.Next() {
		var a model.TurnAudit
		if err := rows.Scan(&a.ID, &a.GameID, &a.PlayerID, &a.TurnNumber, &a.Audit, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		audits = append(audits, a)
	}
	return audits, rows.Err()
}
