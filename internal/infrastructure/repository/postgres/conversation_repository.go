package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/hr-assistant/internal/core/domain"
)

// ConversationRepository is the durable conversation store.
type ConversationRepository struct {
	db *sql.DB
}

func NewConversationRepository(db *sql.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) Append(ctx context.Context, conversationID string, turn domain.ConversationTurn) error {
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	docIDs := turn.DocumentIDs
	if docIDs == nil {
		docIDs = []string{}
	}
	docJSON, err := json.Marshal(docIDs)
	if err != nil {
		return fmt.Errorf("marshal document ids: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO conversation_turns (id, conversation_id, role, content, document_ids, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
`, turn.ID, conversationID, turn.Role, turn.Text, docJSON, turn.CreatedAt)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (r *ConversationRepository) Recent(ctx context.Context, conversationID string, n int) ([]domain.ConversationTurn, error) {
	if n <= 0 {
		return nil, nil
	}
	turns, err := listTurns(ctx, r.db, conversationID, n)
	if err != nil {
		return nil, err
	}
	return turns, nil
}

// Trim drops the oldest turns until the conversation fits maxChars.
func (r *ConversationRepository) Trim(ctx context.Context, conversationID string, maxChars int) error {
	if maxChars <= 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin trim tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, conversationID); err != nil {
		return fmt.Errorf("acquire conversation lock: %w", err)
	}

	turns, err := listTurns(ctx, tx, conversationID, 0)
	if err != nil {
		return err
	}
	if domain.TurnsSize(turns) <= maxChars {
		return tx.Commit()
	}

	kept := domain.TrimTurns(turns, maxChars)
	keptByID := make(map[string]domain.ConversationTurn, len(kept))
	for _, t := range kept {
		keptByID[t.ID] = t
	}
	for _, t := range turns {
		k, ok := keptByID[t.ID]
		if !ok {
			if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_turns WHERE id = $1`, t.ID); err != nil {
				return fmt.Errorf("delete trimmed turn: %w", err)
			}
			continue
		}
		if k.Text != t.Text {
			if _, err := tx.ExecContext(ctx, `UPDATE conversation_turns SET content = $2 WHERE id = $1`, t.ID, k.Text); err != nil {
				return fmt.Errorf("truncate turn: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit trim tx: %w", err)
	}
	return nil
}

// DeleteIdle removes conversations with no turn newer than cutoff.
func (r *ConversationRepository) DeleteIdle(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM conversation_turns
WHERE conversation_id IN (
	SELECT conversation_id FROM conversation_turns
	GROUP BY conversation_id
	HAVING MAX(created_at) < $1
)
`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete idle conversations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// listTurns returns the newest limit turns in chronological order; limit 0 means all.
func listTurns(ctx context.Context, q queryer, conversationID string, limit int) ([]domain.ConversationTurn, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = q.QueryContext(ctx, `
SELECT id, role, content, document_ids, created_at
FROM conversation_turns
WHERE conversation_id = $1
ORDER BY seq DESC
LIMIT $2
`, conversationID, limit)
	} else {
		rows, err = q.QueryContext(ctx, `
SELECT id, role, content, document_ids, created_at
FROM conversation_turns
WHERE conversation_id = $1
ORDER BY seq DESC
`, conversationID)
	}
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ConversationTurn, 0, limit)
	for rows.Next() {
		var turn domain.ConversationTurn
		var docRaw []byte
		if err := rows.Scan(&turn.ID, &turn.Role, &turn.Text, &docRaw, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		if len(docRaw) > 0 {
			if err := json.Unmarshal(docRaw, &turn.DocumentIDs); err != nil {
				return nil, fmt.Errorf("unmarshal document ids: %w", err)
			}
		}
		out = append(out, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}

	// Returned in descending order from SQL; reverse to keep chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
