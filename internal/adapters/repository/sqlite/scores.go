package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/okian/pulse/internal/adapters/repository"
	"github.com/okian/pulse/internal/domain/model"
)

// ScoreRepo implements repository.ScoreStore.
type ScoreRepo struct {
	db *sql.DB
}

var _ repository.ScoreStore = (*ScoreRepo)(nil)

// NewScoreRepo creates a new ScoreRepo.
func NewScoreRepo(db *sql.DB) *ScoreRepo {
	return &ScoreRepo{db: db}
}

func (r *ScoreRepo) SaveSnapshot(ctx context.Context, snap model.MetricsSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO metric_snapshots (subject_id, captured_at, payload) VALUES (?, ?, ?)`,
		snap.SubjectID, formatTime(snap.CapturedAt), string(payload),
	)
	if err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

func (r *ScoreRepo) SaveScore(ctx context.Context, s *model.EnhancedScore) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding score: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO scores (id, subject_id, computed_at, overall, tier, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.SubjectID, formatTime(s.ComputedAt), s.Overall, string(s.PerformanceTier), string(payload),
	)
	if err != nil {
		return fmt.Errorf("inserting score: %w", err)
	}
	return nil
}

func (r *ScoreRepo) AppendHistory(ctx context.Context, e model.HistoryEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO score_history (subject_id, score_type, score_value, computed_at) VALUES (?, ?, ?, ?)`,
		e.SubjectID, e.ScoreType, e.ScoreValue, formatTime(e.ComputedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}
	return nil
}

func (r *ScoreRepo) SaveIntervention(ctx context.Context, in model.Intervention) error {
	steps, err := json.Marshal(in.ActionSteps)
	if err != nil {
		return fmt.Errorf("encoding action steps: %w", err)
	}
	var resolvedAt any
	if in.ResolvedAt != nil {
		resolvedAt = formatTime(*in.ResolvedAt)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO interventions (id, subject_id, score_id, trigger_type, pillar_affected, severity,
			recommendation, action_steps, resolved, created_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.SubjectID, in.ScoreID, string(in.TriggerType), in.PillarAffected, string(in.Severity),
		in.Recommendation, string(steps), boolToInt(in.Resolved), formatTime(in.CreatedAt), resolvedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting intervention: %w", err)
	}
	return nil
}

func (r *ScoreRepo) LatestScore(ctx context.Context, subjectID string) (*model.EnhancedScore, error) {
	var payload string
	err := r.db.QueryRowContext(ctx,
		`SELECT payload FROM scores WHERE subject_id = ? ORDER BY computed_at DESC, rowid DESC LIMIT 1`,
		subjectID,
	).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("score: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("querying latest score: %w", err)
	}

	var s model.EnhancedScore
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, fmt.Errorf("decoding score: %w", err)
	}
	return &s, nil
}

func (r *ScoreRepo) History(ctx context.Context, subjectID string, since time.Time) ([]model.HistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT subject_id, score_type, score_value, computed_at FROM score_history
		WHERE subject_id = ? AND computed_at >= ?
		ORDER BY computed_at, id`,
		subjectID, formatTime(since),
	)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.HistoryEntry{}
	for rows.Next() {
		var e model.HistoryEntry
		var at string
		if err := rows.Scan(&e.SubjectID, &e.ScoreType, &e.ScoreValue, &at); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		if e.ComputedAt, err = parseTime(at); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *ScoreRepo) ActiveInterventions(ctx context.Context, subjectID string) ([]model.Intervention, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, subject_id, score_id, trigger_type, pillar_affected, severity, recommendation,
			action_steps, resolved, created_at, resolved_at
		FROM interventions WHERE subject_id = ? AND resolved = 0
		ORDER BY created_at DESC, rowid`,
		subjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing interventions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := []model.Intervention{}
	for rows.Next() {
		in, err := scanIntervention(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func scanIntervention(rows *sql.Rows) (model.Intervention, error) {
	var (
		in                model.Intervention
		trigger, severity string
		steps, createdAt  string
		resolved          int
		resolvedAt        sql.NullString
	)
	if err := rows.Scan(&in.ID, &in.SubjectID, &in.ScoreID, &trigger, &in.PillarAffected, &severity,
		&in.Recommendation, &steps, &resolved, &createdAt, &resolvedAt); err != nil {
		return in, fmt.Errorf("scanning intervention: %w", err)
	}
	in.TriggerType = model.TriggerType(trigger)
	in.Severity = model.Severity(severity)
	in.Resolved = resolved != 0
	if err := json.Unmarshal([]byte(steps), &in.ActionSteps); err != nil {
		return in, fmt.Errorf("decoding action steps: %w", err)
	}
	var err error
	if in.CreatedAt, err = parseTime(createdAt); err != nil {
		return in, err
	}
	if resolvedAt.Valid && resolvedAt.String != "" {
		t, err := parseTime(resolvedAt.String)
		if err != nil {
			return in, err
		}
		in.ResolvedAt = &t
	}
	return in, nil
}

func (r *ScoreRepo) ResolveIntervention(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE interventions SET resolved = 1, resolved_at = COALESCE(resolved_at, ?) WHERE id = ?`,
		formatTime(at), id,
	)
	if err != nil {
		return fmt.Errorf("resolving intervention: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolving intervention: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("intervention %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

func (r *ScoreRepo) LatestOverallScores(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.subject_id, s.overall FROM scores s
		WHERE s.rowid = (
			SELECT rowid FROM scores WHERE subject_id = s.subject_id
			ORDER BY computed_at DESC, rowid DESC LIMIT 1
		)`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing latest scores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int)
	for rows.Next() {
		var id string
		var overall int
		if err := rows.Scan(&id, &overall); err != nil {
			return nil, fmt.Errorf("scanning latest score: %w", err)
		}
		out[id] = overall
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
