package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"triagekit/internal/domain"
)

type Store struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// Run records one enrichment batch: where the records came from and the
// accept/reject counters.
type Run struct {
	ID        string `json:"id"`
	Source    string `json:"source,omitempty"`
	Enriched  int    `json:"enriched"`
	Rejected  int    `json:"rejected"`
	CreatedAt string `json:"createdAt"`
}

// NewRun mints a run record for a finished batch.
func NewRun(source string, summary domain.Summary) Run {
	return Run{
		ID:        uuid.NewString(),
		Source:    source,
		Enriched:  summary.Enriched,
		Rejected:  summary.Rejected,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// SaveRun persists a batch atomically: the run row plus every incident,
// upserting on incident id so re-running a source updates in place.
func (s Store) SaveRun(ctx context.Context, run Run, incidents []domain.Incident) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO runs(id,source,enriched,rejected,created_at) VALUES (?,?,?,?,?)`,
		run.ID, nullable(run.Source), run.Enriched, run.Rejected, run.CreatedAt); err != nil {
		return err
	}
	for _, inc := range incidents {
		if err := upsertIncident(ctx, tx, run.ID, inc); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func upsertIncident(ctx context.Context, tx *sql.Tx, runID string, inc domain.Incident) error {
	payload, err := json.Marshal(inc)
	if err != nil {
		return err
	}
	var confidence any
	if inc.RoutingReasoning != nil && inc.RoutingReasoning.Confidence != nil {
		confidence = *inc.RoutingReasoning.Confidence
	}
	slaStatus := ""
	if inc.Context != nil {
		slaStatus = inc.Context.SLAStatus
	}
	searchText := strings.ToLower(inc.ID + " " + inc.Title + " " + inc.Description)
	_, err = tx.ExecContext(ctx, `INSERT INTO incidents(id,run_id,status,priority,category,assigned_to,confidence,sla_status,search_text,payload_json,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET run_id=excluded.run_id, status=excluded.status, priority=excluded.priority,
category=excluded.category, assigned_to=excluded.assigned_to, confidence=excluded.confidence,
sla_status=excluded.sla_status, search_text=excluded.search_text, payload_json=excluded.payload_json,
created_at=excluded.created_at, updated_at=excluded.updated_at`,
		inc.ID, runID, nullable(inc.Status), nullable(inc.Priority), nullable(inc.Category), nullable(inc.AssignedTo),
		confidence, nullable(slaStatus), searchText, string(payload), nullable(inc.CreatedAt), nullable(inc.UpdatedAt))
	return err
}

// Filters narrows incident listings. Search matches a lowercased substring
// of id, title, and description.
type Filters struct {
	Status   string
	Priority string
	Category string
	Team     string
	Search   string
	Limit    int
}

func (s Store) List(ctx context.Context, f Filters) ([]domain.Incident, error) {
	var clauses []string
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		clauses = append(clauses, "priority=?")
		args = append(args, f.Priority)
	}
	if f.Category != "" {
		clauses = append(clauses, "category=?")
		args = append(args, f.Category)
	}
	if f.Team != "" {
		clauses = append(clauses, "assigned_to=?")
		args = append(args, f.Team)
	}
	if f.Search != "" {
		clauses = append(clauses, "search_text LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Search)+"%")
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT payload_json FROM incidents ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Incident
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var inc domain.Incident
		if err := json.Unmarshal([]byte(payload), &inc); err != nil {
			return nil, err
		}
		res = append(res, inc)
	}
	return res, rows.Err()
}

func (s Store) Get(ctx context.Context, id string) (domain.Incident, error) {
	var payload string
	err := s.DB.QueryRowContext(ctx, `SELECT payload_json FROM incidents WHERE id=?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return domain.Incident{}, ErrNotFound
	}
	if err != nil {
		return domain.Incident{}, err
	}
	var inc domain.Incident
	if err := json.Unmarshal([]byte(payload), &inc); err != nil {
		return domain.Incident{}, err
	}
	return inc, nil
}

func (s Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id,COALESCE(source,'') AS source,enriched,rejected,created_at FROM runs ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Source, &r.Enriched, &r.Rejected, &r.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

// Stats aggregates the stored corpus with grouped counts, the mean routing
// confidence, and the number of incidents currently at SLA risk.
func (s Store) Stats(ctx context.Context) (domain.Stats, error) {
	stats := domain.Stats{
		ByStatus:   map[string]int{},
		ByPriority: map[string]int{},
		ByCategory: map[string]int{},
		ByTeam:     map[string]int{},
	}

	row := s.DB.QueryRowContext(ctx, `SELECT count(*), COALESCE(AVG(confidence),0) FROM incidents`)
	if err := row.Scan(&stats.Total, &stats.AvgConfidence); err != nil {
		return stats, err
	}

	groups := []struct {
		column string
		dest   map[string]int
	}{
		{"status", stats.ByStatus},
		{"priority", stats.ByPriority},
		{"category", stats.ByCategory},
		{"assigned_to", stats.ByTeam},
	}
	for _, g := range groups {
		if err := s.countBy(ctx, g.column, g.dest); err != nil {
			return stats, err
		}
	}

	row = s.DB.QueryRowContext(ctx, `SELECT count(*) FROM incidents WHERE sla_status=?`, "At risk")
	if err := row.Scan(&stats.AtRisk); err != nil {
		return stats, err
	}
	return stats, nil
}

func (s Store) countBy(ctx context.Context, column string, dest map[string]int) error {
	rows, err := s.DB.QueryContext(ctx, `SELECT COALESCE(`+column+`,''), count(*) FROM incidents GROUP BY `+column)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		if key != "" {
			dest[key] = count
		}
	}
	return rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
