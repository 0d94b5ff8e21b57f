package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/marcelsud/webhook-router/webhook"
	"github.com/marcelsud/webhook-router/webhook/transform"
	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

/* Embedded single-file store
 * Used for local runs and the end-to-end tests. SQLite is single-writer,
 * so the pool holds one connection and no query keeps rows open while another runs.
 */

//go:embed migrations/*.sql
var migrations embed.FS

type Repository struct {
	DB *sql.DB
}

// NewRepository opens (or creates) the database file at path and applies migrations
func NewRepository(ctx context.Context, path string) (*Repository, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return &Repository{DB: db}, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting migration dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// FindProject resolves a project by key
func (r *Repository) FindProject(ctx context.Context, projectKey string) (webhook.Project, error) {
	var p webhook.Project
	err := r.DB.QueryRowContext(ctx, "SELECT id, project_key FROM projects WHERE project_key = ?", projectKey).Scan(&p.ID, &p.Key)
	if errors.Is(err, sql.ErrNoRows) {
		return webhook.Project{}, webhook.ErrNotFound
	}
	if err != nil {
		return webhook.Project{}, fmt.Errorf("selecting project: %w", err)
	}
	return p, nil
}

// EnsureProject returns the project with the given key, creating it when missing
func (r *Repository) EnsureProject(ctx context.Context, projectKey string) (webhook.Project, error) {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO projects (id, project_key, created_at) VALUES (?, ?, ?) ON CONFLICT(project_key) DO NOTHING",
		uuid.New().String(), projectKey, time.Now().UTC().UnixNano())
	if err != nil {
		return webhook.Project{}, fmt.Errorf("inserting project: %w", err)
	}
	return r.FindProject(ctx, projectKey)
}

const endpointColumns = `id, project_id, hook_key, description, secret_hash, enabled, routing_type,
	target_url, automation_url, workflow_id, transform_rules, created_at, updated_at`

// FindEndpoint returns the endpoint of a project by hook key
func (r *Repository) FindEndpoint(ctx context.Context, projectID, hookKey string) (webhook.Endpoint, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+endpointColumns+" FROM webhooks WHERE project_id = ? AND hook_key = ?",
		projectID, hookKey)
	e, err := scanEndpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return webhook.Endpoint{}, webhook.ErrNotFound
	}
	if err != nil {
		return webhook.Endpoint{}, fmt.Errorf("selecting endpoint: %w", err)
	}
	return e, nil
}

// ListEndpoints returns every endpoint of a project ordered by hook key
func (r *Repository) ListEndpoints(ctx context.Context, projectID string) ([]webhook.Endpoint, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+endpointColumns+" FROM webhooks WHERE project_id = ? ORDER BY hook_key",
		projectID)
	if err != nil {
		return nil, fmt.Errorf("selecting endpoints: %w", err)
	}
	defer rows.Close()

	endpoints := []webhook.Endpoint{}
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning endpoint: %w", err)
		}
		endpoints = append(endpoints, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating endpoints: %w", err)
	}
	return endpoints, nil
}

// CreateEndpoint inserts a new endpoint, ErrConflict when the hook key is taken
func (r *Repository) CreateEndpoint(ctx context.Context, e webhook.Endpoint) error {
	rules, err := encodeRules(e.TransformRules)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO webhooks ("+endpointColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.ProjectID, e.HookKey, e.Description, e.SecretHash, e.Enabled, e.RoutingType.String(),
		e.TargetURL, e.AutomationURL, e.WorkflowID, rules, e.CreatedAt.UTC().UnixNano(), e.UpdatedAt.UTC().UnixNano())
	if isUniqueViolation(err) {
		return fmt.Errorf("hook key %q: %w", e.HookKey, webhook.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("inserting endpoint: %w", err)
	}
	return nil
}

// UpsertEndpoint creates the endpoint or replaces the configuration of the one with the same hook key
func (r *Repository) UpsertEndpoint(ctx context.Context, e webhook.Endpoint) error {
	rules, err := encodeRules(e.TransformRules)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO webhooks (`+endpointColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id, hook_key) DO UPDATE SET
			description = excluded.description,
			secret_hash = excluded.secret_hash,
			enabled = excluded.enabled,
			routing_type = excluded.routing_type,
			target_url = excluded.target_url,
			automation_url = excluded.automation_url,
			workflow_id = excluded.workflow_id,
			transform_rules = excluded.transform_rules,
			updated_at = excluded.updated_at`,
		e.ID, e.ProjectID, e.HookKey, e.Description, e.SecretHash, e.Enabled, e.RoutingType.String(),
		e.TargetURL, e.AutomationURL, e.WorkflowID, rules, e.CreatedAt.UTC().UnixNano(), e.UpdatedAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("upserting endpoint: %w", err)
	}
	return nil
}

// UpdateEndpoint stores the editable fields of an existing endpoint
func (r *Repository) UpdateEndpoint(ctx context.Context, e webhook.Endpoint) error {
	rules, err := encodeRules(e.TransformRules)
	if err != nil {
		return err
	}
	result, err := r.DB.ExecContext(ctx,
		`UPDATE webhooks SET description = ?, enabled = ?, routing_type = ?, target_url = ?,
			automation_url = ?, workflow_id = ?, transform_rules = ?, updated_at = ?
		WHERE id = ?`,
		e.Description, e.Enabled, e.RoutingType.String(), e.TargetURL, e.AutomationURL, e.WorkflowID,
		rules, e.UpdatedAt.UTC().UnixNano(), e.ID)
	if err != nil {
		return fmt.Errorf("updating endpoint: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return webhook.ErrNotFound
	}
	return nil
}

// UpdateSecretHash replaces the stored secret hash
func (r *Repository) UpdateSecretHash(ctx context.Context, endpointID, secretHash string) error {
	result, err := r.DB.ExecContext(ctx,
		"UPDATE webhooks SET secret_hash = ?, updated_at = ? WHERE id = ?",
		secretHash, time.Now().UTC().UnixNano(), endpointID)
	if err != nil {
		return fmt.Errorf("updating secret hash: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows == 0 {
		return webhook.ErrNotFound
	}
	return nil
}

const eventColumns = `id, webhook_id, received_at, request_headers, request_body, request_origin,
	status, route_result, replay_of_event_id`

// CreateEvent stores a new event
func (r *Repository) CreateEvent(ctx context.Context, e webhook.DeliveryEvent) error {
	headers, err := json.Marshal(e.RequestHeaders)
	if err != nil {
		return fmt.Errorf("encoding headers: %w", err)
	}
	result, err := encodeResult(e.RouteResult)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO webhook_events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		e.ID, e.WebhookID, e.ReceivedAt.UTC().UnixNano(), string(headers), string(body(e.RequestBody)),
		e.RequestOrigin, e.Status.String(), result, e.ReplayOf)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// UpdateEvent stores the new status and result only if the event is still in status from
func (r *Repository) UpdateEvent(ctx context.Context, e webhook.DeliveryEvent, from webhook.Status) error {
	result, err := encodeResult(e.RouteResult)
	if err != nil {
		return err
	}
	var completedAt *int64
	if e.Status.IsFinal() {
		now := time.Now().UTC().UnixNano()
		completedAt = &now
	}

	res, err := r.DB.ExecContext(ctx,
		"UPDATE webhook_events SET status = ?, route_result = ?, completed_at = ? WHERE id = ? AND status = ?",
		e.Status.String(), result, completedAt, e.ID, from.String())
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var current string
	err = r.DB.QueryRowContext(ctx, "SELECT status FROM webhook_events WHERE id = ?", e.ID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return webhook.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("selecting event status: %w", err)
	}
	return fmt.Errorf("%w: event is %s, expected %s", webhook.ErrInvalidTransition, current, from)
}

// GetEvent returns an event only if it belongs to webhookID
func (r *Repository) GetEvent(ctx context.Context, webhookID, eventID string) (webhook.DeliveryEvent, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM webhook_events WHERE id = ? AND webhook_id = ?",
		eventID, webhookID)
	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return webhook.DeliveryEvent{}, webhook.ErrNotFound
	}
	if err != nil {
		return webhook.DeliveryEvent{}, fmt.Errorf("selecting event: %w", err)
	}
	return e, nil
}

// ListEvents returns a page of events, newest first, and the total count for the filter
func (r *Repository) ListEvents(ctx context.Context, webhookID string, filter webhook.EventFilter) ([]webhook.DeliveryEvent, int, error) {
	filter = filter.Normalize()

	where := "WHERE webhook_id = ?"
	args := []any{webhookID}
	if filter.Status != 0 {
		where += " AND status = ?"
		args = append(args, filter.Status.String())
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM webhook_events "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting events: %w", err)
	}

	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM webhook_events "+where+" ORDER BY received_at DESC, rowid DESC LIMIT ? OFFSET ?",
		append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("selecting events: %w", err)
	}
	defer rows.Close()

	events := []webhook.DeliveryEvent{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating events: %w", err)
	}
	return events, total, nil
}

// AppendAudit stores an audit entry
func (r *Repository) AppendAudit(ctx context.Context, a webhook.AuditEntry) error {
	details, err := json.Marshal(a.Details)
	if err != nil {
		return fmt.Errorf("encoding audit details: %w", err)
	}
	_, err = r.DB.ExecContext(ctx,
		`INSERT INTO audit_logs (id, actor_user_id, action, entity_type, entity_id, details, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.ActorUserID, a.Action, a.EntityType, a.EntityID, string(details), a.CreatedAt.UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// ListAudit returns the audit entries of an entity, oldest first
func (r *Repository) ListAudit(ctx context.Context, entityID string) ([]webhook.AuditEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, actor_user_id, action, entity_type, entity_id, details, created_at
		FROM audit_logs WHERE entity_id = ? ORDER BY created_at, rowid`, entityID)
	if err != nil {
		return nil, fmt.Errorf("selecting audit entries: %w", err)
	}
	defer rows.Close()

	var entries []webhook.AuditEntry
	for rows.Next() {
		var a webhook.AuditEntry
		var details string
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.ActorUserID, &a.Action, &a.EntityType, &a.EntityID, &details, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if err := json.Unmarshal([]byte(details), &a.Details); err != nil {
			return nil, fmt.Errorf("decoding audit details: %w", err)
		}
		a.CreatedAt = time.Unix(0, createdAt).UTC()
		entries = append(entries, a)
	}
	return entries, rows.Err()
}

// CountEventsByStatus returns the number of events in each status
func (r *Repository) CountEventsByStatus(ctx context.Context) (map[webhook.Status]int64, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT status, COUNT(*) FROM webhook_events GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("counting events by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[webhook.Status]int64)
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[webhook.NewStatus(status)] = count
	}
	return counts, rows.Err()
}

// CountCompletedSince returns how many events reached a terminal status after since
func (r *Repository) CountCompletedSince(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM webhook_events WHERE completed_at >= ?", since.UTC().UnixNano()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting completed events: %w", err)
	}
	return count, nil
}

// Close closes the database
func (r *Repository) Close(ctx context.Context) error {
	if r.DB != nil {
		return r.DB.Close()
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEndpoint(s scanner) (webhook.Endpoint, error) {
	var e webhook.Endpoint
	var routingType string
	var rules sql.NullString
	var createdAt, updatedAt int64
	err := s.Scan(&e.ID, &e.ProjectID, &e.HookKey, &e.Description, &e.SecretHash, &e.Enabled, &routingType,
		&e.TargetURL, &e.AutomationURL, &e.WorkflowID, &rules, &createdAt, &updatedAt)
	if err != nil {
		return webhook.Endpoint{}, err
	}
	e.RoutingType = webhook.NewRoutingType(routingType)
	e.CreatedAt = time.Unix(0, createdAt).UTC()
	e.UpdatedAt = time.Unix(0, updatedAt).UTC()
	if rules.Valid && rules.String != "" {
		e.TransformRules = &transform.Rules{}
		if err := json.Unmarshal([]byte(rules.String), e.TransformRules); err != nil {
			return webhook.Endpoint{}, fmt.Errorf("decoding transform rules: %w", err)
		}
	}
	return e, nil
}

func scanEvent(s scanner) (webhook.DeliveryEvent, error) {
	var e webhook.DeliveryEvent
	var receivedAt int64
	var headers, reqBody, status string
	var result, replayOf sql.NullString
	err := s.Scan(&e.ID, &e.WebhookID, &receivedAt, &headers, &reqBody, &e.RequestOrigin,
		&status, &result, &replayOf)
	if err != nil {
		return webhook.DeliveryEvent{}, err
	}
	e.ReceivedAt = time.Unix(0, receivedAt).UTC()
	e.RequestBody = json.RawMessage(reqBody)
	e.Status = webhook.NewStatus(status)
	if err := json.Unmarshal([]byte(headers), &e.RequestHeaders); err != nil {
		return webhook.DeliveryEvent{}, fmt.Errorf("decoding headers: %w", err)
	}
	if result.Valid {
		e.RouteResult = &webhook.RouteResult{}
		if err := json.Unmarshal([]byte(result.String), e.RouteResult); err != nil {
			return webhook.DeliveryEvent{}, fmt.Errorf("decoding route result: %w", err)
		}
	}
	if replayOf.Valid {
		e.ReplayOf = &replayOf.String
	}
	return e, nil
}

func encodeRules(rules *transform.Rules) (*string, error) {
	if rules == nil {
		return nil, nil
	}
	data, err := json.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("encoding transform rules: %w", err)
	}
	s := string(data)
	return &s, nil
}

func encodeResult(result *webhook.RouteResult) (*string, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding route result: %w", err)
	}
	s := string(data)
	return &s, nil
}

func body(b json.RawMessage) json.RawMessage {
	if len(b) == 0 {
		return json.RawMessage(`{}`)
	}
	return b
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}
