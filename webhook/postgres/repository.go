package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver used by goose
	"github.com/marcelsud/webhook-router/webhook"
	"github.com/marcelsud/webhook-router/webhook/transform"
	"github.com/pressly/goose/v3"
)

/*
PostgreSQL Repository

- pgxpool for every query, database/sql only for goose migrations
- JSONB columns for headers, bodies, route results and transform rules
- Status updates are conditional on the previous status so concurrent writers cannot move an event backwards
*/

//go:embed migrations/*.sql
var migrations embed.FS

const uniqueViolation = "23505"

type Repository struct {
	Pool *pgxpool.Pool
}

// PoolConfig tunes the connection pool, zero values keep the pgxpool defaults
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NewRepository connects with the default pool settings
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	return NewRepositoryWithPoolConfig(ctx, dsn, PoolConfig{})
}

// NewRepositoryWithPoolConfig connects, pings and returns the repository
func NewRepositoryWithPoolConfig(ctx context.Context, dsn string, cfg PoolConfig) (*Repository, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return &Repository{Pool: pool}, nil
}

// RunMigrations applies every pending migration
func RunMigrations(ctx context.Context, dsn string) error {
	goose.SetBaseFS(migrations)

	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening db for migrations: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := goose.SetDialect("postgres"); err != nil {
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
	err := r.Pool.QueryRow(ctx, "SELECT id, project_key FROM projects WHERE project_key = $1", projectKey).
		Scan(&p.ID, &p.Key)
	if errors.Is(err, pgx.ErrNoRows) {
		return webhook.Project{}, webhook.ErrNotFound
	}
	if err != nil {
		return webhook.Project{}, fmt.Errorf("selecting project: %w", err)
	}
	return p, nil
}

// EnsureProject returns the project with the given key, creating it when missing
func (r *Repository) EnsureProject(ctx context.Context, projectKey string) (webhook.Project, error) {
	_, err := r.Pool.Exec(ctx,
		"INSERT INTO projects (id, project_key) VALUES ($1, $2) ON CONFLICT (project_key) DO NOTHING",
		uuid.New().String(), projectKey)
	if err != nil {
		return webhook.Project{}, fmt.Errorf("inserting project: %w", err)
	}
	return r.FindProject(ctx, projectKey)
}

const endpointColumns = `id, project_id, hook_key, description, secret_hash, enabled, routing_type,
	target_url, automation_url, workflow_id, transform_rules, created_at, updated_at`

// FindEndpoint returns the endpoint of a project by hook key
func (r *Repository) FindEndpoint(ctx context.Context, projectID, hookKey string) (webhook.Endpoint, error) {
	row := r.Pool.QueryRow(ctx,
		"SELECT "+endpointColumns+" FROM webhooks WHERE project_id = $1 AND hook_key = $2",
		projectID, hookKey)
	e, err := scanEndpoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return webhook.Endpoint{}, webhook.ErrNotFound
	}
	if err != nil {
		return webhook.Endpoint{}, fmt.Errorf("selecting endpoint: %w", err)
	}
	return e, nil
}

// ListEndpoints returns every endpoint of a project ordered by hook key
func (r *Repository) ListEndpoints(ctx context.Context, projectID string) ([]webhook.Endpoint, error) {
	rows, err := r.Pool.Query(ctx,
		"SELECT "+endpointColumns+" FROM webhooks WHERE project_id = $1 ORDER BY hook_key",
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
	_, err = r.Pool.Exec(ctx,
		"INSERT INTO webhooks ("+endpointColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)",
		e.ID, e.ProjectID, e.HookKey, e.Description, e.SecretHash, e.Enabled, e.RoutingType.String(),
		e.TargetURL, e.AutomationURL, e.WorkflowID, rules, e.CreatedAt, e.UpdatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
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
	_, err = r.Pool.Exec(ctx,
		`INSERT INTO webhooks (`+endpointColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (project_id, hook_key) DO UPDATE SET
			description = EXCLUDED.description,
			secret_hash = EXCLUDED.secret_hash,
			enabled = EXCLUDED.enabled,
			routing_type = EXCLUDED.routing_type,
			target_url = EXCLUDED.target_url,
			automation_url = EXCLUDED.automation_url,
			workflow_id = EXCLUDED.workflow_id,
			transform_rules = EXCLUDED.transform_rules,
			updated_at = EXCLUDED.updated_at`,
		e.ID, e.ProjectID, e.HookKey, e.Description, e.SecretHash, e.Enabled, e.RoutingType.String(),
		e.TargetURL, e.AutomationURL, e.WorkflowID, rules, e.CreatedAt, e.UpdatedAt)
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
	tag, err := r.Pool.Exec(ctx,
		`UPDATE webhooks SET description = $1, enabled = $2, routing_type = $3, target_url = $4,
			automation_url = $5, workflow_id = $6, transform_rules = $7, updated_at = $8
		WHERE id = $9`,
		e.Description, e.Enabled, e.RoutingType.String(), e.TargetURL, e.AutomationURL, e.WorkflowID,
		rules, e.UpdatedAt, e.ID)
	if err != nil {
		return fmt.Errorf("updating endpoint: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return webhook.ErrNotFound
	}
	return nil
}

// UpdateSecretHash replaces the stored secret hash
func (r *Repository) UpdateSecretHash(ctx context.Context, endpointID, secretHash string) error {
	tag, err := r.Pool.Exec(ctx,
		"UPDATE webhooks SET secret_hash = $1, updated_at = now() WHERE id = $2",
		secretHash, endpointID)
	if err != nil {
		return fmt.Errorf("updating secret hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
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
	body := []byte(e.RequestBody)
	if len(body) == 0 {
		body = []byte(`{}`)
	}
	_, err = r.Pool.Exec(ctx,
		"INSERT INTO webhook_events ("+eventColumns+") VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		e.ID, e.WebhookID, e.ReceivedAt, headers, body, e.RequestOrigin, e.Status.String(), result, e.ReplayOf)
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
	var completedAt *time.Time
	if e.Status.IsFinal() {
		now := time.Now().UTC()
		completedAt = &now
	}

	tag, err := r.Pool.Exec(ctx,
		"UPDATE webhook_events SET status = $1, route_result = $2, completed_at = $3 WHERE id = $4 AND status = $5",
		e.Status.String(), result, completedAt, e.ID, from.String())
	if err != nil {
		return fmt.Errorf("updating event: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var current string
	err = r.Pool.QueryRow(ctx, "SELECT status FROM webhook_events WHERE id = $1", e.ID).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return webhook.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("selecting event status: %w", err)
	}
	return fmt.Errorf("%w: event is %s, expected %s", webhook.ErrInvalidTransition, current, from)
}

// GetEvent returns an event only if it belongs to webhookID
func (r *Repository) GetEvent(ctx context.Context, webhookID, eventID string) (webhook.DeliveryEvent, error) {
	row := r.Pool.QueryRow(ctx,
		"SELECT "+eventColumns+" FROM webhook_events WHERE id = $1 AND webhook_id = $2",
		eventID, webhookID)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
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

	where := "WHERE webhook_id = $1"
	args := []any{webhookID}
	if filter.Status != 0 {
		where += " AND status = $2"
		args = append(args, filter.Status.String())
	}

	var total int
	if err := r.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM webhook_events "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting events: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM webhook_events %s ORDER BY received_at DESC, seq DESC LIMIT $%d OFFSET $%d",
		eventColumns, where, len(args)+1, len(args)+2)
	rows, err := r.Pool.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
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
	_, err = r.Pool.Exec(ctx,
		`INSERT INTO audit_logs (id, actor_user_id, action, entity_type, entity_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.ActorUserID, a.Action, a.EntityType, a.EntityID, details, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// ListAudit returns the audit entries of an entity, oldest first
func (r *Repository) ListAudit(ctx context.Context, entityID string) ([]webhook.AuditEntry, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT id, actor_user_id, action, entity_type, entity_id, details, created_at
		FROM audit_logs WHERE entity_id = $1 ORDER BY created_at`, entityID)
	if err != nil {
		return nil, fmt.Errorf("selecting audit entries: %w", err)
	}
	defer rows.Close()

	var entries []webhook.AuditEntry
	for rows.Next() {
		var a webhook.AuditEntry
		var details []byte
		if err := rows.Scan(&a.ID, &a.ActorUserID, &a.Action, &a.EntityType, &a.EntityID, &details, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return nil, fmt.Errorf("decoding audit details: %w", err)
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}

// CountEventsByStatus returns the number of events in each status
func (r *Repository) CountEventsByStatus(ctx context.Context) (map[webhook.Status]int64, error) {
	rows, err := r.Pool.Query(ctx, "SELECT status, COUNT(*) FROM webhook_events GROUP BY status")
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
	err := r.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM webhook_events WHERE completed_at >= $1", since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting completed events: %w", err)
	}
	return count, nil
}

// Close releases the pool
func (r *Repository) Close(ctx context.Context) error {
	if r.Pool != nil {
		r.Pool.Close()
	}
	return nil
}

func scanEndpoint(row pgx.Row) (webhook.Endpoint, error) {
	var e webhook.Endpoint
	var routingType string
	var rules []byte
	err := row.Scan(&e.ID, &e.ProjectID, &e.HookKey, &e.Description, &e.SecretHash, &e.Enabled, &routingType,
		&e.TargetURL, &e.AutomationURL, &e.WorkflowID, &rules, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return webhook.Endpoint{}, err
	}
	e.RoutingType = webhook.NewRoutingType(routingType)
	e.CreatedAt = e.CreatedAt.UTC()
	e.UpdatedAt = e.UpdatedAt.UTC()
	if len(rules) > 0 {
		e.TransformRules = &transform.Rules{}
		if err := json.Unmarshal(rules, e.TransformRules); err != nil {
			return webhook.Endpoint{}, fmt.Errorf("decoding transform rules: %w", err)
		}
	}
	return e, nil
}

func scanEvent(row pgx.Row) (webhook.DeliveryEvent, error) {
	var e webhook.DeliveryEvent
	var headers, body, result []byte
	var status string
	err := row.Scan(&e.ID, &e.WebhookID, &e.ReceivedAt, &headers, &body, &e.RequestOrigin,
		&status, &result, &e.ReplayOf)
	if err != nil {
		return webhook.DeliveryEvent{}, err
	}
	e.ReceivedAt = e.ReceivedAt.UTC()
	e.RequestBody = json.RawMessage(body)
	e.Status = webhook.NewStatus(status)
	if err := json.Unmarshal(headers, &e.RequestHeaders); err != nil {
		return webhook.DeliveryEvent{}, fmt.Errorf("decoding headers: %w", err)
	}
	if len(result) > 0 {
		e.RouteResult = &webhook.RouteResult{}
		if err := json.Unmarshal(result, e.RouteResult); err != nil {
			return webhook.DeliveryEvent{}, fmt.Errorf("decoding route result: %w", err)
		}
	}
	return e, nil
}

func encodeRules(rules *transform.Rules) ([]byte, error) {
	if rules == nil {
		return nil, nil
	}
	data, err := json.Marshal(rules)
	if err != nil {
		return nil, fmt.Errorf("encoding transform rules: %w", err)
	}
	return data, nil
}

func encodeResult(result *webhook.RouteResult) ([]byte, error) {
	if result == nil {
		return nil, nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encoding route result: %w", err)
	}
	return data, nil
}
