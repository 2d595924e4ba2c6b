package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Queries wraps database queries
type Queries struct {
	*pgxpool.Pool
}

// NewQueries creates a new Queries instance
func NewQueries(pool *pgxpool.Pool) *Queries {
	return &Queries{Pool: pool}
}

// Entity represents an entity row: the mirror of an externally owned
// conversation, prompt, file or application.
type Entity struct {
	ID             string
	Kind           string
	Name           string
	Bucket         string
	FolderID       *string
	IsNotExist     bool
	PublicationURL *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

const entityColumns = `id, kind, name, bucket, folder_id, is_not_exist, publication_url, created_at, updated_at`

func scanEntity(row pgx.Row) (Entity, error) {
	var e Entity
	err := row.Scan(&e.ID, &e.Kind, &e.Name, &e.Bucket, &e.FolderID,
		&e.IsNotExist, &e.PublicationURL, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (q *Queries) GetEntityByID(ctx context.Context, id string) (Entity, error) {
	return scanEntity(q.Pool.QueryRow(ctx,
		"SELECT "+entityColumns+" FROM entities WHERE id = $1", id))
}

func (q *Queries) ListEntities(ctx context.Context, kind, bucket string) ([]Entity, error) {
	rows, err := q.Pool.Query(ctx,
		"SELECT "+entityColumns+` FROM entities
		WHERE kind = $1 AND bucket = $2 AND NOT is_not_exist
		ORDER BY id`,
		kind, bucket,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entities := make([]Entity, 0)
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (q *Queries) UpsertEntity(ctx context.Context, e Entity) (Entity, error) {
	return scanEntity(q.Pool.QueryRow(ctx,
		`INSERT INTO entities (id, kind, name, bucket, folder_id, publication_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			publication_url = EXCLUDED.publication_url,
			is_not_exist = FALSE,
			updated_at = NOW()
		RETURNING `+entityColumns,
		e.ID, e.Kind, e.Name, e.Bucket, e.FolderID, e.PublicationURL,
	))
}

func (q *Queries) MarkEntityNotExist(ctx context.Context, id string) error {
	_, err := q.Pool.Exec(ctx,
		"UPDATE entities SET is_not_exist = TRUE, updated_at = NOW() WHERE id = $1", id)
	return err
}

func (q *Queries) DeleteEntity(ctx context.Context, id string) error {
	_, err := q.Pool.Exec(ctx, "DELETE FROM entities WHERE id = $1", id)
	return err
}

// ExistingEntityIDs filters ids down to those present and not flagged
// missing. Used to detect resources deleted mid-review.
func (q *Queries) ExistingEntityIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	if len(ids) == 0 {
		return map[string]bool{}, nil
	}
	rows, err := q.Pool.Query(ctx,
		"SELECT id FROM entities WHERE id = ANY($1) AND NOT is_not_exist", ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = true
	}
	return existing, rows.Err()
}

// Publication rows

type Publication struct {
	URL           string
	Name          string
	TargetFolder  string
	Status        string
	CreatedBy     string
	ResourceTypes []string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type PublicationResource struct {
	PublicationURL string
	SourceURL      *string
	TargetURL      string
	ReviewURL      string
	Action         string
}

type PublicationRule struct {
	PublicationURL string
	Source         string
	Function       string
	Targets        []string
}

type CreatePublicationParams struct {
	URL           string
	Name          string
	TargetFolder  string
	Status        string
	CreatedBy     string
	ResourceTypes []string
	Resources     []PublicationResource
	Rules         []PublicationRule
}

const publicationColumns = `url, name, target_folder, status, created_by, resource_types, created_at, updated_at`

func scanPublication(row pgx.Row) (Publication, error) {
	var p Publication
	err := row.Scan(&p.URL, &p.Name, &p.TargetFolder, &p.Status, &p.CreatedBy,
		&p.ResourceTypes, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// CreatePublication inserts the publication with its resources and rules
// in one transaction.
func (q *Queries) CreatePublication(ctx context.Context, params CreatePublicationParams) (Publication, error) {
	tx, err := q.Pool.Begin(ctx)
	if err != nil {
		return Publication{}, err
	}
	defer tx.Rollback(ctx)

	pub, err := scanPublication(tx.QueryRow(ctx,
		`INSERT INTO publications (url, name, target_folder, status, created_by, resource_types)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+publicationColumns,
		params.URL, params.Name, params.TargetFolder, params.Status, params.CreatedBy, params.ResourceTypes,
	))
	if err != nil {
		return Publication{}, err
	}

	for _, r := range params.Resources {
		_, err = tx.Exec(ctx,
			`INSERT INTO publication_resources (publication_url, source_url, target_url, review_url, action)
			VALUES ($1, $2, $3, $4, $5)`,
			params.URL, r.SourceURL, r.TargetURL, r.ReviewURL, r.Action,
		)
		if err != nil {
			return Publication{}, err
		}
	}

	for _, r := range params.Rules {
		_, err = tx.Exec(ctx,
			`INSERT INTO publication_rules (publication_url, source, function, targets)
			VALUES ($1, $2, $3, $4)`,
			params.URL, r.Source, r.Function, r.Targets,
		)
		if err != nil {
			return Publication{}, err
		}
	}

	return pub, tx.Commit(ctx)
}

func (q *Queries) GetPublicationByURL(ctx context.Context, url string) (Publication, error) {
	return scanPublication(q.Pool.QueryRow(ctx,
		"SELECT "+publicationColumns+" FROM publications WHERE url = $1", url))
}

func (q *Queries) ListPublications(ctx context.Context, status *string) ([]Publication, error) {
	var rows pgx.Rows
	var err error
	if status != nil && *status != "" {
		rows, err = q.Pool.Query(ctx,
			"SELECT "+publicationColumns+" FROM publications WHERE status = $1 ORDER BY created_at DESC",
			*status)
	} else {
		rows, err = q.Pool.Query(ctx,
			"SELECT "+publicationColumns+" FROM publications ORDER BY created_at DESC")
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pubs := make([]Publication, 0)
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, err
		}
		pubs = append(pubs, p)
	}
	return pubs, rows.Err()
}

// UpdatePublicationStatus transitions a PENDING publication to a
// terminal status. Returns pgx.ErrNoRows if it was already terminal.
func (q *Queries) UpdatePublicationStatus(ctx context.Context, url, status string) error {
	result, err := q.Pool.Exec(ctx,
		"UPDATE publications SET status = $2, updated_at = NOW() WHERE url = $1 AND status = 'PENDING'",
		url, status,
	)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (q *Queries) GetPublicationResources(ctx context.Context, url string) ([]PublicationResource, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT publication_url, source_url, target_url, review_url, action
		FROM publication_resources WHERE publication_url = $1 ORDER BY id`,
		url,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	resources := make([]PublicationResource, 0)
	for rows.Next() {
		var r PublicationResource
		if err := rows.Scan(&r.PublicationURL, &r.SourceURL, &r.TargetURL, &r.ReviewURL, &r.Action); err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

func (q *Queries) GetPublicationRules(ctx context.Context, url string) ([]PublicationRule, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT publication_url, source, function, targets
		FROM publication_rules WHERE publication_url = $1 ORDER BY id`,
		url,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]PublicationRule, 0)
	for rows.Next() {
		var r PublicationRule
		if err := rows.Scan(&r.PublicationURL, &r.Source, &r.Function, &r.Targets); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// Rule records: the rules currently in force per public path

type RuleRecord struct {
	Path     string
	Source   string
	Function string
	Targets  []string
}

func (q *Queries) ListRuleRecords(ctx context.Context) ([]RuleRecord, error) {
	rows, err := q.Pool.Query(ctx,
		"SELECT path, source, function, targets FROM rule_records ORDER BY path, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]RuleRecord, 0)
	for rows.Next() {
		var r RuleRecord
		if err := rows.Scan(&r.Path, &r.Source, &r.Function, &r.Targets); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ReplaceRuleRecords swaps the rule set in force at one path.
func (q *Queries) ReplaceRuleRecords(ctx context.Context, path string, records []RuleRecord) error {
	tx, err := q.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "DELETE FROM rule_records WHERE path = $1", path); err != nil {
		return err
	}
	for _, r := range records {
		_, err = tx.Exec(ctx,
			"INSERT INTO rule_records (path, source, function, targets) VALUES ($1, $2, $3, $4)",
			path, r.Source, r.Function, r.Targets,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// Resources to review

type ResourceToReview struct {
	ReviewURL      string
	PublicationURL string
	Reviewed       bool
	CreatedAt      time.Time
}

// SeedResourcesToReview inserts records, keeping existing ones untouched
// so reviewed flags survive a re-open.
func (q *Queries) SeedResourcesToReview(ctx context.Context, records []ResourceToReview) error {
	tx, err := q.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, r := range records {
		_, err = tx.Exec(ctx,
			`INSERT INTO resources_to_review (review_url, publication_url, reviewed)
			VALUES ($1, $2, $3)
			ON CONFLICT (review_url, publication_url) DO NOTHING`,
			r.ReviewURL, r.PublicationURL, r.Reviewed,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (q *Queries) ListResourcesToReview(ctx context.Context, publicationURL string) ([]ResourceToReview, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT review_url, publication_url, reviewed, created_at
		FROM resources_to_review WHERE publication_url = $1 ORDER BY created_at, review_url`,
		publicationURL,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]ResourceToReview, 0)
	for rows.Next() {
		var r ResourceToReview
		if err := rows.Scan(&r.ReviewURL, &r.PublicationURL, &r.Reviewed, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// MarkResourceReviewed flips a record to reviewed. Sticky: a record that
// is already reviewed stays reviewed and reports no change.
func (q *Queries) MarkResourceReviewed(ctx context.Context, reviewURL, publicationURL string) (bool, error) {
	result, err := q.Pool.Exec(ctx,
		`UPDATE resources_to_review SET reviewed = TRUE
		WHERE review_url = $1 AND publication_url = $2 AND NOT reviewed`,
		reviewURL, publicationURL,
	)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// DeleteResourcesToReview drops a publication's review session records.
// Only used when the session is abandoned or the publication closes.
func (q *Queries) DeleteResourcesToReview(ctx context.Context, publicationURL string) error {
	_, err := q.Pool.Exec(ctx,
		"DELETE FROM resources_to_review WHERE publication_url = $1", publicationURL)
	return err
}

// StaleReviewPublicationURLs returns publication urls whose review
// records belong to closed publications or have been idle longer than
// maxAge.
func (q *Queries) StaleReviewPublicationURLs(ctx context.Context, maxAge time.Duration) ([]string, error) {
	rows, err := q.Pool.Query(ctx,
		`SELECT DISTINCT r.publication_url
		FROM resources_to_review r
		JOIN publications p ON p.url = r.publication_url
		WHERE p.status != 'PENDING' OR r.created_at < NOW() - $1::interval`,
		maxAge.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	urls := make([]string, 0)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, rows.Err()
}
