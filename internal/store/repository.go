package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type Repository interface {
	CreateProject(ctx context.Context, p *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	ListProjects(ctx context.Context) ([]*Project, error)
	UpdateProjectStatus(ctx context.Context, id, status string) error

	CreateMediaAsset(ctx context.Context, a *MediaAsset) error
	GetMediaAsset(ctx context.Context, id string) (*MediaAsset, error)
	ListMediaAssets(ctx context.Context, projectID string) ([]*MediaAsset, error)
	UpdateAssetDuration(ctx context.Context, id string, durationMs int64) error
	UpdateAssetStatus(ctx context.Context, id, status string) error
	DeleteMediaAsset(ctx context.Context, id string) error

	CreateTranscript(ctx context.Context, t *Transcript) error
	GetTranscriptByAsset(ctx context.Context, mediaAssetID string) (*Transcript, error)
	ListTranscriptsByProject(ctx context.Context, projectID string) ([]*Transcript, error)
	DeleteTranscript(ctx context.Context, id string) error

	CreateScene(ctx context.Context, s *Scene) error
	ListScenes(ctx context.Context, projectID string) ([]*Scene, error)
	DeleteScenesByProject(ctx context.Context, projectID string) error

	CreateChapter(ctx context.Context, c *Chapter) error
	CreateChapterScene(ctx context.Context, cs *ChapterScene) error
	ListChapters(ctx context.Context, projectID string) ([]*Chapter, error)
	ListChapterScenes(ctx context.Context, chapterID string) ([]*ChapterScene, error)
	DeleteChaptersByProject(ctx context.Context, projectID string) error

	CreateRun(ctx context.Context, r *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	MarkRunStarted(ctx context.Context, id string) error
	ListRunsByProject(ctx context.Context, projectID string) ([]*Run, error)
	UpdateRunState(ctx context.Context, id, state string, ended bool) error
	SetRunError(ctx context.Context, id, message string) error
	SaveRunStepDetails(ctx context.Context, id string, details *StepDetails) error

	CreateArtifact(ctx context.Context, a *Artifact) error
	GetArtifact(ctx context.Context, id string) (*Artifact, error)
	ListArtifactsByRun(ctx context.Context, runID string) ([]*Artifact, error)
	ListArtifactsByProject(ctx context.Context, projectID string) ([]*Artifact, error)
	DeleteArtifactsByType(ctx context.Context, runID, artifactType string) error

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error

	// WithTx runs fn against a repository bound to one transaction,
	// committing when fn returns nil and rolling back otherwise.
	WithTx(ctx context.Context, fn func(Repository) error) error
}

// queryer is the subset of database/sql shared by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type SQLiteRepository struct {
	conn *sql.DB // nil when this repository is bound to a transaction
	db   queryer
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{conn: db, db: db}
}

func (r *SQLiteRepository) WithTx(ctx context.Context, fn func(Repository) error) error {
	if r.conn == nil {
		return fn(r)
	}
	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&SQLiteRepository{db: tx}); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p *Project) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO projects (id, title, description, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.Title, nullString(p.Description), p.Status,
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id string) (*Project, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, status, created_at, updated_at
		FROM projects WHERE id = ?
	`, id)

	var p Project
	var description sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&p.ID, &p.Title, &description, &p.Status, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &p, nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]*Project, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, status, created_at, updated_at
		FROM projects ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		var p Project
		var description sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Title, &description, &p.Status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.Description = description.String
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

func (r *SQLiteRepository) UpdateProjectStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects SET status = ?, updated_at = ? WHERE id = ?
	`, status, now(), id)
	return err
}

func (r *SQLiteRepository) CreateMediaAsset(ctx context.Context, a *MediaAsset) error {
	var uploadedAt sql.NullString
	if a.UploadedAt != nil {
		uploadedAt = sql.NullString{String: a.UploadedAt.Format(time.RFC3339), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO media_assets (id, project_id, original_filename, storage_key, duration_ms, status, uploaded_at, checksum, mime_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.ProjectID, a.OriginalFilename, a.StorageKey, nullInt64(a.DurationMs),
		a.Status, uploadedAt, nullString(a.Checksum), nullString(a.MimeType),
		a.CreatedAt.Format(time.RFC3339))
	return err
}

const assetColumns = `id, project_id, original_filename, storage_key, duration_ms, status, uploaded_at, checksum, mime_type, created_at`

func (r *SQLiteRepository) GetMediaAsset(ctx context.Context, id string) (*MediaAsset, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+assetColumns+` FROM media_assets WHERE id = ?`, id)
	return scanAsset(row.Scan)
}

// ListMediaAssets returns a project's assets in insertion order. Scene index
// assignment depends on this ordering being stable across runs.
func (r *SQLiteRepository) ListMediaAssets(ctx context.Context, projectID string) ([]*MediaAsset, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM media_assets WHERE project_id = ? ORDER BY rowid`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assets []*MediaAsset
	for rows.Next() {
		a, err := scanAsset(rows.Scan)
		if err != nil {
			return nil, err
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func scanAsset(scan func(dest ...any) error) (*MediaAsset, error) {
	var a MediaAsset
	var duration sql.NullInt64
	var uploadedAt, checksum, mimeType sql.NullString
	var createdAt string

	err := scan(&a.ID, &a.ProjectID, &a.OriginalFilename, &a.StorageKey, &duration,
		&a.Status, &uploadedAt, &checksum, &mimeType, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if duration.Valid {
		a.DurationMs = &duration.Int64
	}
	if uploadedAt.Valid {
		t, err := time.Parse(time.RFC3339, uploadedAt.String)
		if err == nil {
			a.UploadedAt = &t
		}
	}
	a.Checksum = checksum.String
	a.MimeType = mimeType.String
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func (r *SQLiteRepository) UpdateAssetDuration(ctx context.Context, id string, durationMs int64) error {
	_, err := r.db.ExecContext(ctx, "UPDATE media_assets SET duration_ms = ? WHERE id = ?", durationMs, id)
	return err
}

func (r *SQLiteRepository) UpdateAssetStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE media_assets SET status = ? WHERE id = ?", status, id)
	return err
}

func (r *SQLiteRepository) DeleteMediaAsset(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM media_assets WHERE id = ?", id)
	return err
}

func (r *SQLiteRepository) CreateTranscript(ctx context.Context, t *Transcript) error {
	metadata, err := marshalJSON(t.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO transcripts (id, media_asset_id, language, text, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.ID, t.MediaAssetID, nullString(t.Language), t.Text, metadata,
		t.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetTranscriptByAsset(ctx context.Context, mediaAssetID string) (*Transcript, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, media_asset_id, language, text, metadata, created_at
		FROM transcripts WHERE media_asset_id = ?
	`, mediaAssetID)
	return scanTranscript(row.Scan)
}

func (r *SQLiteRepository) ListTranscriptsByProject(ctx context.Context, projectID string) ([]*Transcript, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.media_asset_id, t.language, t.text, t.metadata, t.created_at
		FROM transcripts t
		JOIN media_assets m ON m.id = t.media_asset_id
		WHERE m.project_id = ? ORDER BY m.rowid
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transcripts []*Transcript
	for rows.Next() {
		t, err := scanTranscript(rows.Scan)
		if err != nil {
			return nil, err
		}
		transcripts = append(transcripts, t)
	}
	return transcripts, rows.Err()
}

func (r *SQLiteRepository) DeleteTranscript(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM transcripts WHERE id = ?", id)
	return err
}

func scanTranscript(scan func(dest ...any) error) (*Transcript, error) {
	var t Transcript
	var language, metadata sql.NullString
	var createdAt string

	err := scan(&t.ID, &t.MediaAssetID, &language, &t.Text, &metadata, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	t.Language = language.String
	if metadata.Valid {
		var m TranscriptMetadata
		if err := json.Unmarshal([]byte(metadata.String), &m); err == nil {
			t.Metadata = &m
		}
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}

func (r *SQLiteRepository) CreateScene(ctx context.Context, s *Scene) error {
	metadata, err := marshalJSON(s.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO scenes (id, project_id, media_asset_id, idx, start_ms, end_ms, label, preview_uri, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.ProjectID, nullString(s.MediaAssetID), s.Index, s.StartMs, s.EndMs,
		nullString(s.Label), nullString(s.PreviewURI), metadata,
		s.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) ListScenes(ctx context.Context, projectID string) ([]*Scene, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, media_asset_id, idx, start_ms, end_ms, label, preview_uri, metadata, created_at
		FROM scenes WHERE project_id = ? ORDER BY idx
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scenes []*Scene
	for rows.Next() {
		var s Scene
		var mediaAssetID, label, previewURI, metadata sql.NullString
		var createdAt string
		if err := rows.Scan(&s.ID, &s.ProjectID, &mediaAssetID, &s.Index, &s.StartMs, &s.EndMs,
			&label, &previewURI, &metadata, &createdAt); err != nil {
			return nil, err
		}
		s.MediaAssetID = mediaAssetID.String
		s.Label = label.String
		s.PreviewURI = previewURI.String
		if metadata.Valid {
			var m SceneMetadata
			if err := json.Unmarshal([]byte(metadata.String), &m); err == nil {
				s.Metadata = &m
			}
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		scenes = append(scenes, &s)
	}
	return scenes, rows.Err()
}

func (r *SQLiteRepository) DeleteScenesByProject(ctx context.Context, projectID string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM scenes WHERE project_id = ?", projectID)
	return err
}

func (r *SQLiteRepository) CreateChapter(ctx context.Context, c *Chapter) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chapters (id, project_id, idx, start_ms, end_ms, title, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.ProjectID, c.Index, c.StartMs, c.EndMs,
		nullString(c.Title), nullString(c.Description), c.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) CreateChapterScene(ctx context.Context, cs *ChapterScene) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chapter_scenes (id, chapter_id, scene_id, order_index)
		VALUES (?, ?, ?, ?)
	`, cs.ID, cs.ChapterID, cs.SceneID, cs.OrderIndex)
	return err
}

func (r *SQLiteRepository) ListChapters(ctx context.Context, projectID string) ([]*Chapter, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, idx, start_ms, end_ms, title, description, created_at
		FROM chapters WHERE project_id = ? ORDER BY idx
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chapters []*Chapter
	for rows.Next() {
		var c Chapter
		var title, description sql.NullString
		var createdAt string
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Index, &c.StartMs, &c.EndMs,
			&title, &description, &createdAt); err != nil {
			return nil, err
		}
		c.Title = title.String
		c.Description = description.String
		c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		chapters = append(chapters, &c)
	}
	return chapters, rows.Err()
}

func (r *SQLiteRepository) ListChapterScenes(ctx context.Context, chapterID string) ([]*ChapterScene, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, chapter_id, scene_id, order_index
		FROM chapter_scenes WHERE chapter_id = ? ORDER BY order_index
	`, chapterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*ChapterScene
	for rows.Next() {
		var cs ChapterScene
		if err := rows.Scan(&cs.ID, &cs.ChapterID, &cs.SceneID, &cs.OrderIndex); err != nil {
			return nil, err
		}
		links = append(links, &cs)
	}
	return links, rows.Err()
}

// DeleteChaptersByProject removes join rows before their chapters so the
// recompute never observes a half-deleted grouping.
func (r *SQLiteRepository) DeleteChaptersByProject(ctx context.Context, projectID string) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM chapter_scenes WHERE chapter_id IN
			(SELECT id FROM chapters WHERE project_id = ?)
	`, projectID)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, "DELETE FROM chapters WHERE project_id = ?", projectID)
	return err
}

func (r *SQLiteRepository) CreateRun(ctx context.Context, run *Run) error {
	var startedAt sql.NullString
	if run.StartedAt != nil {
		startedAt = sql.NullString{String: run.StartedAt.Format(time.RFC3339), Valid: true}
	}
	details, err := marshalJSON(run.StepDetails)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO runs (id, project_id, state, started_at, ended_at, error_message, step_details, created_at)
		VALUES (?, ?, ?, ?, NULL, NULL, ?, ?)
	`, run.ID, run.ProjectID, run.State, startedAt, details, run.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetRun(ctx context.Context, id string) (*Run, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, project_id, state, started_at, ended_at, error_message, step_details, created_at
		FROM runs WHERE id = ?
	`, id)
	return scanRun(row.Scan)
}

func (r *SQLiteRepository) ListRunsByProject(ctx context.Context, projectID string) ([]*Run, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, project_id, state, started_at, ended_at, error_message, step_details, created_at
		FROM runs WHERE project_id = ? ORDER BY created_at DESC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(scan func(dest ...any) error) (*Run, error) {
	var run Run
	var startedAt, endedAt, errorMessage, details sql.NullString
	var createdAt string

	err := scan(&run.ID, &run.ProjectID, &run.State, &startedAt, &endedAt,
		&errorMessage, &details, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		t, err := time.Parse(time.RFC3339, startedAt.String)
		if err == nil {
			run.StartedAt = &t
		}
	}
	if endedAt.Valid {
		t, err := time.Parse(time.RFC3339, endedAt.String)
		if err == nil {
			run.EndedAt = &t
		}
	}
	run.ErrorMessage = errorMessage.String
	if details.Valid {
		var sd StepDetails
		if err := json.Unmarshal([]byte(details.String), &sd); err == nil {
			run.StepDetails = &sd
		}
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &run, nil
}

func (r *SQLiteRepository) MarkRunStarted(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE runs SET started_at = ? WHERE id = ? AND started_at IS NULL
	`, now(), id)
	return err
}

func (r *SQLiteRepository) UpdateRunState(ctx context.Context, id, state string, ended bool) error {
	if ended {
		_, err := r.db.ExecContext(ctx, `
			UPDATE runs SET state = ?, ended_at = ? WHERE id = ?
		`, state, now(), id)
		return err
	}
	_, err := r.db.ExecContext(ctx, "UPDATE runs SET state = ? WHERE id = ?", state, id)
	return err
}

func (r *SQLiteRepository) SetRunError(ctx context.Context, id, message string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE runs SET error_message = ? WHERE id = ?", nullString(message), id)
	return err
}

func (r *SQLiteRepository) SaveRunStepDetails(ctx context.Context, id string, details *StepDetails) error {
	payload, err := marshalJSON(details)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, "UPDATE runs SET step_details = ? WHERE id = ?", payload, id)
	return err
}

func (r *SQLiteRepository) CreateArtifact(ctx context.Context, a *Artifact) error {
	metadata, err := marshalJSON(a.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO artifacts (id, run_id, type, storage_key, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.RunID, a.Type, a.StorageKey, metadata, a.CreatedAt.Format(time.RFC3339))
	return err
}

func (r *SQLiteRepository) GetArtifact(ctx context.Context, id string) (*Artifact, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, run_id, type, storage_key, metadata, created_at
		FROM artifacts WHERE id = ?
	`, id)
	return scanArtifact(row.Scan)
}

func (r *SQLiteRepository) ListArtifactsByRun(ctx context.Context, runID string) ([]*Artifact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, type, storage_key, metadata, created_at
		FROM artifacts WHERE run_id = ? ORDER BY created_at
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArtifacts(rows)
}

func (r *SQLiteRepository) ListArtifactsByProject(ctx context.Context, projectID string) ([]*Artifact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.run_id, a.type, a.storage_key, a.metadata, a.created_at
		FROM artifacts a
		JOIN runs r ON r.id = a.run_id
		WHERE r.project_id = ? ORDER BY a.created_at
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanArtifacts(rows)
}

func (r *SQLiteRepository) DeleteArtifactsByType(ctx context.Context, runID, artifactType string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM artifacts WHERE run_id = ? AND type = ?", runID, artifactType)
	return err
}

func scanArtifact(scan func(dest ...any) error) (*Artifact, error) {
	var a Artifact
	var metadata sql.NullString
	var createdAt string

	err := scan(&a.ID, &a.RunID, &a.Type, &a.StorageKey, &metadata, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if metadata.Valid {
		var m ArtifactMetadata
		if err := json.Unmarshal([]byte(metadata.String), &m); err == nil {
			a.Metadata = &m
		}
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &a, nil
}

func scanArtifacts(rows *sql.Rows) ([]*Artifact, error) {
	var artifacts []*Artifact
	for rows.Next() {
		a, err := scanArtifact(rows.Scan)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func marshalJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	switch t := v.(type) {
	case *TranscriptMetadata:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *SceneMetadata:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *ArtifactMetadata:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *StepDetails:
		if t == nil {
			return sql.NullString{}, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
