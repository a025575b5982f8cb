package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
)

type TestRepository struct {
	BaseRepository
}

func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

func (r *TestRepository) Create(ctx context.Context, test *models.Test) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	viewports, err := marshalStringSlice(test.Viewports)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO snapwatch_tests (
			id, page_id, name, prompt, script, script_type, is_active, viewports,
			last_error, last_error_at, last_success_at, error_count,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err = r.conn(ctx).Exec(ctx, query,
		test.ID,
		test.PageID,
		test.Name,
		test.Prompt,
		test.Script,
		string(test.ScriptType),
		test.IsActive,
		viewports,
		test.LastError,
		test.LastErrorAt,
		test.LastSuccessAt,
		test.ErrorCount,
		test.CreatedAt,
		test.UpdatedAt,
	)

	return err
}

func (r *TestRepository) GetByID(ctx context.Context, id string) (*models.Test, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, page_id, name, prompt, script, script_type, is_active, viewports,
			last_error, last_error_at, last_success_at, error_count,
			created_at, updated_at
		FROM snapwatch_tests
		WHERE id = $1`

	return r.scanTest(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *TestRepository) Update(ctx context.Context, test *models.Test) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	viewports, err := marshalStringSlice(test.Viewports)
	if err != nil {
		return err
	}

	query := `
		UPDATE snapwatch_tests
		SET name = $1, prompt = $2, script = $3, script_type = $4,
			is_active = $5, viewports = $6, updated_at = NOW()
		WHERE id = $7`

	result, err := r.conn(ctx).Exec(ctx, query,
		test.Name,
		test.Prompt,
		test.Script,
		string(test.ScriptType),
		test.IsActive,
		viewports,
		test.ID,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrTestNotFound
	}

	return nil
}

func (r *TestRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM snapwatch_tests WHERE id = $1`

	_, err := r.conn(ctx).Exec(ctx, query, id)
	return err
}

func (r *TestRepository) ListActiveByPageID(ctx context.Context, pageID string) ([]*models.Test, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, page_id, name, prompt, script, script_type, is_active, viewports,
			last_error, last_error_at, last_success_at, error_count,
			created_at, updated_at
		FROM snapwatch_tests
		WHERE page_id = $1 AND is_active = true AND script != ''
		ORDER BY created_at ASC`

	rows, err := r.conn(ctx).Query(ctx, query, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tests []*models.Test

	for rows.Next() {
		test, err := r.scanTestRow(rows)
		if err != nil {
			return nil, err
		}
		tests = append(tests, test)
	}

	return tests, rows.Err()
}

func (r *TestRepository) scanTest(row pgx.Row) (*models.Test, error) {
	test, err := r.scanTestRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTestNotFound
		}
		return nil, err
	}
	return test, nil
}

func (r *TestRepository) scanTestRow(row pgx.Row) (*models.Test, error) {
	var test models.Test
	var scriptType string
	var viewports []byte

	err := row.Scan(
		&test.ID,
		&test.PageID,
		&test.Name,
		&test.Prompt,
		&test.Script,
		&scriptType,
		&test.IsActive,
		&viewports,
		&test.LastError,
		&test.LastErrorAt,
		&test.LastSuccessAt,
		&test.ErrorCount,
		&test.CreatedAt,
		&test.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	test.ScriptType = models.ScriptType(scriptType)
	test.Viewports, err = unmarshalJSONSlice[string](viewports)
	if err != nil {
		return nil, err
	}

	return &test, nil
}
