package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/snapwatch/worker/internal/domain"
	"github.com/snapwatch/worker/internal/domain/models"
)

type InstructionRepository struct {
	BaseRepository
}

func NewInstructionRepository(pool *pgxpool.Pool) *InstructionRepository {
	return &InstructionRepository{
		BaseRepository: NewBaseRepository(pool),
	}
}

func (r *InstructionRepository) Create(ctx context.Context, instruction *models.Instruction) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO snapwatch_instructions (
			id, page_id, name, prompt, script, script_type, execution_order,
			is_active, last_error, last_error_at, last_success_at, error_count,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err := r.conn(ctx).Exec(ctx, query,
		instruction.ID,
		instruction.PageID,
		instruction.Name,
		instruction.Prompt,
		instruction.Script,
		string(instruction.ScriptType),
		instruction.ExecutionOrder,
		instruction.IsActive,
		instruction.LastError,
		instruction.LastErrorAt,
		instruction.LastSuccessAt,
		instruction.ErrorCount,
		instruction.CreatedAt,
		instruction.UpdatedAt,
	)

	return err
}

func (r *InstructionRepository) GetByID(ctx context.Context, id string) (*models.Instruction, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, page_id, name, prompt, script, script_type, execution_order,
			is_active, last_error, last_error_at, last_success_at, error_count,
			created_at, updated_at
		FROM snapwatch_instructions
		WHERE id = $1`

	return r.scanInstruction(r.conn(ctx).QueryRow(ctx, query, id))
}

func (r *InstructionRepository) Update(ctx context.Context, instruction *models.Instruction) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE snapwatch_instructions
		SET name = $1, prompt = $2, script = $3, script_type = $4,
			execution_order = $5, is_active = $6, updated_at = NOW()
		WHERE id = $7`

	result, err := r.conn(ctx).Exec(ctx, query,
		instruction.Name,
		instruction.Prompt,
		instruction.Script,
		string(instruction.ScriptType),
		instruction.ExecutionOrder,
		instruction.IsActive,
		instruction.ID,
	)
	if err != nil {
		return err
	}

	if result.RowsAffected() == 0 {
		return domain.ErrInstructionNotFound
	}

	return nil
}

func (r *InstructionRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `DELETE FROM snapwatch_instructions WHERE id = $1`

	_, err := r.conn(ctx).Exec(ctx, query, id)
	return err
}

func (r *InstructionRepository) ListActiveByPageID(ctx context.Context, pageID string) ([]*models.Instruction, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, page_id, name, prompt, script, script_type, execution_order,
			is_active, last_error, last_error_at, last_success_at, error_count,
			created_at, updated_at
		FROM snapwatch_instructions
		WHERE page_id = $1 AND is_active = true AND script != ''
		ORDER BY execution_order ASC, created_at ASC`

	rows, err := r.conn(ctx).Query(ctx, query, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var instructions []*models.Instruction

	for rows.Next() {
		instruction, err := r.scanInstructionRow(rows)
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, instruction)
	}

	return instructions, rows.Err()
}

func (r *InstructionRepository) RecordSuccess(ctx context.Context, id string, at time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE snapwatch_instructions
		SET last_error = '', last_error_at = NULL, last_success_at = $1,
			error_count = 0, updated_at = NOW()
		WHERE id = $2`

	_, err := r.conn(ctx).Exec(ctx, query, at, id)
	return err
}

func (r *InstructionRepository) RecordFailure(ctx context.Context, id string, message string, at time.Time) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `
		UPDATE snapwatch_instructions
		SET last_error = $1, last_error_at = $2, error_count = error_count + 1,
			updated_at = NOW()
		WHERE id = $3`

	_, err := r.conn(ctx).Exec(ctx, query, message, at, id)
	return err
}

func (r *InstructionRepository) scanInstruction(row pgx.Row) (*models.Instruction, error) {
	instruction, err := r.scanInstructionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInstructionNotFound
		}
		return nil, err
	}
	return instruction, nil
}

func (r *InstructionRepository) scanInstructionRow(row pgx.Row) (*models.Instruction, error) {
	var instruction models.Instruction
	var scriptType string

	err := row.Scan(
		&instruction.ID,
		&instruction.PageID,
		&instruction.Name,
		&instruction.Prompt,
		&instruction.Script,
		&scriptType,
		&instruction.ExecutionOrder,
		&instruction.IsActive,
		&instruction.LastError,
		&instruction.LastErrorAt,
		&instruction.LastSuccessAt,
		&instruction.ErrorCount,
		&instruction.CreatedAt,
		&instruction.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	instruction.ScriptType = models.ScriptType(scriptType)
	return &instruction, nil
}
