package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rollcall-app/rollcall/internal/database"
	"github.com/rollcall-app/rollcall/internal/models"
)

// StudentRepository handles student credential data access
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(db *database.DB) *StudentRepository {
	return &StudentRepository{pool: db.Pool}
}

// Create inserts a student with a pre-hashed secret
func (r *StudentRepository) Create(ctx context.Context, regNo, name, secretHash string) (*models.Student, error) {
	query := `
		INSERT INTO students (reg_no, name, secret_hash)
		VALUES ($1, $2, $3)
		RETURNING id, reg_no, name, created_at
	`

	var student models.Student
	err := r.pool.QueryRow(ctx, query, regNo, name, secretHash).Scan(
		&student.ID, &student.RegNo, &student.Name, &student.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create student: %w", database.MapPostgresError(err))
	}

	return &student, nil
}

// GetByRegNo retrieves a student and their secret hash by registration number
func (r *StudentRepository) GetByRegNo(ctx context.Context, regNo string) (*models.Student, string, error) {
	query := `
		SELECT id, reg_no, name, secret_hash, created_at
		FROM students
		WHERE reg_no = $1
	`

	var student models.Student
	var secretHash string
	err := r.pool.QueryRow(ctx, query, regNo).Scan(
		&student.ID, &student.RegNo, &student.Name, &secretHash, &student.CreatedAt,
	)
	if err != nil {
		return nil, "", database.MapPostgresError(err)
	}

	return &student, secretHash, nil
}
