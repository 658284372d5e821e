package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Sushanta-Pal/InterViewPIP/internal/model"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository opens a connection pool to the given Postgres DSN
// and ensures the profile table exists.
func NewPostgresRepository(ctx context.Context, dsn string) (ProfileRepository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	r := &postgresRepository{db: db}
	if err := r.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

// ensureSchema creates the profile table on first run. session_history is an
// embedded JSONB collection, not a joined table, because averages are
// recomputed from the whole history on every write.
func (r *postgresRepository) ensureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS user_profiles (
			user_id                     TEXT PRIMARY KEY,
			email                       TEXT NOT NULL DEFAULT '',
			display_name                TEXT NOT NULL DEFAULT '',
			university                  TEXT NOT NULL DEFAULT '',
			roll_number                 TEXT NOT NULL DEFAULT '',
			date_of_birth               TEXT NOT NULL DEFAULT '',
			department                  TEXT NOT NULL DEFAULT '',
			gender                      TEXT NOT NULL DEFAULT '',
			session_history             JSONB NOT NULL DEFAULT '[]',
			overall_average_score       INT NOT NULL DEFAULT 0,
			average_reading_score       INT NOT NULL DEFAULT 0,
			average_repetition_score    INT NOT NULL DEFAULT 0,
			average_comprehension_score INT NOT NULL DEFAULT 0,
			version                     INT NOT NULL DEFAULT 1
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Get retrieves a user profile by user id.
func (r *postgresRepository) Get(ctx context.Context, userID string) (*model.UserProfile, error) {
	query := `
		SELECT
			user_id, email, display_name, university, roll_number,
			date_of_birth, department, gender, session_history,
			overall_average_score, average_reading_score,
			average_repetition_score, average_comprehension_score, version
		FROM user_profiles
		WHERE user_id = $1
	`

	var profile model.UserProfile
	var historyJSON []byte

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&profile.UserID,
		&profile.Email,
		&profile.DisplayName,
		&profile.University,
		&profile.RollNumber,
		&profile.DateOfBirth,
		&profile.Department,
		&profile.Gender,
		&historyJSON,
		&profile.OverallAverageScore,
		&profile.AverageReadingScore,
		&profile.AverageRepetitionScore,
		&profile.AverageComprehensionScore,
		&profile.Version,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &profile.SessionHistory); err != nil {
			return nil, fmt.Errorf("failed to unmarshal session history: %w", err)
		}
	}

	return &profile, nil
}

// Upsert writes the full profile in one statement, guarded by the version
// column. A no-op row count on an existing row means another writer won the
// race; the caller re-reads and retries.
func (r *postgresRepository) Upsert(ctx context.Context, profile *model.UserProfile) error {
	historyJSON, err := json.Marshal(profile.SessionHistory)
	if err != nil {
		return fmt.Errorf("failed to marshal session history: %w", err)
	}

	query := `
		INSERT INTO user_profiles (
			user_id, email, display_name, university, roll_number,
			date_of_birth, department, gender, session_history,
			overall_average_score, average_reading_score,
			average_repetition_score, average_comprehension_score, version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10, $11, $12, $13, 1
		)
		ON CONFLICT (user_id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			university = EXCLUDED.university,
			roll_number = EXCLUDED.roll_number,
			date_of_birth = EXCLUDED.date_of_birth,
			department = EXCLUDED.department,
			gender = EXCLUDED.gender,
			session_history = EXCLUDED.session_history,
			overall_average_score = EXCLUDED.overall_average_score,
			average_reading_score = EXCLUDED.average_reading_score,
			average_repetition_score = EXCLUDED.average_repetition_score,
			average_comprehension_score = EXCLUDED.average_comprehension_score,
			version = user_profiles.version + 1
		WHERE user_profiles.version = $14
	`

	result, err := r.db.ExecContext(ctx, query,
		profile.UserID,
		profile.Email,
		profile.DisplayName,
		profile.University,
		profile.RollNumber,
		profile.DateOfBirth,
		profile.Department,
		profile.Gender,
		historyJSON,
		profile.OverallAverageScore,
		profile.AverageReadingScore,
		profile.AverageRepetitionScore,
		profile.AverageComprehensionScore,
		profile.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user profile: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if rows == 0 {
		return ErrVersionConflict
	}
	return nil
}
