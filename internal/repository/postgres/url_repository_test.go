package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"fcc-shorturl/internal/repository"
	"fcc-shorturl/internal/repository/repotest"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestTranslateError(t *testing.T) {
	plain := errors.New("connection reset")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "duplicate original url",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraintOriginalURL},
			want: repository.ErrDuplicateOriginalURL,
		},
		{
			name: "duplicate short id",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraintShortID},
			want: repository.ErrDuplicateShortID,
		},
		{
			name: "wrapped duplicate",
			err:  fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraintShortID}),
			want: repository.ErrDuplicateShortID,
		},
		{
			name: "unknown constraint",
			err:  &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "other_key"},
		},
		{
			name: "check violation",
			err:  &pgconn.PgError{Code: pgerrcode.CheckViolation, ConstraintName: "urls_short_id_check"},
		},
		{
			name: "non postgres error",
			err:  plain,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError(tt.err)
			if tt.want == nil {
				assert.Same(t, tt.err, got)
				return
			}
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@db:5432/app?sslmode=disable", migrateURL("postgres://u:p@db:5432/app?sslmode=disable"))
	assert.Equal(t, "pgx5://u@db/app", migrateURL("postgresql://u@db/app"))
	assert.Equal(t, "pgx5://already", migrateURL("pgx5://already"))
}

// TestURLRepository_Integration runs against a real server when TEST_DATABASE_URL is set.
func TestURLRepository_Integration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	require.NoError(t, Migrate(dsn))

	suite.Run(t, &repotest.URLRepositorySuite{
		NewRepository: func() repository.URLRepository {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			pool, err := InitDB(ctx, dsn, 10, 1, time.Minute)
			require.NoError(t, err)

			_, err = pool.Exec(ctx, `TRUNCATE urls`)
			require.NoError(t, err)
			_, err = pool.Exec(ctx, `ALTER SEQUENCE urls_short_id_seq RESTART WITH 1`)
			require.NoError(t, err)

			return NewURLRepository(pool)
		},
	})
}
