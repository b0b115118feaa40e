package postgres

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrations(t *testing.T) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	body, err := fs.ReadFile(migrationsFS, files[0])
	require.NoError(t, err)

	sql := string(body)
	assert.Contains(t, sql, "-- +goose Up")
	assert.Contains(t, sql, "-- +goose Down")
	for _, constraint := range []string{
		constraintUsername,
		constraintActiveUserSeminar,
		constraintActiveInstructorSem,
		constraintActiveInstructorUsr,
	} {
		assert.Contains(t, sql, constraint)
	}
}
