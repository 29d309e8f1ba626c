package internal

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_Embedded(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, f := range files {
		b, err := fs.ReadFile(migrations, f)
		require.NoError(t, err)
		sql := string(b)
		assert.True(t, strings.Contains(sql, "-- +goose Up"), "%s has no Up section", f)
		assert.True(t, strings.Contains(sql, "-- +goose Down"), "%s has no Down section", f)
	}
}
