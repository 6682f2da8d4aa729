package repository

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsURL(t *testing.T) {
	got, err := migrationsURL("postgres://u:p@localhost:5432/db?sslmode=disable")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
	assert.Equal(t, "mindchat_schema_migrations", u.Query().Get("x-migrations-table"))

	got, err = migrationsURL("postgres://localhost/db?x-migrations-table=custom")
	require.NoError(t, err)
	assert.Contains(t, got, "x-migrations-table=custom")
}
