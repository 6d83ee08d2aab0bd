package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashdeck/internal/dbtest"
)

func TestAutoMigrateOnSQLite(t *testing.T) {
	gdb := dbtest.Open(t)
	require.NoError(t, AutoMigrateAndIndexes(gdb))
	require.NoError(t, AutoMigrateAndIndexes(gdb), "migrating twice is a no-op")

	for _, table := range []string{"deck", "deck_attribute_type", "card", "card_attribute_value", "user", "jobs"} {
		assert.True(t, gdb.Migrator().HasTable(table), table)
	}
}
