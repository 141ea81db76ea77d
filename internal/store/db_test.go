package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDBSqliteMigratesTwice(t *testing.T) {
	ctx := context.Background()
	db, err := NewDB(ctx, "sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(ctx, db.Client), "schema must be idempotent")
	assert.True(t, db.Healthy(ctx))

	var n int
	require.NoError(t, db.Client.GetContext(ctx, &n, `SELECT COUNT(*) FROM attendance_records`))
	assert.Zero(t, n)
}

func TestNilHandlesAreUnhealthy(t *testing.T) {
	var db *DB
	var rd *Redis
	assert.False(t, db.Healthy(context.Background()))
	assert.False(t, rd.Healthy(context.Background()))
	assert.NoError(t, db.Close())
}

func TestRedisHealthy(t *testing.T) {
	mr := miniredis.RunT(t)
	rd := NewRedis(mr.Addr())
	defer rd.Close()
	assert.True(t, rd.Healthy(context.Background()))

	mr.Close()
	assert.False(t, rd.Healthy(context.Background()))
}
