package kvstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseStore runs the common contract against any backend.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, found, err := s.Get(ctx, "patients")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "patients", `[{"id":"PT001"}]`))
	v, found, err := s.Get(ctx, "patients")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[{"id":"PT001"}]`, v)

	require.NoError(t, s.Set(ctx, "patients", `[]`))
	v, _, err = s.Get(ctx, "patients")
	require.NoError(t, err)
	assert.Equal(t, `[]`, v)

	require.NoError(t, s.Remove(ctx, "patients"))
	_, found, err = s.Get(ctx, "patients")
	require.NoError(t, err)
	assert.False(t, found)

	// Removing a missing key is not an error.
	require.NoError(t, s.Remove(ctx, "never-set"))
}

func TestMemoryStore_Contract(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_FailureSwitches(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	m.SetFailures(false, true)
	assert.Error(t, m.Set(ctx, "k", "v"))
	assert.Error(t, m.Remove(ctx, "k"))

	m.SetFailures(true, false)
	_, _, err := m.Get(ctx, "k")
	assert.Error(t, err)
}

func TestMemoryStore_Closed(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Close())
	err := m.Set(context.Background(), "k", "v")
	assert.True(t, errors.Is(err, ErrClosed))
}

func TestSQLiteStore_Contract(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "hms.db"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hms.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "invoices", `[{"id":1}]`))
	require.NoError(t, s.Close())

	s2, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()
	v, found, err := s2.Get(ctx, "invoices")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[{"id":1}]`, v)
}

func TestSQLStore_WriteErrorIsReturned(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO kv").
		WithArgs("patients", "[]").
		WillReturnError(errors.New("database or disk is full"))

	s, err := NewSQLStore(sqlDB)
	require.NoError(t, err)

	err = s.Set(context.Background(), "patients", "[]")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk is full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_ReadErrorIsReturned(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS kv").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT value FROM kv").
		WithArgs("staff").
		WillReturnError(errors.New("connection reset"))

	s, err := NewSQLStore(sqlDB)
	require.NoError(t, err)

	_, found, err := s.Get(context.Background(), "staff")
	assert.Error(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore_Contract(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client, "hms:")
	defer s.Close()

	exerciseStore(t, s)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreFromClient(client, "hms:")
	defer s.Close()

	require.NoError(t, s.Set(context.Background(), "user", `{"role":"admin"}`))
	got, err := mr.Get("hms:user")
	require.NoError(t, err)
	assert.Equal(t, `{"role":"admin"}`, got)
}

func TestNewRedisStore_ParsesURL(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), "redis://"+mr.Addr()+"/0", "")
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.Ping(context.Background()))
}

func TestNewRedisStore_BadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-url", "")
	assert.Error(t, err)
}

func TestOpen_Drivers(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()

	s, err := Open(ctx, Options{Driver: DriverMemory}, log)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(ctx, Options{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "x.db")}, log)
	require.NoError(t, err)
	assert.IsType(t, &SQLStore{}, s)
	require.NoError(t, s.Close())

	mr := miniredis.RunT(t)
	s, err = Open(ctx, Options{Driver: DriverRedis, RedisURL: "redis://" + mr.Addr()}, log)
	require.NoError(t, err)
	assert.IsType(t, &RedisStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Options{Driver: "floppy"}, log)
	assert.Error(t, err)
}
