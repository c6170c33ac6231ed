package kvstore

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type doc struct {
	ID    string   `json:"id"`
	Items []string `json:"items"`
}

func TestJSON_RoundTripPreservesOrder(t *testing.T) {
	j := NewJSON(NewMemoryStore(), zerolog.Nop(), nil)
	ctx := context.Background()

	in := []doc{{ID: "c", Items: []string{"3"}}, {ID: "a"}, {ID: "b", Items: []string{"1", "2"}}}
	require.NoError(t, j.Save(ctx, "log", in))

	var out []doc
	require.True(t, j.Load(ctx, "log", &out))
	assert.Equal(t, in, out)
}

func TestJSON_LoadMissingKeepsDefault(t *testing.T) {
	j := NewJSON(NewMemoryStore(), zerolog.Nop(), nil)

	out := []doc{{ID: "default"}}
	assert.False(t, j.Load(context.Background(), "absent", &out))
	assert.Equal(t, "default", out[0].ID)
}

func TestJSON_LoadCorruptKeepsDefaultAndReports(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Set(context.Background(), "patients", `[{"id":`))

	var failures []string
	j := NewJSON(m, zerolog.Nop(), func(key, op string) { failures = append(failures, op+":"+key) })

	out := []doc{{ID: "seed"}}
	assert.False(t, j.Load(context.Background(), "patients", &out))
	assert.Equal(t, []doc{{ID: "seed"}}, out)
	assert.Equal(t, []string{"load:patients"}, failures)
}

func TestJSON_LoadWrongShapeKeepsDefault(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Set(context.Background(), "patients", `{"id":"not-a-list"}`))
	j := NewJSON(m, zerolog.Nop(), nil)

	out := []doc{{ID: "seed"}}
	assert.False(t, j.Load(context.Background(), "patients", &out))
	assert.Equal(t, "seed", out[0].ID)
}

func TestJSON_SaveFailureIsReturnedAndReported(t *testing.T) {
	m := NewMemoryStore()
	m.SetFailures(false, true)

	var failures []string
	j := NewJSON(m, zerolog.Nop(), func(key, op string) { failures = append(failures, op+":"+key) })

	err := j.Save(context.Background(), "invoices", []int{1})
	assert.Error(t, err)
	assert.Equal(t, []string{"save:invoices"}, failures)
}

func TestJSON_SaveUnencodable(t *testing.T) {
	j := NewJSON(NewMemoryStore(), zerolog.Nop(), nil)
	err := j.Save(context.Background(), "bad", map[string]interface{}{"ch": make(chan int)})
	assert.Error(t, err)
}

func TestJSON_Remove(t *testing.T) {
	j := NewJSON(NewMemoryStore(), zerolog.Nop(), nil)
	ctx := context.Background()

	require.NoError(t, j.Save(ctx, "user", map[string]string{"role": "nurse"}))
	require.NoError(t, j.Remove(ctx, "user"))
	var got map[string]string
	assert.False(t, j.Load(ctx, "user", &got))
	assert.Nil(t, got)
}
