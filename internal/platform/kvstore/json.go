package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"
)

// FailureHook is notified when a load or save fails. op is "load" or "save".
type FailureHook func(key, op string)

// JSON serializes values into a Store. Read failures fall back to the
// caller's default; write failures are logged and returned, and the caller
// decides whether to care.
type JSON struct {
	store  Store
	logger zerolog.Logger
	hook   FailureHook
}

// NewJSON wraps store. hook may be nil.
func NewJSON(store Store, logger zerolog.Logger, hook FailureHook) *JSON {
	return &JSON{store: store, logger: logger, hook: hook}
}

// Store returns the wrapped backend.
func (j *JSON) Store() Store { return j.store }

// Load decodes the document at key into dst. It reports whether a document
// was found and decoded; on any failure dst is left untouched.
func (j *JSON) Load(ctx context.Context, key string, dst any) bool {
	raw, found, err := j.store.Get(ctx, key)
	if err != nil {
		j.fail(key, "load", err)
		return false
	}
	if !found || raw == "" {
		return false
	}
	// Decode into a scratch value so a partial decode cannot clobber the
	// default already in dst.
	rv := reflect.ValueOf(dst)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		j.fail(key, "load", fmt.Errorf("destination must be a non-nil pointer"))
		return false
	}
	tmp := reflect.New(rv.Elem().Type())
	if err := json.Unmarshal([]byte(raw), tmp.Interface()); err != nil {
		j.fail(key, "load", err)
		return false
	}
	rv.Elem().Set(tmp.Elem())
	return true
}

// Save encodes v and writes it under key.
func (j *JSON) Save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		err = fmt.Errorf("encode %s: %w", key, err)
		j.fail(key, "save", err)
		return err
	}
	if err := j.store.Set(ctx, key, string(data)); err != nil {
		j.fail(key, "save", err)
		return err
	}
	return nil
}

// Remove deletes key, logging failures.
func (j *JSON) Remove(ctx context.Context, key string) error {
	if err := j.store.Remove(ctx, key); err != nil {
		j.fail(key, "remove", err)
		return err
	}
	return nil
}

func (j *JSON) fail(key, op string, err error) {
	j.logger.Error().Err(err).Str("key", key).Str("op", op).Msg("storage operation failed")
	if j.hook != nil {
		j.hook(key, op)
	}
}
