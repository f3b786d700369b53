// Package store persists the client's local records (session token, user
// profile, cart) in a key/value backend that survives restarts.
//
// Records are independent: reading or writing one key never touches another.
// There is no coordination between processes sharing a backend; the last
// write wins.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Keys of the records kept by the client.
const (
	KeyAuthToken = "auth_token"
	KeyAuthUser  = "auth_user"
	KeyCart      = "cart"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("store: key not found")

// Store is a persistent key/value area.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	// Dir is the directory for the file backend and the default location of
	// the SQLite database.
	Dir           string
	SQLitePath    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// Namespace prefixes Redis keys so several profiles can share a server.
	Namespace string
}

// Open builds the backend named by opts.Backend. An empty name means file.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendFile:
		return NewFileStore(opts.Dir)
	case BackendRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:      opts.RedisAddr,
			Password:  opts.RedisPassword,
			DB:        opts.RedisDB,
			Namespace: opts.Namespace,
		})
	case BackendSQLite:
		path := opts.SQLitePath
		if path == "" {
			path = filepath.Join(opts.Dir, "hogwarts.db")
		}
		return NewSQLiteStore(ctx, path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("store.Open: unknown backend %q", opts.Backend)
	}
}

func validKey(key string) error {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("store: invalid key %q", key)
	}
	return nil
}
