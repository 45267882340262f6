// Package backend provides persistence for serialized layout blobs.
//
// A [Backend] is a flat key/value store of opaque byte slices. The layout
// stores above it decide what a key means (one page, the shared registry,
// the global breakpoint); backends only move bytes.
//
// # Implementations
//
//   - [Null]: never stores anything (tests, --no-persist)
//   - [File]: one JSON envelope per key under a directory
//   - [SQLite]: a single table managed by embedded migrations
//   - [Redis]: plain GET/SET under a key prefix
//   - [Mongo]: one document per key in a collection
//
// Use [Open] to construct a backend from a [Config].
package backend

import (
	"context"
	"fmt"
	"time"
)

// Backend persists layout blobs by key.
//
// Load reports ok=false with a nil error when the key has never been saved.
// Implementations must be safe for concurrent use.
type Backend interface {
	Load(ctx context.Context, key string) (data []byte, ok bool, err error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Kind names a backend implementation.
type Kind string

const (
	KindNull   Kind = "null"
	KindFile   Kind = "file"
	KindSQLite Kind = "sqlite"
	KindRedis  Kind = "redis"
	KindMongo  Kind = "mongo"
)

// Config selects and configures a backend.
type Config struct {
	Kind Kind `toml:"backend"`

	// Dir is the directory used by the file backend.
	Dir string `toml:"dir"`

	// SQLitePath is the database file used by the sqlite backend.
	SQLitePath string `toml:"sqlite_path"`

	RedisAddr     string        `toml:"redis_addr"`
	RedisPassword string        `toml:"redis_password"`
	RedisDB       int           `toml:"redis_db"`
	RedisPrefix   string        `toml:"redis_prefix"`
	RedisTTL      time.Duration `toml:"redis_ttl"`

	MongoURI        string `toml:"mongo_uri"`
	MongoDatabase   string `toml:"mongo_database"`
	MongoCollection string `toml:"mongo_collection"`
}

// Open constructs the backend described by cfg. An empty kind selects the
// file backend.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Kind {
	case KindNull:
		return NewNull(), nil
	case KindFile, "":
		return NewFile(cfg.Dir)
	case KindSQLite:
		return NewSQLite(ctx, cfg.SQLitePath)
	case KindRedis:
		return NewRedis(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
			TTL:      cfg.RedisTTL,
		})
	case KindMongo:
		return NewMongo(ctx, MongoConfig{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Kind)
	}
}
