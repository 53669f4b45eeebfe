// Package redisstore persists option overrides in a single Redis hash, one
// field per option key. Several nodes may share the hash; concurrent writers
// are last-writer-wins.
package redisstore

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"sort"
	"strings"

	opts "github.com/goliatone/go-sysoptions"
	"github.com/goliatone/go-sysoptions/pkg/state"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the hash holding the overrides.
const DefaultKey = "sysopts:options"

// Options configures the Redis connection.
type Options struct {
	// Address of the Redis server.
	Address string
	// Password required when connecting to the Redis server.
	Password string
	// DB to connect to.
	DB int
	// TLSConfig enables TLS when set.
	TLSConfig *tls.Config
	// Key names the hash. Defaults to DefaultKey.
	Key string
}

// DefaultOptions targets a local server.
func DefaultOptions() Options {
	return Options{
		Address: "localhost:6379",
		Key:     DefaultKey,
	}
}

// Store is an opts.Store backed by a Redis hash.
type Store struct {
	client redis.UniversalClient
	key    string
}

var _ opts.Store = (*Store)(nil)

// Open connects and verifies the server answers PING.
func Open(ctx context.Context, options Options) (*Store, error) {
	if strings.TrimSpace(options.Address) == "" {
		return nil, errors.New("redisstore: address is required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:      options.Address,
		Password:  options.Password,
		DB:        options.DB,
		TLSConfig: options.TLSConfig,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore: ping %s: %w", options.Address, err)
	}
	return New(client, options.Key), nil
}

// New wraps an existing client. The store takes ownership and closes it.
func New(client redis.UniversalClient, key string) *Store {
	if strings.TrimSpace(key) == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// Key returns the hash name.
func (s *Store) Key() string { return s.key }

func (s *Store) Get(ctx context.Context, name opts.Name) (opts.Value, bool, error) {
	record, err := s.client.HGet(ctx, s.key, string(name)).Result()
	if err == redis.Nil {
		return opts.Value{}, false, nil
	}
	if err != nil {
		return opts.Value{}, false, fmt.Errorf("redisstore: get %q: %w", name, err)
	}
	value, err := state.DecodeValue(string(name), []byte(record))
	if err != nil {
		return opts.Value{}, false, err
	}
	return value, true, nil
}

func (s *Store) Put(ctx context.Context, name opts.Name, value opts.Value) error {
	record, err := state.EncodeValue(value)
	if err != nil {
		return err
	}
	if err := s.client.HSet(ctx, s.key, string(name), string(record)).Err(); err != nil {
		return fmt.Errorf("redisstore: put %q: %w", name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.HDel(ctx, s.key, key).Err(); err != nil {
		return fmt.Errorf("redisstore: delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) All(ctx context.Context) ([]opts.Entry, error) {
	records, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list: %w", err)
	}
	entries := make([]opts.Entry, 0, len(records))
	for key, record := range records {
		value, err := state.DecodeValue(key, []byte(record))
		if err != nil {
			return nil, err
		}
		entries = append(entries, opts.Entry{Key: key, Value: value})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Close closes the client.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	err := s.client.Close()
	if errors.Is(err, redis.ErrClosed) {
		return nil
	}
	return err
}
