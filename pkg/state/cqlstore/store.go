// Package cqlstore persists option overrides in a Cassandra table, for nodes
// that already share a Cassandra cluster.
package cqlstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/gocql/gocql"
	opts "github.com/goliatone/go-sysoptions"
	"github.com/goliatone/go-sysoptions/pkg/state"
)

var identifier = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Config describes the cluster and table.
type Config struct {
	ClusterHosts []string
	// Keyspace holding the table. Defaults to "sysopts".
	Keyspace string
	// Table holding the overrides. Defaults to "options".
	Table       string
	Consistency gocql.Consistency
	// ConnectionTimeout overrides the driver default when positive.
	ConnectionTimeout time.Duration
	Authenticator     gocql.Authenticator
	// ReplicationClause defaults to simple strategy with replication factor 1.
	ReplicationClause string
}

// Store is an opts.Store backed by Cassandra.
type Store struct {
	session *gocql.Session
	table   string
}

var _ opts.Store = (*Store)(nil)

// Open connects to the cluster and creates the keyspace and table when
// missing.
func Open(ctx context.Context, config Config) (*Store, error) {
	if len(config.ClusterHosts) == 0 {
		return nil, errors.New("cqlstore: at least one cluster host is required")
	}
	if config.Keyspace == "" {
		config.Keyspace = "sysopts"
	}
	if config.Table == "" {
		config.Table = "options"
	}
	if !identifier.MatchString(config.Keyspace) || !identifier.MatchString(config.Table) {
		return nil, fmt.Errorf("cqlstore: invalid keyspace or table name %q.%q", config.Keyspace, config.Table)
	}
	if config.ReplicationClause == "" {
		config.ReplicationClause = "{'class':'SimpleStrategy', 'replication_factor':1}"
	}
	if config.Consistency == 0 {
		config.Consistency = gocql.Quorum
	}

	cluster := gocql.NewCluster(config.ClusterHosts...)
	cluster.Consistency = config.Consistency
	if config.ConnectionTimeout > 0 {
		cluster.ConnectTimeout = config.ConnectionTimeout
	}
	if config.Authenticator != nil {
		cluster.Authenticator = config.Authenticator
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("cqlstore: connect: %w", err)
	}

	table := config.Keyspace + "." + config.Table
	statements := []string{
		fmt.Sprintf("CREATE KEYSPACE IF NOT EXISTS %s WITH REPLICATION = %s", config.Keyspace, config.ReplicationClause),
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (key text PRIMARY KEY, record text, updated_at timestamp)", table),
	}
	for _, stmt := range statements {
		if err := session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			session.Close()
			return nil, fmt.Errorf("cqlstore: prepare schema: %w", err)
		}
	}
	return &Store{session: session, table: table}, nil
}

// Table returns the fully qualified table name.
func (s *Store) Table() string { return s.table }

func (s *Store) Get(ctx context.Context, name opts.Name) (opts.Value, bool, error) {
	var record string
	err := s.session.Query(
		fmt.Sprintf("SELECT record FROM %s WHERE key = ?", s.table), string(name),
	).WithContext(ctx).Scan(&record)
	if errors.Is(err, gocql.ErrNotFound) {
		return opts.Value{}, false, nil
	}
	if err != nil {
		return opts.Value{}, false, fmt.Errorf("cqlstore: get %q: %w", name, err)
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
	err = s.session.Query(
		fmt.Sprintf("INSERT INTO %s (key, record, updated_at) VALUES (?, ?, ?)", s.table),
		string(name), string(record), time.Now().UTC(),
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("cqlstore: put %q: %w", name, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.session.Query(
		fmt.Sprintf("DELETE FROM %s WHERE key = ?", s.table), key,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("cqlstore: delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) All(ctx context.Context) ([]opts.Entry, error) {
	iter := s.session.Query(fmt.Sprintf("SELECT key, record FROM %s", s.table)).WithContext(ctx).Iter()
	scanner := iter.Scanner()

	var entries []opts.Entry
	for scanner.Next() {
		var key, record string
		if err := scanner.Scan(&key, &record); err != nil {
			_ = iter.Close()
			return nil, fmt.Errorf("cqlstore: scan: %w", err)
		}
		value, err := state.DecodeValue(key, []byte(record))
		if err != nil {
			_ = iter.Close()
			return nil, err
		}
		entries = append(entries, opts.Entry{Key: key, Value: value})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cqlstore: list: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Close ends the session.
func (s *Store) Close() error {
	if s == nil || s.session == nil {
		return nil
	}
	s.session.Close()
	return nil
}
