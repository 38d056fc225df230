package redis

import (
	"context"
	"fmt"
	"sort"

	"github.com/Superfang0726/Better-BlueStacks-Script/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "bbscript:"

// Store implements ports.ScriptStore using Redis.
// Each script is a string key; a set indexes the names.
type Store struct {
	client backend.UniversalClient
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client, so a Locker can share the connection.
func (s *Store) Client() backend.UniversalClient {
	return s.client
}

func (s *Store) key(name string) string {
	return s.prefix + "script:" + name
}

func (s *Store) indexKey() string {
	return s.prefix + "scripts"
}

// Save persists a script.
func (s *Store) Save(ctx context.Context, name string, data []byte) error {
	if err := domain.ValidateScriptName(name); err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(name), data, 0)
	pipe.SAdd(ctx, s.indexKey(), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves a script.
func (s *Store) Load(ctx context.Context, name string) ([]byte, error) {
	if err := domain.ValidateScriptName(name); err != nil {
		return nil, err
	}
	val, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err != nil {
		if err == backend.Nil {
			return nil, fmt.Errorf("%w: %s", domain.ErrScriptNotFound, name)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, nil
}

// Delete removes a script.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := domain.ValidateScriptName(name); err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.key(name))
	pipe.SRem(ctx, s.indexKey(), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrScriptNotFound, name)
	}
	return nil
}

// List returns the stored script names, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list scripts: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
