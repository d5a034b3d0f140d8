package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	lru "github.com/hashicorp/golang-lru/v2/expirable"
	clientErrors "github.com/jaxron/listgen/pkg/client/errors"
	"github.com/redis/rueidis"
)

// RedisStore keeps entries in Redis.
type RedisStore struct {
	client rueidis.Client
}

// NewRedisStore wraps an existing rueidis client.
func NewRedisStore(client rueidis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// DialRedis creates a rueidis client from options and wraps it.
func DialRedis(opts rueidis.ClientOption) (*RedisStore, error) {
	client, err := rueidis.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis client: %w", err)
	}
	return NewRedisStore(client), nil
}

// Get implements Store.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	cmd := s.client.B().Get().Key(key).Build()
	data, err := s.client.Do(ctx, cmd).AsBytes()
	if rueidis.IsRedisNil(err) {
		return nil, clientErrors.ErrCacheMiss
	}
	return data, err
}

// Set implements Store. A zero ttl stores the entry without expiry.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return s.client.Do(ctx, s.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Build()).Error()
	}
	cmd := s.client.B().Set().Key(key).Value(rueidis.BinaryString(value)).Ex(ttl).Build()
	return s.client.Do(ctx, cmd).Error()
}

// Close releases the underlying connection.
func (s *RedisStore) Close() {
	s.client.Close()
}

// MemoryStore keeps entries in a bounded in-process LRU. Expiry is set per
// store, so the ttl passed to Set is ignored.
type MemoryStore struct {
	lru *lru.LRU[string, []byte]
}

// NewMemoryStore creates a MemoryStore holding at most size entries for ttl.
// A zero ttl keeps entries until they are evicted.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{lru: lru.NewLRU[string, []byte](size, nil, ttl)}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := s.lru.Get(key)
	if !ok {
		return nil, clientErrors.ErrCacheMiss
	}
	return value, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.lru.Add(key, value)
	return nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	return s.lru.Len()
}

// FileStore keeps one file per entry in a directory so that entries outlive
// the process. The directory is created on the first Set.
type FileStore struct {
	dir string
}

// fileEntry is the encoded form of a FileStore entry. A zero ExpiresAt never expires.
type fileEntry struct {
	ExpiresAt time.Time `json:"expiresAt"`
	Value     []byte    `json:"value"`
}

var keyReplacer = strings.NewReplacer(":", "_", "/", "_", "\\", "_")

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the directory entries are written to.
func (s *FileStore) Dir() string {
	return s.dir
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, keyReplacer.Replace(key))
}

// Get implements Store. Expired or unreadable entries are removed and
// reported as a miss.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	path := s.path(key)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, clientErrors.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var entry fileEntry
	if err := sonic.Unmarshal(data, &entry); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("%w: %w", clientErrors.ErrCacheMiss, err)
	}

	if !entry.ExpiresAt.IsZero() && !time.Now().Before(entry.ExpiresAt) {
		_ = os.Remove(path)
		return nil, clientErrors.ErrCacheMiss
	}

	return entry.Value, nil
}

// Set implements Store. A zero ttl stores the entry without expiry. The entry
// is written to a temporary file and renamed into place.
func (s *FileStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	entry := fileEntry{Value: value}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}

	data, err := sonic.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".entry-*")
	if err != nil {
		return fmt.Errorf("failed to create cache entry: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return os.Rename(tmp.Name(), s.path(key))
}
