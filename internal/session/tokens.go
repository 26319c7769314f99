package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"gopkg.in/yaml.v3"

	"github.com/afyamkononi/afyadmin/internal/errors"
)

// Record is what survives a restart: the bearer token and who it belongs to.
type Record struct {
	Token    string    `yaml:"token" json:"token"`
	Email    string    `yaml:"email,omitempty" json:"email,omitempty"`
	SignedIn bool      `yaml:"signed_in,omitempty" json:"signed_in,omitempty"`
	SavedAt  time.Time `yaml:"saved_at" json:"saved_at"`
}

// Empty reports whether the record holds no session at all.
func (r *Record) Empty() bool {
	return r == nil || (r.Token == "" && !r.SignedIn)
}

// TokenStore persists the session token between runs.
//
// Load returns (nil, nil) when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (*Record, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}

// MemoryTokenStore keeps the record in process memory only.
type MemoryTokenStore struct {
	mu  sync.Mutex
	rec *Record
}

// NewMemoryTokenStore creates an empty in-memory store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (m *MemoryTokenStore) Load(context.Context) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return nil, nil
	}
	rec := *m.rec
	return &rec, nil
}

func (m *MemoryTokenStore) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = &rec
	return nil
}

func (m *MemoryTokenStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	return nil
}

// FileTokenStore writes the record as YAML to a file only the owner can read.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore stores the record at path. Parent directories are created
// on the first Save.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Path returns the backing file.
func (f *FileTokenStore) Path() string {
	return f.path
}

func (f *FileTokenStore) Load(context.Context) (*Record, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.NewFileReadError(f.path, err)
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrap(errors.ErrCodeAuthStoreFailed, "session file is corrupt", err).
			WithSuggestion("Run 'afyadmin logout' to discard it")
	}
	if rec.Empty() {
		return nil, nil
	}
	return &rec, nil
}

func (f *FileTokenStore) Save(_ context.Context, rec Record) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(errors.ErrCodeDirectoryFailed, "failed to create session directory", err)
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return errors.Wrap(errors.ErrCodeAuthStoreFailed, "failed to encode session", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return errors.NewFileWriteError(f.path, err)
	}
	return nil
}

func (f *FileTokenStore) Clear(context.Context) error {
	if err := os.Remove(f.path); err != nil && !stderrors.Is(err, os.ErrNotExist) {
		return errors.NewFileWriteError(f.path, err)
	}
	return nil
}

var (
	boltBucket = []byte("session")
	boltKey    = []byte("current")
)

// BoltTokenStore keeps the record in a bbolt database. The database is opened
// per operation so several CLI processes can share it.
type BoltTokenStore struct {
	path    string
	timeout time.Duration
}

// NewBoltTokenStore stores the record in the bbolt file at path.
func NewBoltTokenStore(path string) *BoltTokenStore {
	return &BoltTokenStore{path: path, timeout: time.Second}
}

func (b *BoltTokenStore) open() (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return nil, errors.Wrap(errors.ErrCodeDirectoryFailed, "failed to create session directory", err)
	}
	db, err := bolt.Open(b.path, 0o600, &bolt.Options{Timeout: b.timeout})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAuthStoreFailed, "failed to open session database", err)
	}
	return db, nil
}

func (b *BoltTokenStore) Load(context.Context) (*Record, error) {
	if _, err := os.Stat(b.path); stderrors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	db, err := b.open()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var rec *Record
	err = db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return nil
		}
		data := bucket.Get(boltKey)
		if data == nil {
			return nil
		}
		var r Record
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		rec = &r
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAuthStoreFailed, "failed to read session", err)
	}
	return rec, nil
}

func (b *BoltTokenStore) Save(_ context.Context, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(errors.ErrCodeAuthStoreFailed, "failed to encode session", err)
	}
	db, err := b.open()
	if err != nil {
		return err
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(boltBucket)
		if err != nil {
			return err
		}
		return bucket.Put(boltKey, data)
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeAuthStoreFailed, "failed to write session", err)
	}
	return nil
}

func (b *BoltTokenStore) Clear(context.Context) error {
	if _, err := os.Stat(b.path); stderrors.Is(err, os.ErrNotExist) {
		return nil
	}
	db, err := b.open()
	if err != nil {
		return err
	}
	defer db.Close()

	err = db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(boltBucket)
		if bucket == nil {
			return nil
		}
		return bucket.Delete(boltKey)
	})
	if err != nil {
		return errors.Wrap(errors.ErrCodeAuthStoreFailed, "failed to clear session", err)
	}
	return nil
}
