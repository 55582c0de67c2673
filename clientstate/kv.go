// Package clientstate keeps the client's view of the auth flow: which
// sign-in method is in flight, which one last succeeded, and where to return
// to after authentication. State lives in a small local key-value store so
// it survives the redirect round trip through the provider.
package clientstate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// KV is the local store the auth context persists to. Get reports ok=false
// for missing keys.
type KV interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// FileKV is a JSON-file backed KV store. Writes go through a temp file and
// rename so a crash never leaves a half-written store.
type FileKV struct {
	path string
	lock sync.Mutex
}

func NewFileKV(path string) *FileKV {
	return &FileKV{path: path}
}

func (f *FileKV) Get(key string) (string, bool, error) {
	f.lock.Lock()
	defer f.lock.Unlock()

	data, err := f.load()
	if err != nil {
		return "", false, err
	}
	value, ok := data[key]
	return value, ok, nil
}

func (f *FileKV) Set(key, value string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}
	data[key] = value
	return f.save(data)
}

func (f *FileKV) Delete(key string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	data, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return f.save(data)
}

func (f *FileKV) load() (map[string]string, error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileKV.load] read store")
	}
	data := map[string]string{}
	if len(raw) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.Wrap(err, "[FileKV.load] decode store")
	}
	return data, nil
}

func (f *FileKV) save(data map[string]string) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "[FileKV.save] encode store")
	}
	tmp := f.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return errors.Wrap(err, "[FileKV.save] create store directory")
	}
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Wrap(err, "[FileKV.save] write store")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return errors.Wrap(err, "[FileKV.save] replace store")
	}
	return nil
}

// MemoryKV is an in-process KV store for tests.
type MemoryKV struct {
	lock sync.Mutex
	data map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string]string)}
}

func (m *MemoryKV) Get(key string) (string, bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	value, ok := m.data[key]
	return value, ok, nil
}

func (m *MemoryKV) Set(key, value string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.data[key] = value
	return nil
}

func (m *MemoryKV) Delete(key string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.data, key)
	return nil
}
