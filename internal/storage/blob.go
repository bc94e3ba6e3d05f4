// Package storage хранит файлы вложений по ключу.
package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// BlobStore - файловое хранилище поверх afero.Fs.
type BlobStore struct {
	fs afero.Fs
}

// NewBlobStore хранит файлы в каталоге dir на диске.
func NewBlobStore(dir string) (*BlobStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	return &BlobStore{fs: afero.NewBasePathFs(afero.NewOsFs(), dir)}, nil
}

// NewMemBlobStore - хранилище в памяти для тестов и STORE_DRIVER=memory.
func NewMemBlobStore() *BlobStore {
	return &BlobStore{fs: afero.NewMemMapFs()}
}

// NewKey строит ключ proposals/<proposal>/<uuid><ext>.
func NewKey(proposalID uuid.UUID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join("proposals", proposalID.String(), uuid.NewString()+ext)
}

// Put записывает содержимое r под ключом key и возвращает число байт.
func (s *BlobStore) Put(key string, r io.Reader) (int64, error) {
	if err := s.fs.MkdirAll(path.Dir(key), 0o750); err != nil {
		return 0, err
	}
	f, err := s.fs.Create(key)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.fs.Remove(key)
		return 0, err
	}
	return n, nil
}

// Open открывает файл по ключу.
func (s *BlobStore) Open(key string) (io.ReadCloser, error) {
	return s.fs.Open(key)
}

// Delete удаляет файл, отсутствие файла не ошибка.
func (s *BlobStore) Delete(key string) error {
	err := s.fs.Remove(key)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Exists проверяет наличие файла.
func (s *BlobStore) Exists(key string) (bool, error) {
	return afero.Exists(s.fs, key)
}
