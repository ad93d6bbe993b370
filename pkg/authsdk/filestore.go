package authsdk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/harborauth/harbor/pkg/cryptox"
)

// FileStore is a SecretStore that encrypts the session blob to a file on
// disk with AES-256-GCM. The key is derived from caller-provided material,
// typically a machine or user secret.
type FileStore struct {
	path string
	box  *cryptox.SealBox
}

// NewFileStore creates a file-backed store at path, sealing content with
// a key derived from keyMaterial.
func NewFileStore(path string, keyMaterial []byte) *FileStore {
	return &FileStore{
		path: path,
		box:  cryptox.NewSealBox(keyMaterial),
	}
}

func (f *FileStore) Load(ctx context.Context) (string, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoSession
		}
		return "", fmt.Errorf("authsdk: failed to read session file: %w", err)
	}

	blob, err := f.box.Open(string(raw))
	if err != nil {
		// Wrong key or tampered file; either way there is no usable session.
		return "", ErrNoSession
	}
	return blob, nil
}

func (f *FileStore) Save(ctx context.Context, blob string) error {
	sealed, err := f.box.Seal(blob)
	if err != nil {
		return fmt.Errorf("authsdk: failed to seal session: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("authsdk: failed to create session dir: %w", err)
	}

	// Write-then-rename so a crash mid-write never corrupts the session file.
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(sealed), 0o600); err != nil {
		return fmt.Errorf("authsdk: failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("authsdk: failed to replace session file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("authsdk: failed to remove session file: %w", err)
	}
	return nil
}
