package state

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalBackend keeps the ledger in a JSON file guarded by a lock file.
type LocalBackend struct {
	*FileLock
	path string
}

func NewLocalBackend(path string) *LocalBackend {
	return &LocalBackend{
		FileLock: NewFileLock(path + ".lock"),
		path:     path,
	}
}

// Read loads the ledger. A missing file is an empty ledger.
func (b *LocalBackend) Read(ctx context.Context) (*Ledger, error) {
	raw, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return NewLedger(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger %s: %w", b.path, err)
	}

	l, err := DecodeLedger(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger %s: %w", b.path, err)
	}
	return l, nil
}

// Write saves the ledger through a temp file and rename.
func (b *LocalBackend) Write(ctx context.Context, l *Ledger) error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := EncodeLedger(l)
	if err != nil {
		return err
	}

	tmp := b.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write ledger %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace ledger %s: %w", b.path, err)
	}
	return nil
}

func (b *LocalBackend) Contains(ctx context.Context, address string) (bool, error) {
	l, err := b.Read(ctx)
	if err != nil {
		return false, err
	}
	return l.Contains(address), nil
}

func (b *LocalBackend) List(ctx context.Context) ([]string, error) {
	l, err := b.Read(ctx)
	if err != nil {
		return nil, err
	}
	return l.Addresses(), nil
}

func (b *LocalBackend) Import(ctx context.Context, address, id string) error {
	l, err := b.Read(ctx)
	if err != nil {
		return err
	}
	if err := l.Append(address, id); err != nil {
		return err
	}
	return b.Write(ctx, l)
}
