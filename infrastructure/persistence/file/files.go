// Package file implements the open/save pair for graph documents on the
// local filesystem.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	pkgerrors "github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/errors"
	"github.com/SubjectCarterSoftware/WhoOwnsThis/pkg/utils"
)

// ErrNoPath is returned by Save when no path was given and none was used before
var ErrNoPath = pkgerrors.Sentinel(pkgerrors.ErrorTypeValidation, "NO_SAVE_PATH", "no file chosen")

// Documents reads and writes graph JSON files. With a root, every path is a
// name relative to it and names leaving the root are rejected.
type Documents struct {
	mu       sync.Mutex
	root     string
	lastPath string
	logger   *zap.Logger
}

// NewDocuments creates the file adapter confined to root. An empty root
// accepts any path.
func NewDocuments(root string, logger *zap.Logger) *Documents {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Documents{root: root, logger: logger}
}

// Open reads the file at path. A blank path or a missing file is reported as
// ok=false with no error.
func (d *Documents) Open(ctx context.Context, path string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if path == "" {
		return nil, false, nil
	}
	resolved, err := utils.ResolveInRoot(d.root, path)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		d.logger.Debug("Document file not found", zap.String("path", path))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, pkgerrors.NewStorageError("open document", err)
	}

	d.mu.Lock()
	d.lastPath = path
	d.mu.Unlock()
	return data, true, nil
}

// Save writes data as indented JSON to path, or to the last used path when
// path is blank. The write goes through a temporary file in the same
// directory and is renamed into place. It returns the path written.
func (d *Documents) Save(ctx context.Context, path string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if path == "" {
		path = d.lastPath
	}
	if path == "" {
		return "", pkgerrors.Derive(ErrNoPath, "no file chosen and no previous save location")
	}

	resolved, err := utils.ResolveInRoot(d.root, path)
	if err != nil {
		return "", err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, data, "", "  "); err != nil {
		return "", pkgerrors.NewValidationError("document is not valid JSON").WithCause(err)
	}
	out.WriteByte('\n')

	if err := writeAtomic(resolved, out.Bytes()); err != nil {
		return "", pkgerrors.NewStorageError("save document", err)
	}
	d.lastPath = path
	d.logger.Info("Document saved", zap.String("path", resolved), zap.Int("bytes", out.Len()))
	return path, nil
}

// LastPath returns the most recently opened or saved path
func (d *Documents) LastPath() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastPath
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
