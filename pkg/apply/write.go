package apply

import (
	"context"
	"io/fs"
	"path/filepath"

	"github.com/arthur-debert/npkg/pkg/errors"
)

// WriteWithElevation writes content to path. When the file exists but the
// process may not write it, the content is staged in the cache directory
// and copied into place by the elevation helper. Any failure is a WRITE
// error naming the directory of path.
func (o *Orchestrator) WriteWithElevation(ctx context.Context, path string, content []byte) error {
	dir := filepath.Dir(path)

	err := o.fs.WriteFile(path, content, 0644)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrPermission) {
		return errors.WriteError(dir, err)
	}
	if _, statErr := o.fs.Stat(path); statErr != nil {
		return errors.WriteError(dir, err)
	}

	o.logger.Warn().Str("path", path).Msg("Root permissions needed to modify " + path)

	staged := o.paths.StagingPath(path)
	if err := o.fs.MkdirAll(filepath.Dir(staged), 0755); err != nil {
		return errors.WriteError(dir, err)
	}
	if err := o.fs.WriteFile(staged, content, 0644); err != nil {
		return errors.WriteError(dir, err)
	}
	defer func() {
		if err := o.fs.Remove(staged); err != nil {
			o.logger.Debug().Err(err).Str("path", staged).Msg("Failed to remove staged file")
		}
	}()

	if err := o.runner.ElevatedCopy(ctx, staged, path); err != nil {
		return errors.WriteError(dir, err)
	}
	return nil
}
