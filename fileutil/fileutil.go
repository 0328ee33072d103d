// Package fileutil holds the guards shared by SFTP transfers: cancellable
// copies and checks that walked paths stay inside the transfer root.
package fileutil

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
)

type contextReader struct {
	ctx context.Context //nolint:containedctx
	r   io.Reader
}

func (cr contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}

	return cr.r.Read(p)
}

// Copy copies src to dst, stopping at the next read once ctx is done.
func Copy(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	return io.Copy(dst, contextReader{ctx: ctx, r: src})
}

// WithinLocal fails unless target resolves to root or a path below it.
func WithinLocal(root, target string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("illegal file path: cannot resolve %s: %w", root, err)
	}

	absTarget, err := filepath.Abs(target)
	if err != nil {
		return fmt.Errorf("illegal file path: cannot resolve %s: %w", target, err)
	}

	if absTarget != absRoot && !strings.HasPrefix(absTarget, absRoot+string(filepath.Separator)) {
		return fmt.Errorf("illegal file path: %s escapes %s", target, root)
	}

	return nil
}

// WithinRemote is WithinLocal for slash-separated subsystem paths.
func WithinRemote(root, target string) error {
	cleanRoot, cleanTarget := path.Clean(root), path.Clean(target)

	if cleanTarget != cleanRoot && !strings.HasPrefix(cleanTarget, strings.TrimSuffix(cleanRoot, "/")+"/") {
		return fmt.Errorf("illegal remote file path: %s escapes %s", target, root)
	}

	return nil
}
