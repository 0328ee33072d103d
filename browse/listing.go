// Package browse lists directories inside the Linux subsystem and keeps the
// state of an interactive directory picker.
package browse

import (
	"context"
	"strings"

	"github.com/ruffel/wslkit"
	"go.uber.org/zap"
)

// listingFields is the number of columns in an "ls -la" line; the last one
// holds the file name and everything after it.
const listingFields = 9

// FileEntry is one directory entry.
type FileEntry struct {
	Name        string
	Path        string
	IsDirectory bool
}

// Lister lists directories through a CommandExecutor.
type Lister struct {
	exec   wslkit.CommandExecutor
	logger *zap.Logger
}

// NewLister creates a lister. A nil logger disables logging.
func NewLister(exec wslkit.CommandExecutor, logger *zap.Logger) *Lister {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Lister{exec: exec, logger: logger}
}

// ListFiles returns the entries of path. A failed listing yields an empty slice.
func (l *Lister) ListFiles(ctx context.Context, path string) []FileEntry {
	res := l.exec.Execute(ctx, "ls -la "+wslkit.Quote(path))
	if !res.Success {
		l.logger.Debug("directory listing failed",
			zap.String("path", path),
			zap.Int("exit_code", res.ExitCode),
			zap.String("error", res.Error),
		)

		return []FileEntry{}
	}

	return ParseListing(path, res.Output)
}

// ParseListing converts "ls -la" output into entries. Lines with fewer than
// nine columns, such as the "total" line, are skipped, as are "." and "..".
// A name is taken verbatim from the ninth column onwards, so symlink targets
// stay attached to the name.
func ParseListing(path, output string) []FileEntry {
	entries := []FileEntry{}

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := splitFields(line, listingFields)
		if len(fields) < listingFields {
			continue
		}

		name := fields[listingFields-1]
		if name == "." || name == ".." {
			continue
		}

		entries = append(entries, FileEntry{
			Name:        name,
			Path:        path + "/" + name,
			IsDirectory: strings.HasPrefix(fields[0], "d"),
		})
	}

	return entries
}

// splitFields splits s on runs of whitespace into at most n fields. The last
// field keeps the rest of the line as is.
func splitFields(s string, n int) []string {
	var fields []string

	s = strings.TrimLeft(s, " \t")
	for len(s) > 0 && len(fields) < n-1 {
		end := strings.IndexAny(s, " \t")
		if end < 0 {
			break
		}

		fields = append(fields, s[:end])
		s = strings.TrimLeft(s[end:], " \t")
	}

	if len(s) > 0 {
		fields = append(fields, s)
	}

	return fields
}
