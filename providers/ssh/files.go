package ssh

import (
	"context"
	"fmt"
	"os"
	pathpkg "path"
	"path/filepath"

	"github.com/pkg/sftp"
	"github.com/ruffel/wslkit"
	"github.com/ruffel/wslkit/fileutil"
	"go.uber.org/zap"
)

// Upload copies a local file or directory tree to remotePath over SFTP.
// Missing remote parent directories are created.
func (s *Session) Upload(ctx context.Context, localPath, remotePath string) error {
	client, err := s.sftpClient()
	if err != nil {
		return err
	}

	defer func() { _ = client.Close() }()

	info, err := os.Stat(localPath)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return uploadFile(ctx, client, localPath, remotePath, info.Mode())
	}

	return filepath.Walk(localPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(localPath, path)
		if err != nil {
			return err
		}

		target := pathpkg.Join(remotePath, filepath.ToSlash(rel))
		if err := fileutil.WithinRemote(remotePath, target); err != nil {
			return err
		}

		if info.IsDir() {
			return client.MkdirAll(target)
		}

		return uploadFile(ctx, client, path, target, info.Mode())
	})
}

// Download copies a remote file or directory tree to localPath over SFTP.
func (s *Session) Download(ctx context.Context, remotePath, localPath string) error {
	client, err := s.sftpClient()
	if err != nil {
		return err
	}

	defer func() { _ = client.Close() }()

	info, err := client.Stat(remotePath)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		return downloadFile(ctx, client, remotePath, localPath, info.Mode())
	}

	walker := client.Walk(remotePath)
	for walker.Step() {
		if err := walker.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(remotePath, walker.Path())
		if err != nil {
			continue
		}

		target := filepath.Join(localPath, rel)
		if err := fileutil.WithinLocal(localPath, target); err != nil {
			return err
		}

		if walker.Stat().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}

			continue
		}

		if err := downloadFile(ctx, client, walker.Path(), target, walker.Stat().Mode()); err != nil {
			return err
		}
	}

	return nil
}

func (s *Session) sftpClient() (*sftp.Client, error) {
	client := s.current()
	if client == nil {
		return nil, wslkit.ErrNotConnected
	}

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		s.cfg.Logger.Debug("sftp subsystem unavailable", zap.Error(err))

		return nil, fmt.Errorf("failed to create sftp client: %w", err)
	}

	return sftpClient, nil
}

func uploadFile(ctx context.Context, client *sftp.Client, localPath, remotePath string, mode os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return err
	}

	defer func() { _ = src.Close() }()

	if err := client.MkdirAll(pathpkg.Dir(remotePath)); err != nil {
		return fmt.Errorf("failed to create remote parent of %s: %w", remotePath, err)
	}

	dst, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s: %w", remotePath, err)
	}

	defer func() { _ = dst.Close() }()

	if err := client.Chmod(remotePath, mode.Perm()); err != nil {
		return fmt.Errorf("failed to chmod remote file: %w", err)
	}

	_, err = fileutil.Copy(ctx, dst, src)

	return err
}

func downloadFile(ctx context.Context, client *sftp.Client, remotePath, localPath string, mode os.FileMode) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	src, err := client.Open(remotePath)
	if err != nil {
		return err
	}

	defer func() { _ = src.Close() }()

	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}

	dst, err := os.OpenFile(localPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}

	defer func() { _ = dst.Close() }()

	_, err = fileutil.Copy(ctx, dst, src)

	return err
}
