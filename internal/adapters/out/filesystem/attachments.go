package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bnema/zerowrap"
	"github.com/spf13/afero"

	"github.com/bnema/envrefresh/internal/boundaries/out"
	"github.com/bnema/envrefresh/internal/domain"
)

// Ensure AttachmentStore implements out.BlobCopier.
var _ out.BlobCopier = (*AttachmentStore)(nil)

// AttachmentStore keeps each environment's attached blobs under
// rootDir/<environment>[/<namespace>].
type AttachmentStore struct {
	fs      afero.Fs
	rootDir string
	log     zerowrap.Logger
}

// NewAttachmentStore creates an attachment store rooted at rootDir.
func NewAttachmentStore(fs afero.Fs, rootDir string, log zerowrap.Logger) (*AttachmentStore, error) {
	rootDir = filepath.Clean(expandTilde(rootDir))
	if err := fs.MkdirAll(rootDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create attachment root %s: %w", rootDir, err)
	}

	log.Debug().
		Str(zerowrap.FieldLayer, "adapter").
		Str(zerowrap.FieldAdapter, "filesystem").
		Str("root_dir", rootDir).
		Msg("attachment store initialized")

	return &AttachmentStore{fs: fs, rootDir: rootDir, log: log}, nil
}

// Copy copies every file of source into destination, preserving the
// relative layout. Files are written to a temporary name and renamed.
func (s *AttachmentStore) Copy(ctx context.Context, source, destination domain.EnvironmentRef, replace bool) (domain.CopyStats, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "adapter",
		zerowrap.FieldAdapter: "filesystem",
		zerowrap.FieldAction:  "Copy",
		"source":              source.String(),
		"destination":         destination.String(),
	})
	log := zerowrap.FromCtx(ctx)

	var stats domain.CopyStats

	srcDir := envPath(s.rootDir, source, "")
	dstDir := envPath(s.rootDir, destination, "")
	if pathWithinRoot(srcDir, dstDir) || pathWithinRoot(dstDir, srcDir) {
		return stats, fmt.Errorf("source and destination attachments overlap: %s, %s", srcDir, dstDir)
	}
	if !pathWithinRoot(s.rootDir, srcDir) || !pathWithinRoot(s.rootDir, dstDir) {
		return stats, fmt.Errorf("attachment path escapes storage root")
	}

	info, err := s.fs.Stat(srcDir)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, fmt.Errorf("%w: attachments of %s", domain.ErrResourceNotFound, source)
		}
		return stats, log.WrapErr(err, "failed to stat source attachments")
	}
	if !info.IsDir() {
		return stats, fmt.Errorf("source attachments %s is not a directory", srcDir)
	}

	if replace {
		if err := s.fs.RemoveAll(dstDir); err != nil {
			return stats, log.WrapErr(err, "failed to clear destination attachments")
		}
		log.Info().Str("dir", dstDir).Msg("destination attachments cleared")
	}
	if err := s.fs.MkdirAll(dstDir, 0750); err != nil {
		return stats, log.WrapErr(err, "failed to create destination attachments")
	}

	err = afero.Walk(s.fs, srcDir, func(path string, fi os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dstDir, rel)

		if fi.IsDir() {
			return s.fs.MkdirAll(target, 0750)
		}
		n, err := s.copyFile(path, target)
		if err != nil {
			return fmt.Errorf("copy %s: %w", rel, err)
		}
		stats.Files++
		stats.Bytes += n
		return nil
	})
	if err != nil {
		return stats, log.WrapErr(err, "failed to copy attachments")
	}

	log.Info().Int("files", stats.Files).Int64("bytes", stats.Bytes).Msg("attachments copied")
	return stats, nil
}

func (s *AttachmentStore) copyFile(src, dst string) (int64, error) {
	in, err := s.fs.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	tmp := dst + ".tmp"
	out, err := s.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if err != nil {
		_ = out.Close()
		_ = s.fs.Remove(tmp)
		return 0, err
	}
	if err := out.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return 0, err
	}
	if err := s.fs.Rename(tmp, dst); err != nil {
		_ = s.fs.Remove(tmp)
		return 0, err
	}
	return n, nil
}
