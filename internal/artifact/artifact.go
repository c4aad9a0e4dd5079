package artifact

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrEmpty indicates the build pipeline yielded a zero-length package.
// Deploying it would fail downstream in a confusing way, so it is rejected
// before any network call.
var ErrEmpty = errors.New("artifact is empty")

// Producer yields the deployable zip package. The build itself is external;
// the deployer only packages and validates its output.
type Producer func(ctx context.Context) ([]byte, error)

// Validate rejects packages that violate the producer contract
func Validate(data []byte) error {
	if len(data) == 0 {
		return ErrEmpty
	}
	return nil
}

// SHA256 returns the hex digest of the package, used for history records
func SHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// FileProducer packages a single prebuilt binary as the named zip entry.
// The entry is marked executable so the runtime can launch it.
func FileProducer(path, entryName string) Producer {
	return func(ctx context.Context) ([]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read artifact %s: %w", path, err)
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
		}

		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)

		header := &zip.FileHeader{
			Name:   entryName,
			Method: zip.Deflate,
		}
		header.SetMode(0o755)

		w, err := zw.CreateHeader(header)
		if err != nil {
			return nil, fmt.Errorf("failed to create zip entry %s: %w", entryName, err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("failed to write zip entry %s: %w", entryName, err)
		}
		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("failed to finalize artifact zip: %w", err)
		}

		return buf.Bytes(), nil
	}
}

// DirProducer packages a build output directory, preserving relative paths
func DirProducer(dir string) Producer {
	return func(ctx context.Context) ([]byte, error) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)

		entries := 0
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}

			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}

			info, err := d.Info()
			if err != nil {
				return err
			}

			header := &zip.FileHeader{
				Name:   filepath.ToSlash(rel),
				Method: zip.Deflate,
			}
			header.SetMode(info.Mode().Perm())

			w, err := zw.CreateHeader(header)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			if _, err := w.Write(data); err != nil {
				return err
			}

			entries++
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to package directory %s: %w", dir, err)
		}
		if entries == 0 {
			return nil, fmt.Errorf("%w: no files under %s", ErrEmpty, dir)
		}

		if err := zw.Close(); err != nil {
			return nil, fmt.Errorf("failed to finalize artifact zip: %w", err)
		}

		return buf.Bytes(), nil
	}
}
