// Package storage holds binary payloads referenced by image and file
// messages. The delivery engine only ever sees the reference strings.
package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"convo/contract"
	"convo/domain"
	"convo/errors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DiskStore writes blobs under a root directory. References are relative
// paths, safe to hand out: they are re-validated on every lookup.
type DiskStore struct {
	root string
	log  *slog.Logger
}

var _ contract.BlobStore = (*DiskStore)(nil)

func NewDiskStore(root string, log *slog.Logger) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating blob root: %w", err)
	}
	return &DiskStore{root: root, log: log}, nil
}

// Store persists the payload and returns its reference. The original
// filename is kept in the reference (sanitized) so downloads keep a
// recognizable name; the uuid prefix prevents collisions.
func (d *DiskStore) Store(data []byte, filename string) (string, error) {
	base := sanitizeFilename(filename)
	ref := uuid.New().String() + "_" + base

	path := filepath.Join(d.root, ref)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}

	d.log.Debug("blob stored", "reference", ref, "bytes", len(data))
	return ref, nil
}

// SizeOf returns the stored payload size in bytes.
func (d *DiskStore) SizeOf(reference string) (int64, error) {
	path, err := d.resolve(reference)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, errors.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Open returns the absolute path of a stored blob for serving.
func (d *DiskStore) Open(reference string) (string, error) {
	path, err := d.resolve(reference)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", errors.ErrNotFound
	} else if err != nil {
		return "", err
	}
	return path, nil
}

// ClassifyPayload sniffs the content and maps it onto a message type:
// images become TypeImage, everything else TypeFile.
func ClassifyPayload(data []byte) domain.MessageType {
	if strings.HasPrefix(mimetype.Detect(data).String(), "image/") {
		return domain.TypeImage
	}
	return domain.TypeFile
}

// resolve joins the reference under the root, rejecting traversal attempts.
func (d *DiskStore) resolve(reference string) (string, error) {
	cleaned := filepath.Clean(reference)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("%w: invalid blob reference", errors.ErrValidation)
	}
	return filepath.Join(d.root, cleaned), nil
}

func sanitizeFilename(filename string) string {
	base := filepath.Base(filename)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, base)
	if base == "" || base == "." {
		base = "blob"
	}
	return base
}
