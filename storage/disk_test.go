package storage

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"convo/domain"
	"convo/errors"

	"github.com/stretchr/testify/require"
)

// Smallest valid PNG header, enough for content sniffing.
var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}

func newTestStore(t *testing.T) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(t.TempDir(), slog.Default())
	require.NoError(t, err)
	return store
}

func Test_Store_And_Read_Back(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	payload := []byte("quarterly report contents")
	ref, err := store.Store(payload, "report.pdf")
	req.NoError(err)
	req.True(strings.HasSuffix(ref, "_report.pdf"))

	size, err := store.SizeOf(ref)
	req.NoError(err)
	req.Equal(int64(len(payload)), size)

	path, err := store.Open(ref)
	req.NoError(err)
	data, err := os.ReadFile(path)
	req.NoError(err)
	req.Equal(payload, data)
}

func Test_Store_Sanitizes_Filename(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	ref, err := store.Store([]byte("x"), "../../etc/pass wd")
	req.NoError(err)
	req.NotContains(ref, "/")
	req.NotContains(ref, " ")

	_, err = store.SizeOf(ref)
	req.NoError(err)
}

func Test_Open_Rejects_Traversal(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	_, err := store.Open("../outside")
	req.ErrorIs(err, errors.ErrValidation)

	_, err = store.Open("/etc/passwd")
	req.ErrorIs(err, errors.ErrValidation)
}

func Test_Open_Unknown_Reference(t *testing.T) {
	req := require.New(t)
	store := newTestStore(t)

	_, err := store.Open("missing-blob")
	req.ErrorIs(err, errors.ErrNotFound)

	_, err = store.SizeOf("missing-blob")
	req.ErrorIs(err, errors.ErrNotFound)
}

func Test_ClassifyPayload(t *testing.T) {
	req := require.New(t)

	req.Equal(domain.TypeImage, ClassifyPayload(pngHeader))
	req.Equal(domain.TypeFile, ClassifyPayload([]byte("plain text attachment")))
	req.Equal(domain.TypeFile, ClassifyPayload(nil))
}
