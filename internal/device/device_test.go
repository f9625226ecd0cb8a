package device

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/librarian/internal/errors"
	"github.com/listenupapp/librarian/internal/lock"
	"github.com/listenupapp/librarian/internal/logger"
)

// fatFs refuses to rename over an existing file, like the FAT driver.
type fatFs struct {
	afero.Fs
}

func (f fatFs) Rename(oldname, newname string) error {
	if ok, _ := afero.Exists(f.Fs, newname); ok {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrExist}
	}
	return f.Fs.Rename(oldname, newname)
}

func setupDevice(t *testing.T, fsys afero.Fs) *Device {
	t.Helper()
	bus := lock.New(lock.NameBus, 50*time.Millisecond)
	return New(fsys, bus, 100*time.Millisecond, logger.Discard())
}

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func TestWriteAtomic_ReplacesContent(t *testing.T) {
	for name, fsys := range map[string]afero.Fs{
		"posix": afero.NewMemMapFs(),
		"fat":   fatFs{afero.NewMemMapFs()},
	} {
		t.Run(name, func(t *testing.T) {
			d := setupDevice(t, fsys)
			ctx := context.Background()

			require.NoError(t, d.WriteAtomic(ctx, "/db/cds/a.json", writeString("v1")))
			require.NoError(t, d.WriteAtomic(ctx, "/db/cds/a.json", writeString("v2")))

			data, err := d.ReadFile(ctx, "/db/cds/a.json")
			require.NoError(t, err)
			assert.Equal(t, "v2", string(data))

			exists, err := d.Exists(ctx, "/db/cds/a.json"+TempSuffix)
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestWriteAtomic_FailedWriteKeepsOldContent(t *testing.T) {
	d := setupDevice(t, afero.NewMemMapFs())
	ctx := context.Background()
	require.NoError(t, d.WriteAtomic(ctx, "/db/cd_index.jsonl", writeString("old")))

	err := d.WriteAtomic(ctx, "/db/cd_index.jsonl", func(w io.Writer) error {
		_, _ = io.WriteString(w, "half")
		return fmt.Errorf("encoder exploded")
	})
	assert.ErrorIs(t, err, errors.ErrStorage)

	data, err := d.ReadFile(ctx, "/db/cd_index.jsonl")
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))

	exists, _ := d.Exists(ctx, "/db/cd_index.jsonl"+TempSuffix)
	assert.False(t, exists)
}

func TestDevice_BusTimeout(t *testing.T) {
	d := setupDevice(t, afero.NewMemMapFs())
	require.True(t, d.bus.TryLock())
	defer d.bus.Unlock()

	_, err := d.ReadFile(context.Background(), "/db/x.json")
	assert.ErrorIs(t, err, errors.ErrLockTimeout)

	start := time.Now()
	err = d.Bulk().Remove(context.Background(), "/db/x.json")
	assert.ErrorIs(t, err, errors.ErrLockTimeout)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestReadFile_MissingIsNotFound(t *testing.T) {
	d := setupDevice(t, afero.NewMemMapFs())
	_, err := d.ReadFile(context.Background(), "/db/books/none.json")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestPromoteTemp(t *testing.T) {
	fsys := afero.NewMemMapFs()
	d := setupDevice(t, fsys)
	ctx := context.Background()

	require.NoError(t, afero.WriteFile(fsys, "/db/cds/a.json"+TempSuffix, []byte(`{"title":"x"}`), 0o644))
	promoted, err := d.PromoteTemp(ctx, "/db/cds/a.json", json.Valid)
	require.NoError(t, err)
	assert.True(t, promoted)

	data, err := d.ReadFile(ctx, "/db/cds/a.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"x"}`, string(data))

	require.NoError(t, afero.WriteFile(fsys, "/db/cds/b.json"+TempSuffix, []byte(`{"title":`), 0o644))
	promoted, err = d.PromoteTemp(ctx, "/db/cds/b.json", json.Valid)
	require.NoError(t, err)
	assert.False(t, promoted)
	exists, _ := afero.Exists(fsys, "/db/cds/b.json"+TempSuffix)
	assert.False(t, exists)
}

func TestPromoteTemp_KeepsExistingTarget(t *testing.T) {
	fsys := afero.NewMemMapFs()
	d := setupDevice(t, fsys)
	require.NoError(t, afero.WriteFile(fsys, "/a.json", []byte(`{"v":1}`), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "/a.json"+TempSuffix, []byte(`{"v":2}`), 0o644))

	promoted, err := d.PromoteTemp(context.Background(), "/a.json", json.Valid)
	require.NoError(t, err)
	assert.False(t, promoted)
}

func TestRemoveFiles(t *testing.T) {
	fsys := afero.NewMemMapFs()
	d := setupDevice(t, fsys)
	for _, name := range []string{"a.json", "b.json", "c.json.tmp", "keep.txt"} {
		require.NoError(t, afero.WriteFile(fsys, "/db/cds/"+name, []byte("{}"), 0o644))
	}

	n, err := d.RemoveFiles(context.Background(), "/db/cds", ".json")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	names, err := d.List(context.Background(), "/db/cds")
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.txt"}, names)

	n, err = d.RemoveFiles(context.Background(), "/db/missing", ".json")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStream(t *testing.T) {
	fsys := afero.NewMemMapFs()
	d := setupDevice(t, fsys)
	require.NoError(t, afero.WriteFile(fsys, "/tracks/r1.json", []byte("line1\nline2\n"), 0o644))

	var lines []string
	err := d.Stream(context.Background(), "/tracks/r1.json", func(r *bufio.Reader) error {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		return sc.Err()
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"line1", "line2"}, lines)

	err = d.Stream(context.Background(), "/tracks/none.json", func(*bufio.Reader) error { return nil })
	assert.ErrorIs(t, err, errors.ErrNotFound)
}
