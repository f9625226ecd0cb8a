// Package device provides bus-locked access to the removable card.
//
// The card shares its bus with the display, so every filesystem call runs
// under the bus lock. Writes go through WriteAtomic: content lands in a
// sibling .tmp file first and only a completed temp file replaces the target.
package device

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/listenupapp/librarian/internal/errors"
	"github.com/listenupapp/librarian/internal/lock"
)

// TempSuffix is appended to a path while its replacement is being written.
const TempSuffix = ".tmp"

// streamBufferSize sizes the pooled buffers used for sidecar streaming.
const streamBufferSize = 64 << 10

var (
	readerPool = sync.Pool{New: func() any { return bufio.NewReaderSize(nil, streamBufferSize) }}
	writerPool = sync.Pool{New: func() any { return bufio.NewWriterSize(nil, streamBufferSize) }}
)

// Device is a card filesystem guarded by the bus lock.
type Device struct {
	fs      afero.Fs
	bus     *lock.Mutex
	timeout time.Duration
	long    time.Duration
	logger  *slog.Logger
}

// New wraps fs. Operations wait up to bus.Timeout() for the bus; operations
// started through Bulk wait up to long.
func New(fsys afero.Fs, bus *lock.Mutex, long time.Duration, logger *slog.Logger) *Device {
	if long < bus.Timeout() {
		long = bus.Timeout()
	}
	return &Device{fs: fsys, bus: bus, timeout: bus.Timeout(), long: long, logger: logger}
}

// NewOS returns a device rooted at the card mount point.
func NewOS(root string, bus *lock.Mutex, long time.Duration, logger *slog.Logger) *Device {
	return New(afero.NewBasePathFs(afero.NewOsFs(), root), bus, long, logger)
}

// Bulk returns a view of the device whose operations use the long bus
// timeout. Index rewrites and wipes go through it.
func (d *Device) Bulk() *Device {
	c := *d
	c.timeout = d.long
	return &c
}

// Fs exposes the underlying filesystem without bus locking, for inspection
// tools and tests.
func (d *Device) Fs() afero.Fs {
	return d.fs
}

func (d *Device) acquire(ctx context.Context) error {
	return d.bus.LockWithin(ctx, d.timeout)
}

// ReadFile returns the content of path.
func (d *Device) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := d.acquire(ctx); err != nil {
		return nil, err
	}
	defer d.bus.Unlock()

	data, err := afero.ReadFile(d.fs, path)
	if err != nil {
		return nil, wrapPathError(err, "read", path)
	}
	return data, nil
}

// Stream opens path and hands fn a pooled buffered reader. The bus stays
// held until fn returns.
func (d *Device) Stream(ctx context.Context, path string, fn func(r *bufio.Reader) error) error {
	if err := d.acquire(ctx); err != nil {
		return err
	}
	defer d.bus.Unlock()

	f, err := d.fs.Open(path)
	if err != nil {
		return wrapPathError(err, "open", path)
	}
	defer f.Close()

	br := readerPool.Get().(*bufio.Reader)
	br.Reset(f)
	defer func() {
		br.Reset(nil)
		readerPool.Put(br)
	}()

	return fn(br)
}

// Exists reports whether path exists.
func (d *Device) Exists(ctx context.Context, path string) (bool, error) {
	if err := d.acquire(ctx); err != nil {
		return false, err
	}
	defer d.bus.Unlock()

	ok, err := afero.Exists(d.fs, path)
	if err != nil {
		return false, errors.Storagef(err, "stat %s", path)
	}
	return ok, nil
}

// WriteAtomic replaces path with the bytes produced by write. The previous
// content of path survives any failure before the final rename.
func (d *Device) WriteAtomic(ctx context.Context, path string, write func(w io.Writer) error) error {
	if err := d.acquire(ctx); err != nil {
		return err
	}
	defer d.bus.Unlock()

	if err := d.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Storagef(err, "create directory for %s", path)
	}

	tmp := path + TempSuffix
	if err := d.writeTemp(tmp, write); err != nil {
		_ = d.fs.Remove(tmp)
		return err
	}

	if err := d.fs.Rename(tmp, path); err != nil {
		// FAT drivers refuse to rename over an existing file.
		if rmErr := d.fs.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			d.logger.Error("atomic write: cannot replace target",
				"path", path, "error", rmErr, "category", "storage")
			return errors.Storagef(rmErr, "remove %s before rename", path)
		}
		if err := d.fs.Rename(tmp, path); err != nil {
			d.logger.Error("atomic write: rename failed, temp file left for recovery",
				"path", path, "error", err, "category", "storage")
			return errors.Storagef(err, "rename %s", tmp)
		}
	}
	return nil
}

func (d *Device) writeTemp(tmp string, write func(w io.Writer) error) error {
	f, err := d.fs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return errors.Storagef(err, "create %s", tmp)
	}

	bw := writerPool.Get().(*bufio.Writer)
	bw.Reset(f)
	defer func() {
		bw.Reset(nil)
		writerPool.Put(bw)
	}()

	if err := write(bw); err != nil {
		f.Close()
		return errors.Storagef(err, "write %s", tmp)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return errors.Storagef(err, "flush %s", tmp)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return errors.Storagef(err, "sync %s", tmp)
	}
	if err := f.Close(); err != nil {
		return errors.Storagef(err, "close %s", tmp)
	}
	return nil
}

// PromoteTemp finishes an interrupted WriteAtomic: when path is missing and
// its temp sibling exists and passes valid, the temp file is renamed into
// place. It reports whether a promotion happened.
func (d *Device) PromoteTemp(ctx context.Context, path string, valid func([]byte) bool) (bool, error) {
	if err := d.acquire(ctx); err != nil {
		return false, err
	}
	defer d.bus.Unlock()

	if ok, _ := afero.Exists(d.fs, path); ok {
		return false, nil
	}
	tmp := path + TempSuffix
	data, err := afero.ReadFile(d.fs, tmp)
	if err != nil {
		return false, nil
	}
	if !valid(bytes.TrimSpace(data)) {
		d.logger.Warn("discarding incomplete temp file", "path", tmp, "category", "storage")
		_ = d.fs.Remove(tmp)
		return false, nil
	}
	if err := d.fs.Rename(tmp, path); err != nil {
		return false, errors.Storagef(err, "promote %s", tmp)
	}
	d.logger.Info("recovered interrupted write", "path", path)
	return true, nil
}

// Remove deletes path. A missing file is not an error.
func (d *Device) Remove(ctx context.Context, path string) error {
	if err := d.acquire(ctx); err != nil {
		return err
	}
	defer d.bus.Unlock()

	if err := d.fs.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.Storagef(err, "remove %s", path)
	}
	return nil
}

// RemoveFiles deletes every regular file in dir whose name ends in suffix,
// including leftover temp files of such names. A missing dir removes nothing.
func (d *Device) RemoveFiles(ctx context.Context, dir, suffix string) (int, error) {
	if err := d.acquire(ctx); err != nil {
		return 0, err
	}
	defer d.bus.Unlock()

	entries, err := afero.ReadDir(d.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Storagef(err, "list %s", dir)
	}

	removed := 0
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasSuffix(name, suffix) || strings.HasSuffix(name, suffix+TempSuffix)) {
			continue
		}
		if err := d.fs.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	if len(errs) > 0 {
		return removed, errors.Storagef(errors.Join(errs...), "remove files in %s", dir)
	}
	return removed, nil
}

// List returns the sorted names of regular files in dir.
func (d *Device) List(ctx context.Context, dir string) ([]string, error) {
	if err := d.acquire(ctx); err != nil {
		return nil, err
	}
	defer d.bus.Unlock()

	entries, err := afero.ReadDir(d.fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Storagef(err, "list %s", dir)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func wrapPathError(err error, op, path string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return errors.NotFoundf("%s %s", op, path).WithCause(err)
	}
	return errors.Storagef(err, "%s %s", op, path)
}
