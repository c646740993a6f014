//go:build linux

package shm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrNoSpaceOnDevShm reports that /dev/shm cannot hold a segment of the
// requested size.
var ErrNoSpaceOnDevShm = errors.New("not enough space left on /dev/shm")

// Map creates or attaches a shared memory segment backed by a /dev/shm file.
func Map(opts Options) (*Region, error) {
	if opts.Name == "" {
		return nil, errors.New("empty segment name")
	}
	path := filepath.Join(devShmDir, opts.Name)
	flags := unix.O_RDWR
	size := opts.Size
	if opts.Create {
		if size <= 0 {
			return nil, fmt.Errorf("invalid segment size %d", size)
		}
		if !CanCreateOnDevShm(uint64(size)) {
			return nil, fmt.Errorf("%w: %s needs %d bytes", ErrNoSpaceOnDevShm, path, size)
		}
		flags |= unix.O_CREAT | unix.O_EXCL
	}
	fd, err := unix.Open(path, flags, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if opts.Create {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			_ = unix.Close(fd)
			_ = os.Remove(path)
			return nil, fmt.Errorf("ftruncate %s: %w", path, err)
		}
	} else {
		var st unix.Stat_t
		if err := unix.Fstat(fd, &st); err != nil {
			_ = unix.Close(fd)
			return nil, fmt.Errorf("fstat %s: %w", path, err)
		}
		size = int(st.Size)
	}
	mem, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		if opts.Create {
			_ = os.Remove(path)
		}
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &Region{
		Mem:   mem,
		name:  opts.Name,
		fd:    fd,
		owner: opts.Create,
	}, nil
}

// Close unmaps the segment, closes its descriptor and, for the owner,
// removes the backing file.
func (r *Region) Close() error {
	if r == nil || r.Mem == nil {
		return nil
	}
	err := unix.Munmap(r.Mem)
	r.Mem = nil
	if cerr := unix.Close(r.fd); err == nil {
		err = cerr
	}
	if r.owner {
		if rerr := os.Remove(filepath.Join(devShmDir, r.name)); err == nil && !os.IsNotExist(rerr) {
			err = rerr
		}
	}
	return err
}
