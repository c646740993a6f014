package shm

import "github.com/shirou/gopsutil/v3/disk"

const devShmDir = "/dev/shm"

// CanCreateOnDevShm reports whether /dev/shm has room for size bytes.
// When the mount cannot be inspected the create is allowed and left to
// fail at ftruncate time instead.
func CanCreateOnDevShm(size uint64) bool {
	usage, err := disk.Usage(devShmDir)
	if err != nil {
		return true
	}
	return usage.Free >= size
}
