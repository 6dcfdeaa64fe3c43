//go:build unix

package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// segmentPath resolves the backing file for a POSIX shared-memory
// object name. On Linux, POSIX shared memory objects are ordinary
// files under the tmpfs-backed /dev/shm, so a plain os.OpenFile there
// gives the same cross-process semantics as shm_open without cgo;
// when /dev/shm is unavailable we fall back to the OS temp directory.
func segmentPath(name string) string {
	shmPath := filepath.Join("/dev/shm", name)
	if info, err := os.Stat("/dev/shm"); err == nil && info.IsDir() {
		return shmPath
	}
	return filepath.Join(os.TempDir(), name)
}

func mmapFile(f *os.File, size int) ([]byte, error) {
	mem, err := syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return mem, nil
}

func munmap(mem []byte) error {
	if len(mem) == 0 {
		return nil
	}
	return syscall.Munmap(mem)
}
