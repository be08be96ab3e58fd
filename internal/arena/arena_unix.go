//go:build linux || darwin || freebsd || netbsd || openbsd

package arena

import "golang.org/x/sys/unix"

// reserve maps an anonymous, zero-filled region directly from the kernel,
// bypassing the Go heap for the one allocation this process is allowed to
// make for its region storage.
func reserve(size uint64) ([]byte, error) {
	buf, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func release(buf []byte) error {
	if buf == nil {
		return nil
	}
	return unix.Munmap(buf)
}
