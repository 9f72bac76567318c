//go:build linux

package monitoring

import "golang.org/x/sys/unix"

// SystemMemoryPercent reports the share of physical memory in use.
func SystemMemoryPercent() float64 {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil || info.Totalram == 0 {
		return heapPercent()
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	total := uint64(info.Totalram) * unit
	free := (uint64(info.Freeram) + uint64(info.Bufferram)) * unit
	if free > total {
		return 0
	}
	return float64(total-free) / float64(total) * 100
}
