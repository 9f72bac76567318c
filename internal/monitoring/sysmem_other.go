//go:build !linux

package monitoring

// SystemMemoryPercent reports the Go heap in use relative to memory obtained
// from the OS.
func SystemMemoryPercent() float64 {
	return heapPercent()
}
