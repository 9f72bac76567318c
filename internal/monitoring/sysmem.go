package monitoring

import "runtime"

func heapPercent() float64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	if stats.Sys == 0 {
		return 0
	}
	return float64(stats.HeapInuse) / float64(stats.Sys) * 100
}
