//go:build darwin

package sysinfo

import (
	"runtime"
	"syscall"
)

// Workers returns the default worker count for parallel region processing.
// On Apple Silicon the performance-core count is preferred, since region
// scans are CPU bound.
func Workers() int {
	if n := physicalCores(); n > 0 {
		return n
	}
	return runtime.NumCPU()
}

func physicalCores() int {
	for _, key := range []string{"hw.perflevel0.physicalcpu", "hw.physicalcpu"} {
		// syscall.Sysctl returns the raw little-endian bytes.
		raw, err := syscall.Sysctl(key)
		if err != nil || len(raw) == 0 {
			continue
		}
		n := int(raw[0])
		if len(raw) > 1 {
			n |= int(raw[1]) << 8
		}
		if n > 0 {
			return n
		}
	}
	return 0
}
