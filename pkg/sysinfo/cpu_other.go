//go:build !linux && !darwin

package sysinfo

import "runtime"

// Workers returns the default worker count for parallel region processing.
func Workers() int {
	return runtime.NumCPU()
}
