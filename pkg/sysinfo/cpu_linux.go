//go:build linux

package sysinfo

import (
	"bufio"
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Workers returns the default worker count for parallel region processing:
// the number of physical cores when it can be determined, otherwise the
// logical CPU count.
func Workers() int {
	if n := physicalCores(); n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// physicalCores counts distinct (physical id, core id) pairs in
// /proc/cpuinfo. Returns 0 when the file is missing or unparseable.
func physicalCores() int {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return 0
	}
	defer f.Close()

	cores := make(map[string]bool)
	var physID, coreID string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "physical id"):
			physID = valueOf(line)
		case strings.HasPrefix(line, "core id"):
			coreID = valueOf(line)
		case line == "":
			if physID != "" && coreID != "" {
				cores[fmt.Sprintf("%s:%s", physID, coreID)] = true
			}
			physID, coreID = "", ""
		}
	}
	if physID != "" && coreID != "" {
		cores[fmt.Sprintf("%s:%s", physID, coreID)] = true
	}
	return len(cores)
}

func valueOf(line string) string {
	if i := strings.Index(line, ":"); i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	return ""
}
