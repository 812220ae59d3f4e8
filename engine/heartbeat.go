package engine

import (
	"os"

	"github.com/shirou/gopsutil/process"
)

// sampleProcess reads this process's resident set size and recent CPU
// utilization, for the heartbeat log line. Either
// value is best-effort: a sampling failure must never interrupt a
// simulation, so the caller only logs the sample when err is nil.
func sampleProcess() (rssBytes uint64, cpuPercent float64, err error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, 0, err
	}

	mem, err := p.MemoryInfo()
	if err != nil {
		return 0, 0, err
	}

	pct, err := p.Percent(0)
	if err != nil {
		pct = 0
	}

	return mem.RSS, pct, nil
}
