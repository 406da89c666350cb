package main

import "runtime"

// Worker sizing constants.
const (
	minWorkers = 1
	maxWorkers = 32 // auto-sizing cap; --workers may go up to maxWorkerFlag
)

// resolvePoolSize picks the number of batch workers.
// Priority: explicit workers > GOMAXPROCS (adjusted by automaxprocs for containers).
// Rendering is CPU-bound and in-process, so one worker per available CPU.
func resolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}
	return clampWorkers(runtime.GOMAXPROCS(0))
}

func clampWorkers(n int) int {
	if n < minWorkers {
		return minWorkers
	}
	if n > maxWorkers {
		return maxWorkers
	}
	return n
}
