package occupancy

import "strings"

// UnknownPID marks a parent PID that could not be read.
const UnknownPID = -1

// Process is one entry of a process table snapshot.
type Process struct {
	PID  int
	PPID int
	// Root is the canonical path of the process's root directory.
	Root string
	Comm string
	// Env holds KEY=VALUE entries; nil when the environment was unreadable.
	Env []string
}

// HasEnv reports whether key is set in the process environment, whatever
// its value.
func (p Process) HasEnv(key string) bool {
	for _, kv := range p.Env {
		if kv == key || strings.HasPrefix(kv, key+"=") {
			return true
		}
	}
	return false
}

// PIDs returns the PIDs of procs in order.
func PIDs(procs []Process) []int {
	pids := make([]int, 0, len(procs))
	for _, p := range procs {
		pids = append(pids, p.PID)
	}
	return pids
}
