package occupancy_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aws/chroot-teardown/internal/occupancy"
)

const (
	base   = "/var/lib/chroots/bar"
	marker = "CHROOT_TEARDOWN_CORE"
)

type staticTable struct {
	procs []occupancy.Process
	err   error
}

func (s staticTable) Processes() ([]occupancy.Process, error) {
	return s.procs, s.err
}

func TestFindOccupants_Predicate(t *testing.T) {
	tests := []struct {
		name     string
		procs    []occupancy.Process
		expected []int
	}{
		{
			name: "started from outside by a live parent",
			procs: []occupancy.Process{
				{PID: 100, PPID: 1, Root: "/"},
				{PID: 200, PPID: 100, Root: base},
			},
			expected: []int{200},
		},
		{
			name: "parent unknown",
			procs: []occupancy.Process{
				{PID: 200, PPID: occupancy.UnknownPID, Root: base},
			},
		},
		{
			name: "orphaned",
			procs: []occupancy.Process{
				{PID: 200, PPID: 1, Root: base},
			},
		},
		{
			name: "parent inside chroot",
			procs: []occupancy.Process{
				{PID: 100, PPID: 1, Root: "/"},
				{PID: 200, PPID: 100, Root: base},
				{PID: 300, PPID: 200, Root: base},
				{PID: 400, PPID: 300, Root: base},
			},
			expected: []int{200},
		},
		{
			name: "core marker",
			procs: []occupancy.Process{
				{PID: 200, PPID: 100, Root: base, Env: []string{"PATH=/bin", marker + "=1"}},
				{PID: 201, PPID: 100, Root: base, Env: []string{marker}},
			},
		},
		{
			name: "marker prefix is not the marker",
			procs: []occupancy.Process{
				{PID: 200, PPID: 100, Root: base, Env: []string{marker + "_OTHER=1"}},
			},
			expected: []int{200},
		},
		{
			name: "other roots ignored",
			procs: []occupancy.Process{
				{PID: 200, PPID: 100, Root: "/var/lib/chroots/baz"},
				{PID: 201, PPID: 100, Root: base + "/sub"},
				{PID: 202, PPID: 100, Root: "/"},
			},
		},
		{
			name: "parent exited",
			procs: []occupancy.Process{
				{PID: 200, PPID: 150, Root: base},
			},
			expected: []int{200},
		},
		{
			name: "sorted by pid",
			procs: []occupancy.Process{
				{PID: 900, PPID: 50, Root: base},
				{PID: 300, PPID: 50, Root: base},
				{PID: 500, PPID: 50, Root: base},
			},
			expected: []int{300, 500, 900},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := occupancy.NewDetector(staticTable{procs: tc.procs}, marker, zaptest.NewLogger(t))
			occupants, err := d.FindOccupants(base)
			require.NoError(t, err)
			if tc.expected == nil {
				assert.Empty(t, occupants)
			} else {
				assert.Equal(t, tc.expected, occupancy.PIDs(occupants))
			}
		})
	}
}

func TestFindOccupants_TableError(t *testing.T) {
	d := occupancy.NewDetector(staticTable{err: errors.New("no procfs")}, marker, zaptest.NewLogger(t))
	_, err := d.FindOccupants(base)
	assert.ErrorContains(t, err, "listing processes: no procfs")
}

func TestHasEnv(t *testing.T) {
	p := occupancy.Process{Env: []string{"A=1", "B"}}
	assert.True(t, p.HasEnv("A"))
	assert.True(t, p.HasEnv("B"))
	assert.False(t, p.HasEnv("C"))
	assert.False(t, occupancy.Process{}.HasEnv("A"))
}
