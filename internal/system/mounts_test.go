package system

import (
	"fmt"
	"testing"

	"github.com/moby/sys/mountinfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMountTable applies the filter the way mountinfo.GetMounts does.
func fakeMountTable(mountPoints ...string) func(mountinfo.FilterFunc) ([]*mountinfo.Info, error) {
	return func(filter mountinfo.FilterFunc) ([]*mountinfo.Info, error) {
		var out []*mountinfo.Info
		for _, mp := range mountPoints {
			info := &mountinfo.Info{Mountpoint: mp}
			skip, stop := filter(info)
			if !skip {
				out = append(out, info)
			}
			if stop {
				break
			}
		}
		return out, nil
	}
}

func TestMountTable_MountsUnder(t *testing.T) {
	table := &MountTable{getMounts: fakeMountTable(
		"/",
		"/proc",
		"/chroots/bar",
		"/chroots/bar/dev",
		"/chroots/bar/dev/pts",
		"/chroots/bar/proc",
		"/chroots/barn/dev",
		"/chroots/bar/dev",
	)}

	mounts, err := table.MountsUnder("/chroots/bar")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/chroots/bar/dev/pts",
		"/chroots/bar/dev",
		"/chroots/bar/proc",
		"/chroots/bar",
	}, mounts)
}

func TestMountTable_MountsUnder_None(t *testing.T) {
	table := &MountTable{getMounts: fakeMountTable("/", "/proc")}

	mounts, err := table.MountsUnder("/chroots/bar")
	require.NoError(t, err)
	assert.Empty(t, mounts)
}

func TestMountTable_MountsUnder_Error(t *testing.T) {
	table := &MountTable{getMounts: func(mountinfo.FilterFunc) ([]*mountinfo.Info, error) {
		return nil, fmt.Errorf("permission denied")
	}}

	_, err := table.MountsUnder("/chroots/bar")
	assert.ErrorContains(t, err, "reading mount table: permission denied")
}

func TestSortMountPointsByDepth(t *testing.T) {
	mountPoints := []string{
		"/a",
		"/a/b/c/d",
		"/a/b",
		"/a/x",
		"/a/b/c",
	}

	expected := []string{
		"/a/b/c/d",
		"/a/b/c",
		"/a/b",
		"/a/x",
		"/a",
	}

	assert.Equal(t, expected, sortMountPointsByDepth(mountPoints))
}

func TestNewMountTable(t *testing.T) {
	assert.NotNil(t, NewMountTable().getMounts)
}
