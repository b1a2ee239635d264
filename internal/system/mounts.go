package system

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/moby/sys/mountinfo"
	"github.com/pkg/errors"
)

// MountTable lists live mount points from /proc/self/mountinfo.
type MountTable struct {
	getMounts func(mountinfo.FilterFunc) ([]*mountinfo.Info, error)
}

func NewMountTable() *MountTable {
	return &MountTable{getMounts: mountinfo.GetMounts}
}

// MountsUnder returns every mount point at or below base, deepest first.
// base must be canonical.
func (t *MountTable) MountsUnder(base string) ([]string, error) {
	infos, err := t.getMounts(mountinfo.PrefixFilter(base))
	if err != nil {
		return nil, errors.Wrap(err, "reading mount table")
	}

	seen := make(map[string]struct{}, len(infos))
	mountPoints := make([]string, 0, len(infos))
	for _, info := range infos {
		if _, ok := seen[info.Mountpoint]; ok {
			continue
		}
		seen[info.Mountpoint] = struct{}{}
		mountPoints = append(mountPoints, info.Mountpoint)
	}
	return sortMountPointsByDepth(mountPoints), nil
}

// sortMountPointsByDepth sorts mount points by depth (deepest first), keeping
// mount table order between mounts of equal depth.
func sortMountPointsByDepth(mountPoints []string) []string {
	sorted := make([]string, 0, len(mountPoints))
	sorted = append(sorted, mountPoints...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return depth(sorted[i]) > depth(sorted[j])
	})
	return sorted
}

func depth(path string) int {
	return strings.Count(filepath.Clean(path), string(filepath.Separator))
}
