package ids_test

import (
	"path/filepath"
	"testing"

	"github.com/gthost/cusp-gluon/internal/ids"
	"github.com/stretchr/testify/require"
)

func TestNodeAssignmentRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vmap.bin")

	hosts := []int32{0, 0, 1, 1, 2, 2, 2}
	require.NoError(t, ids.WriteNodeAssignment(path, hosts))

	na, err := ids.LoadNodeAssignment(path, ids.Range{Lo: 2, Hi: 5})
	require.NoError(t, err)
	require.Equal(t, 3, na.Len())
	require.Equal(t, ids.HostID(1), na.HostOf(2))
	require.Equal(t, ids.HostID(1), na.HostOf(3))
	require.Equal(t, ids.HostID(2), na.HostOf(4))
}

func TestNodeAssignmentOutOfRangePanics(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vmap.bin")
	require.NoError(t, ids.WriteNodeAssignment(path, []int32{0, 1}))

	na, err := ids.LoadNodeAssignment(path, ids.Range{Lo: 0, Hi: 2})
	require.NoError(t, err)

	require.Panics(t, func() { na.HostOf(5) })
}

func TestLoadNodeAssignmentMissingFile(t *testing.T) {
	_, err := ids.LoadNodeAssignment("/nonexistent/vmap.bin", ids.Range{Lo: 0, Hi: 4})
	require.Error(t, err)
}

func TestLoadNodeAssignmentEmptyRange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vmap.bin")
	require.NoError(t, ids.WriteNodeAssignment(path, []int32{0, 1}))

	_, err := ids.LoadNodeAssignment(path, ids.Range{Lo: 2, Hi: 2})
	require.Error(t, err)
}
