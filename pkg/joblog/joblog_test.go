package joblog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-intelligence.com/sanreport/util/fileutil"
)

func createLog(t *testing.T, base, job string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(LogDir(base, job), 0755))
	require.NoError(t, os.WriteFile(LogPath(base, job), []byte("log output\n"), 0644))
}

func TestFind(t *testing.T) {
	base, err := os.MkdirTemp("", "joblog-test-")
	require.NoError(t, err)
	defer fileutil.Cleanup(base)

	createLog(t, base, "rclcpp")
	createLog(t, base, "rcl")
	createLog(t, base, "nested/rcl_logging_spdlog")
	// Other files in job directories are ignored
	require.NoError(t, os.WriteFile(filepath.Join(LogDir(base, "rcl"), "stdout.log"), nil, 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(base, "empty_job"), 0755))

	jobs, err := Find(base)
	require.NoError(t, err)
	assert.Equal(t, []Job{
		{ID: "nested/rcl_logging_spdlog", LogPath: LogPath(base, "nested/rcl_logging_spdlog")},
		{ID: "rcl", LogPath: LogPath(base, "rcl")},
		{ID: "rclcpp", LogPath: LogPath(base, "rclcpp")},
	}, jobs)
}

func TestFind_NoLogs(t *testing.T) {
	base, err := os.MkdirTemp("", "joblog-test-")
	require.NoError(t, err)
	defer fileutil.Cleanup(base)

	jobs, err := Find(base)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestLogPath(t *testing.T) {
	assert.Equal(t, filepath.Join("log", "latest_test", "rcl", "stdout_stderr.log"), LogPath(filepath.Join("log", "latest_test"), "rcl"))
	assert.Equal(t, filepath.Join("log", "a", "b"), LogDir("log", "a/b"))
}
