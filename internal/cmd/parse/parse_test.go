package parse

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"code-intelligence.com/sanreport/internal/cmdutils"
	"code-intelligence.com/sanreport/pkg/log"
	"code-intelligence.com/sanreport/pkg/report"
	"code-intelligence.com/sanreport/pkg/storage"
)

const leakLog = `Starting >>> demo_nodes
==17726==ERROR: LeakSanitizer: detected memory leaks

Direct leak of 4 byte(s) in 1 object(s) allocated from:
    #0 0x7f1d8c3a0b40 in __interceptor_malloc (/usr/lib/x86_64-linux-gnu/libasan.so.4+0xdeb40)
    #1 0x55d3f0c0e2b1 in leak_memory /home/user/ros2/src/demo_nodes/src/leak.cpp:5

SUMMARY: AddressSanitizer: 4 byte(s) leaked in 1 allocation(s).
Finished <<< demo_nodes [2.31s]
`

const raceLog = `[talker-1] WARNING: ThreadSanitizer: data race (pid=100)
[talker-1]   Write of size 4 at 0x7b0400000100 by thread T1:
[talker-1]     #0 rclcpp::publish /home/user/ros2/src/rclcpp/src/publisher.cpp:42 (librclcpp.so+0x100)
[talker-1]   Previous read of size 4 at 0x7b0400000100 by main thread:
[talker-1]     #0 rclcpp::spin /home/user/ros2/src/rclcpp/src/executor.cpp:12 (librclcpp.so+0x300)
[talker-1] SUMMARY: ThreadSanitizer: data race /home/user/ros2/src/rclcpp/src/publisher.cpp:42 in rclcpp::publish
`

var logOutput *bytes.Buffer

func TestMain(m *testing.M) {
	// capture log output
	logOutput = &bytes.Buffer{}
	log.SetOutput(logOutput)

	res := m.Run()

	log.SetOutput(os.Stderr)
	os.Exit(res)
}

func setup(t *testing.T) *options {
	t.Helper()
	t.Cleanup(viper.Reset)
	logOutput.Reset()

	fs := storage.NewMemFileSystem()
	require.NoError(t, fs.WriteFile("/logs/leak.log", []byte(leakLog), 0644))
	require.NoError(t, fs.WriteFile("/logs/race.log", []byte(raceLog), 0644))
	return &options{fs: fs}
}

func readCSV(t *testing.T, s string) [][]string {
	t.Helper()

	rows, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestParse_CSVToStdout(t *testing.T) {
	opts := setup(t)

	out, err := cmdutils.ExecuteCommand(t, newWithOptions(opts), os.Stdin, "/logs/leak.log", "/logs/race.log", "--package", "rclcpp")
	require.NoError(t, err)

	assert.Equal(t, [][]string{
		{"package", "error_name", "key", "count"},
		{"demo_nodes", "detected memory leaks", "leak_memory /home/user/ros2/src/demo_nodes/src/leak.cpp:5", "1"},
		{"rclcpp", "data race", "rclcpp::publish /home/user/ros2/src/rclcpp/src/publisher.cpp:42 (librclcpp.so+0xX)", "1"},
		{"rclcpp", "data race", "rclcpp::spin /home/user/ros2/src/rclcpp/src/executor.cpp:12 (librclcpp.so+0xX)", "1"},
	}, readCSV(t, out))

	assert.Contains(t, logOutput.String(), "Found 3 sanitizer errors at 3 locations")
	assert.Contains(t, logOutput.String(), "demo_nodes")
}

func TestParse_Stdin(t *testing.T) {
	opts := setup(t)

	out, err := cmdutils.ExecuteCommand(t, newWithOptions(opts), strings.NewReader(raceLog), "-", "--samples")
	require.NoError(t, err)

	rows := readCSV(t, out)
	require.Len(t, rows, 3)
	assert.Equal(t, "sample_stack_trace", rows[0][4])
	assert.Equal(t, "", rows[1][0])
	assert.Equal(t, "    #X rclcpp::publish /home/user/ros2/src/rclcpp/src/publisher.cpp:42 (librclcpp.so+0xX)", rows[1][4])
}

func TestParse_Files(t *testing.T) {
	opts := setup(t)

	require.NoError(t, opts.fs.MkdirAll("/out", 0755))
	out, err := cmdutils.ExecuteCommand(t, newWithOptions(opts), os.Stdin,
		"/logs/leak.log", "--csv", "/out/report.csv", "--xml", "/out/report.xml")
	require.NoError(t, err)
	assert.Empty(t, out)

	content, err := opts.fs.ReadFile("/out/report.csv")
	require.NoError(t, err)
	assert.Len(t, readCSV(t, string(content)), 2)

	content, err = opts.fs.ReadFile("/out/report.xml")
	require.NoError(t, err)
	var suite struct {
		Tests  int `xml:"tests,attr"`
		Errors int `xml:"errors,attr"`
	}
	require.NoError(t, xml.Unmarshal(content, &suite))
	assert.Equal(t, 1, suite.Tests)
	assert.Equal(t, 1, suite.Errors)
}

func TestParse_JSON(t *testing.T) {
	opts := setup(t)

	out, err := cmdutils.ExecuteCommand(t, newWithOptions(opts), os.Stdin, "/logs/race.log", "--json")
	require.NoError(t, err)

	var records []report.Record
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "data race", records[0].ErrorName)
	assert.Equal(t, 1, records[0].Count)
	assert.Empty(t, records[0].Sample)
	assert.NotContains(t, out, "sample_stack_trace")
}

func TestParse_SanitizerFilter(t *testing.T) {
	opts := setup(t)

	out, err := cmdutils.ExecuteCommand(t, newWithOptions(opts), os.Stdin, "/logs/leak.log", "/logs/race.log", "--sanitizer", "tsan")
	require.NoError(t, err)
	rows := readCSV(t, out)
	require.Len(t, rows, 3)
	assert.Equal(t, "data race", rows[1][1])
	assert.Equal(t, "data race", rows[2][1])

	_, err = cmdutils.ExecuteCommand(t, newWithOptions(setup(t)), os.Stdin, "/logs/leak.log", "--sanitizer", "msan")
	assert.Error(t, err)
}

func TestParse_NoErrors(t *testing.T) {
	opts := setup(t)

	out, err := cmdutils.ExecuteCommand(t, newWithOptions(opts), strings.NewReader("nothing to see\n"), "-")
	require.NoError(t, err)
	assert.Equal(t, "package,error_name,key,count", out)
	assert.Contains(t, logOutput.String(), "No sanitizer errors found")
}

func TestParse_MissingLog(t *testing.T) {
	opts := setup(t)

	_, err := cmdutils.ExecuteCommand(t, newWithOptions(opts), os.Stdin, "/logs/missing.log")
	require.Error(t, err)
	var silentErr *cmdutils.SilentError
	assert.True(t, errors.As(err, &silentErr))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_NoArgs(t *testing.T) {
	opts := setup(t)

	_, err := cmdutils.ExecuteCommand(t, newWithOptions(opts), os.Stdin)
	require.Error(t, err)
	var usageErr *cmdutils.IncorrectUsageError
	assert.True(t, errors.As(err, &usageErr))
}

func TestParse_InvalidNoisePattern(t *testing.T) {
	opts := setup(t)

	_, err := cmdutils.ExecuteCommand(t, newWithOptions(opts), os.Stdin, "/logs/leak.log", "--noise-pattern", "(unclosed")
	require.Error(t, err)
	assert.Contains(t, logOutput.String(), "invalid pattern")
}

func TestParse_ProjectPathMarker(t *testing.T) {
	opts := setup(t)

	// Both stack traces of a data race need a project frame
	out, err := cmdutils.ExecuteCommand(t, newWithOptions(opts), os.Stdin, "/logs/race.log", "--project-path-marker", "/src/rclcpp/src/executor")
	require.NoError(t, err)
	assert.Len(t, readCSV(t, out), 1)

	out, err = cmdutils.ExecuteCommand(t, newWithOptions(setup(t)), os.Stdin, "/logs/race.log", "--project-path-marker", "/rclcpp/src/")
	require.NoError(t, err)
	assert.Len(t, readCSV(t, out), 3)
}

func TestParse_ReadOnlyOutput(t *testing.T) {
	setup(t)
	opts := &options{fs: storage.NewReadOnlyFileSystem()}
	csvPath := filepath.Join(t.TempDir(), "report.csv")

	_, err := cmdutils.ExecuteCommand(t, newWithOptions(opts), strings.NewReader(raceLog), "-", "--csv", csvPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, syscall.EPERM)
	assert.NoFileExists(t, csvPath)
}

func TestParse_KeepColor(t *testing.T) {
	coloredLog := "\x1b[1m\x1b[31m==1==ERROR: LeakSanitizer: detected memory leaks\x1b[1m\x1b[0m\n" +
		"Direct leak of 4 byte(s) in 1 object(s) allocated from:\n" +
		"    #0 0x1 in leak /home/user/ros2/src/leak.cpp:5\n" +
		"SUMMARY: AddressSanitizer: 4 byte(s) leaked in 1 allocation(s).\n"

	out, err := cmdutils.ExecuteCommand(t, newWithOptions(setup(t)), strings.NewReader(coloredLog), "-")
	require.NoError(t, err)
	assert.Len(t, readCSV(t, out), 2)

	// The color codes end up in the prefix of the section, so it is
	// never finished
	out, err = cmdutils.ExecuteCommand(t, newWithOptions(setup(t)), strings.NewReader(coloredLog), "-", "--keep-color")
	require.NoError(t, err)
	assert.Len(t, readCSV(t, out), 1)
}
