package report

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, s string) [][]string {
	t.Helper()

	rows, err := csv.NewReader(strings.NewReader(s)).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestAggregate_CSV(t *testing.T) {
	a := NewAggregate()
	a.Add(raceKey, "")
	a.Add(raceKey, "")
	a.Add(leakKey, "")

	out, err := a.CSV(false)
	require.NoError(t, err)

	rows := readCSV(t, out)
	assert.Equal(t, [][]string{
		{"package", "error_name", "key", "count"},
		{"rcl", "data race", "rcl_init /home/user/ros2/src/rcl/init.c:83", "2"},
		{"rclcpp", "detected memory leaks", "rclcpp::Node::Node /home/user/ros2/src/node.cpp:12", "1"},
	}, rows)
}

func TestAggregate_CSVWithSamples(t *testing.T) {
	sample := "    #X 0xX in foo /home/user/ros2/src/a.c:1\n    #X 0xX in bar, baz \"quoted\""
	a := NewAggregate()
	a.Add(raceKey, sample)

	out, err := a.CSV(true)
	require.NoError(t, err)

	rows := readCSV(t, out)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"package", "error_name", "key", "count", "sample_stack_trace"}, rows[0])
	assert.Equal(t, sample, rows[1][4])
}

func TestAggregate_CSVEmpty(t *testing.T) {
	out, err := NewAggregate().CSV(true)
	require.NoError(t, err)
	assert.Equal(t, "package,error_name,key,count,sample_stack_trace\n", out)
}

func TestAggregate_CSVHeaderNotModified(t *testing.T) {
	_, err := NewAggregate().CSV(true)
	require.NoError(t, err)
	assert.Equal(t, []string{"package", "error_name", "key", "count"}, csvHeader)
}
