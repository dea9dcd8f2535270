package cmdutils

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// ExecuteCommand runs cmd with the given args and input and returns
// everything it wrote to its stdout and stderr.
func ExecuteCommand(t *testing.T, cmd *cobra.Command, in io.Reader, args ...string) (string, error) {
	t.Helper()

	cmd.SetIn(in)
	cmd.SetArgs(args)

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	err := cmd.Execute()
	return strings.TrimSpace(buf.String()), err
}
