package root

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	collectCmd "code-intelligence.com/sanreport/internal/cmd/collect"
	initCmd "code-intelligence.com/sanreport/internal/cmd/init"
	parseCmd "code-intelligence.com/sanreport/internal/cmd/parse"
	"code-intelligence.com/sanreport/internal/cmdutils"
	"code-intelligence.com/sanreport/pkg/log"
)

var usageErrorPattern = regexp.MustCompile(`(accepts|requires).*arg\(s\)`)

func New(fs *afero.Afero) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sanreport",
		Short: "Count and deduplicate sanitizer errors in build and test logs",
		Long: `sanreport reads the output of AddressSanitizer, LeakSanitizer and
ThreadSanitizer from logs, in which the output of many processes can be
interleaved, and counts the errors per package, error type and source
location.`,
		// We are using our custom ErrSilent instead to support a more specific
		// error handling
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			err := cmdutils.Chdir()
			if err != nil {
				log.Error(err, err.Error())
				return cmdutils.ErrSilent
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false,
		"Show more verbose output, can be helpful for debugging problems")
	cmdutils.ViperMustBindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	rootCmd.PersistentFlags().StringP("directory", "C", "",
		"Change the directory before performing any operations")
	cmdutils.ViperMustBindPFlag("directory", rootCmd.PersistentFlags().Lookup("directory"))

	rootCmd.AddCommand(initCmd.New())
	rootCmd.AddCommand(parseCmd.New(fs))
	rootCmd.AddCommand(collectCmd.New(fs))

	return rootCmd
}

// Execute runs the root command and exits with a non-zero exit code if
// it fails. This is called by main.main().
func Execute(ctx context.Context, fs *afero.Afero) {
	rootCmd := New(fs)
	if cmd, err := rootCmd.ExecuteContextC(ctx); err != nil {

		// Errors that are not ErrSilent are not expected and we want to show their full stacktrace
		var silentErr *cmdutils.SilentError
		if !errors.As(err, &silentErr) {
			_, _ = fmt.Fprint(cmd.ErrOrStderr(), pterm.Style{pterm.Bold, pterm.FgRed}.Sprintf("%+v\n", err))
		}

		// We only want to print the usage message if an ErrIncorrectUsage
		// was returned or it's an error produced by cobra which was
		// caused by incorrect usage
		var usageErr *cmdutils.IncorrectUsageError
		if errors.As(err, &usageErr) ||
			strings.HasPrefix(err.Error(), "required flag") ||
			strings.HasPrefix(err.Error(), "unknown command") ||
			strings.HasPrefix(err.Error(), "invalid argument") ||
			usageErrorPattern.MatchString(err.Error()) {
			// Ensure that there is an extra newline between the error
			// and the usage message
			if !strings.HasSuffix(err.Error(), "\n") {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr())
			}
			_, _ = fmt.Fprintln(cmd.ErrOrStderr(), cmd.UsageString())
		}

		os.Exit(1)
	}
}
