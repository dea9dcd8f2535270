package parse

import (
	"fmt"
	"io"
	"os"

	"github.com/hokaccha/go-prettyjson"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"code-intelligence.com/sanreport/internal/cmdutils"
	"code-intelligence.com/sanreport/internal/config"
	"code-intelligence.com/sanreport/pkg/log"
	"code-intelligence.com/sanreport/pkg/parser/sanitizer"
	"code-intelligence.com/sanreport/pkg/report"
	"code-intelligence.com/sanreport/pkg/storage"
	"code-intelligence.com/sanreport/util/stringutil"
)

type options struct {
	config.Config `mapstructure:",squash"`
	PrintJSON     bool `mapstructure:"print-json"`

	Package string   `mapstructure:"-"`
	CSVPath string   `mapstructure:"-"`
	XMLPath string   `mapstructure:"-"`
	Logs    []string `mapstructure:"-"`

	fs *afero.Afero
}

func (opts *options) Validate() error {
	err := opts.Config.Validate()
	if err != nil {
		log.Error(err)
		return cmdutils.WrapSilentError(err)
	}

	if len(opts.Logs) == 0 {
		err := errors.New("No log file specified, use '-' to read from stdin")
		return cmdutils.WrapIncorrectUsageError(err)
	}

	return nil
}

type parseCmd struct {
	*cobra.Command
	opts *options
}

func New(fs *afero.Afero) *cobra.Command {
	return newWithOptions(&options{fs: fs})
}

func newWithOptions(opts *options) *cobra.Command {
	var bindFlags func()
	cmd := &cobra.Command{
		Use:   "parse [flags] <log file|->...",
		Short: "Count the sanitizer errors in log files",
		Long: `Parses the given log files (or stdin for '-') and counts the sanitizer
errors found in them by package, error type and location.

The location of an error is the first frame of its stack trace which is
from a source file of the project, as identified by the
--project-path-marker. Lines of the form 'Starting >>> <package>' and
'Finished <<< <package>' in the log set the package of the errors
between them, the --package flag sets the package of all other errors.

By default the counts are printed as CSV to stdout. Use --csv and --xml
to write them to files instead ('-' is stdout), or --json to print them
as JSON.`,
		Args: cobra.ArbitraryArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind viper keys to flags. We can't do this in the New
			// function, because that would re-bind viper keys which
			// were bound to the flags of other commands before.
			bindFlags()

			err := config.FindAndParseProjectConfig(opts)
			if err != nil {
				log.Errorf(err, "Failed to parse %s: %v", config.ProjectConfigFile, err.Error())
				return cmdutils.WrapSilentError(err)
			}

			opts.Logs = args
			return opts.Validate()
		},
		RunE: func(c *cobra.Command, args []string) error {
			cmd := parseCmd{Command: c, opts: opts}
			return cmd.run()
		},
	}

	bindFlags = cmdutils.AddFlags(cmd,
		cmdutils.AddKeepColorFlag,
		cmdutils.AddNoisePatternFlag,
		cmdutils.AddPrintJSONFlag,
		cmdutils.AddProjectPathMarkerFlag,
		cmdutils.AddSamplesFlag,
		cmdutils.AddSanitizerFlag,
	)
	cmd.Flags().StringVarP(&opts.Package, "package", "p", "",
		"The `package` of errors outside of 'Starting >>>' and 'Finished <<<' markers")
	cmd.Flags().StringVar(&opts.CSVPath, "csv", "", "Write the counts as CSV to `file`")
	cmd.Flags().StringVar(&opts.XMLPath, "xml", "", "Write the counts as JUnit-style XML to `file`")

	return cmd
}

func (c *parseCmd) run() error {
	p, err := sanitizer.NewParser(c.opts.ParserOptions())
	if err != nil {
		log.Error(err)
		return cmdutils.WrapSilentError(err)
	}

	for _, path := range c.opts.Logs {
		err = c.parseLog(p, path)
		if err != nil {
			return err
		}
	}
	log.Debugf("Found %d sanitizer reports", p.NumSections())

	aggregate := p.Aggregate()
	err = c.printOutputs(aggregate)
	if err != nil {
		return err
	}

	return printSummary(aggregate)
}

func (c *parseCmd) parseLog(p *sanitizer.Parser, path string) error {
	r, err := storage.OpenLog(c.opts.fs, path, c.InOrStdin())
	if err != nil {
		log.Errorf(err, "Failed to open log: %v", err.Error())
		return cmdutils.WrapSilentError(err)
	}
	defer r.Close()

	// Every log starts without package markers
	p.SetPackage(c.opts.Package)
	return p.Parse(r)
}

func (c *parseCmd) printOutputs(aggregate *report.Aggregate) error {
	if c.opts.CSVPath == "" && c.opts.XMLPath == "" && !c.opts.PrintJSON {
		return aggregate.WriteCSV(c.OutOrStdout(), c.opts.Samples)
	}

	if c.opts.CSVPath != "" {
		err := c.writeOutput(c.opts.CSVPath, func(w io.Writer) error {
			return aggregate.WriteCSV(w, c.opts.Samples)
		})
		if err != nil {
			return err
		}
	}

	if c.opts.XMLPath != "" {
		err := c.writeOutput(c.opts.XMLPath, aggregate.WriteXML)
		if err != nil {
			return err
		}
	}

	if c.opts.PrintJSON {
		return c.printJSON(aggregate.Records())
	}
	return nil
}

func (c *parseCmd) writeOutput(path string, write func(w io.Writer) error) error {
	if path == storage.StdinPath {
		return write(c.OutOrStdout())
	}

	f, err := c.opts.fs.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	err = write(f)
	if err != nil {
		_ = f.Close()
		return err
	}
	err = f.Close()
	if err != nil {
		return errors.WithStack(err)
	}
	log.Successf("Report written to %s", path)
	return nil
}

func (c *parseCmd) printJSON(records []*report.Record) error {
	if !c.opts.Samples {
		withoutSamples := make([]*report.Record, len(records))
		for i, r := range records {
			withoutSamples[i] = &report.Record{Key: r.Key, Count: r.Count}
		}
		records = withoutSamples
	}

	var jsonString string
	// Print with color if the output stream is a TTY
	if file, ok := c.OutOrStdout().(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		bytes, err := prettyjson.Marshal(records)
		if err != nil {
			return errors.WithStack(err)
		}
		jsonString = string(bytes)
	} else {
		var err error
		jsonString, err = stringutil.ToJsonString(records)
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(c.OutOrStdout(), jsonString)
	return errors.WithStack(err)
}

func printSummary(aggregate *report.Aggregate) error {
	if aggregate.Len() == 0 {
		log.Success("No sanitizer errors found")
		return nil
	}

	log.Warnf("Found %d sanitizer errors at %d locations", aggregate.Total(), aggregate.Len())
	return log.Table(aggregate.SummaryTable())
}
