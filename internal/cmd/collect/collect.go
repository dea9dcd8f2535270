package collect

import (
	"context"
	"runtime"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"code-intelligence.com/sanreport/internal/cmdutils"
	"code-intelligence.com/sanreport/internal/config"
	"code-intelligence.com/sanreport/pkg/joblog"
	"code-intelligence.com/sanreport/pkg/log"
	"code-intelligence.com/sanreport/pkg/parser/sanitizer"
	"code-intelligence.com/sanreport/pkg/report"
	"code-intelligence.com/sanreport/pkg/storage"
	"code-intelligence.com/sanreport/util/fileutil"
)

type options struct {
	config.Config `mapstructure:",squash"`

	fs *afero.Afero
}

func (opts *options) Validate() error {
	err := opts.Config.Validate()
	if err != nil {
		log.Error(err)
		return cmdutils.WrapSilentError(err)
	}

	if !fileutil.IsDir(opts.LogDir) {
		err := errors.Errorf("Log directory %s does not exist", opts.LogDir)
		log.Error(err)
		return cmdutils.WrapSilentError(err)
	}

	return nil
}

type collectCmd struct {
	*cobra.Command
	opts *options
}

func New(fs *afero.Afero) *cobra.Command {
	return newWithOptions(&options{fs: fs})
}

func newWithOptions(opts *options) *cobra.Command {
	var bindFlags func()
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Create sanitizer reports from all job logs",
		Long: `Searches the log directory for job logs (stdout_stderr.log files),
counts the sanitizer errors in all of them and writes the counts to
<name>_report.csv and <name>_report.xml in the output directory. The
name is 'sanitizer', or the short name of the sanitizer selected via
--sanitizer.

Errors are attributed to the package named by the job log's directory,
unless the log contains 'Starting >>> <package>' markers.`,
		Args: cobra.NoArgs,
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

			return opts.Validate()
		},
		RunE: func(c *cobra.Command, args []string) error {
			cmd := collectCmd{Command: c, opts: opts}
			return cmd.run()
		},
	}

	bindFlags = cmdutils.AddFlags(cmd,
		cmdutils.AddLogDirFlag,
		cmdutils.AddKeepColorFlag,
		cmdutils.AddNoisePatternFlag,
		cmdutils.AddOutputDirFlag,
		cmdutils.AddProjectPathMarkerFlag,
		cmdutils.AddSamplesFlag,
		cmdutils.AddSanitizerFlag,
	)

	return cmd
}

func (c *collectCmd) run() error {
	// Check the noise patterns once instead of failing in every job
	_, err := sanitizer.NewParser(c.opts.ParserOptions())
	if err != nil {
		log.Error(err)
		return cmdutils.WrapSilentError(err)
	}

	jobs, err := joblog.Find(c.opts.LogDir)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		log.Warnf("No job logs found in %s", fileutil.PrettifyPath(c.opts.LogDir))
	}
	log.Debugf("Found %d job logs in %s", len(jobs), c.opts.LogDir)

	ctx := c.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	aggregate, err := c.parseJobs(ctx, jobs)
	if err != nil {
		return err
	}

	outputDir, err := storage.GetOutDir(c.opts.OutputDir, c.opts.fs)
	if err != nil {
		log.Errorf(err, "Failed to create output directory: %v", err.Error())
		return cmdutils.WrapSilentError(err)
	}
	paths, err := aggregate.Save(c.opts.fs, &report.SaveOptions{
		OutputDir:      outputDir,
		Name:           c.reportName(),
		CSV:            true,
		XML:            true,
		IncludeSamples: c.opts.Samples,
	})
	if err != nil {
		return err
	}
	for _, path := range paths {
		log.Successf("Report written to %s", fileutil.PrettifyPath(path))
	}

	if aggregate.Len() == 0 {
		log.Success("No sanitizer errors found")
		return nil
	}
	log.Warnf("Found %d sanitizer errors at %d locations in %d job logs", aggregate.Total(), aggregate.Len(), len(jobs))
	return log.Table(aggregate.SummaryTable())
}

// parseJobs parses the job logs concurrently, with one parser per job,
// and merges the results in the order of the jobs.
func (c *collectCmd) parseJobs(ctx context.Context, jobs []joblog.Job) (*report.Aggregate, error) {
	aggregates := make([]*report.Aggregate, len(jobs))
	sem := semaphore.NewWeighted(int64(runtime.NumCPU()))
	routines, routinesCtx := errgroup.WithContext(ctx)

	for i, job := range jobs {
		i, job := i, job
		err := sem.Acquire(routinesCtx, 1)
		if err != nil {
			// The context was canceled, either by the caller or because
			// parsing another job failed
			break
		}
		routines.Go(func() error {
			defer sem.Release(1)
			aggregate, err := c.parseJob(routinesCtx, job)
			aggregates[i] = aggregate
			return err
		})
	}

	err := routines.Wait()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	merged := report.NewAggregate()
	for _, aggregate := range aggregates {
		merged.Merge(aggregate)
	}
	return merged, nil
}

func (c *collectCmd) parseJob(ctx context.Context, job joblog.Job) (*report.Aggregate, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	p, err := sanitizer.NewParser(c.opts.ParserOptions())
	if err != nil {
		return nil, err
	}
	p.SetPackage(job.ID)

	r, err := storage.OpenLog(c.opts.fs, job.LogPath, nil)
	if err != nil {
		return nil, errors.WithMessagef(err, "Failed to open log of job %s", job.ID)
	}
	defer r.Close()

	err = p.Parse(r)
	if err != nil {
		return nil, errors.WithMessagef(err, "Failed to parse log of job %s", job.ID)
	}
	log.Debugf("Job %s: %d sanitizer reports", job.ID, p.NumSections())
	return p.Aggregate(), nil
}

func (c *collectCmd) reportName() string {
	if c.opts.Sanitizer == "" || c.opts.Sanitizer == "all" {
		return "sanitizer"
	}
	return c.opts.Sanitizer
}
