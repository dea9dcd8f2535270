package init

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"code-intelligence.com/sanreport/internal/cmdutils"
	"code-intelligence.com/sanreport/internal/config"
	"code-intelligence.com/sanreport/pkg/log"
	"code-intelligence.com/sanreport/util/fileutil"
)

func New() *cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sanreport config file",
		Long: `This command creates a 'sanreport.yaml' config file with the default
settings in the current working directory. The settings apply to all
commands run in this directory or any of its subdirectories.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}

	return initCmd
}

func run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return errors.WithStack(err)
	}
	log.Debugf("Using current working directory: %s", cwd)

	configpath, err := config.CreateProjectConfig(cwd)
	if err != nil {
		// explicitly inform the user about an existing config file
		if errors.Is(err, os.ErrExist) && configpath != "" {
			log.Warnf("Config already exists in %s", fileutil.PrettifyPath(configpath))
			return cmdutils.WrapSilentError(err)
		}
		log.Error(err, "Failed to create config")
		return cmdutils.WrapSilentError(err)
	}
	log.Successf("Configuration saved in %s", fileutil.PrettifyPath(configpath))

	log.Print(`
Use 'sanreport collect' to create reports from the job logs in log/latest_test.`)
	return nil
}
