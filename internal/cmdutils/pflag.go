package cmdutils

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"code-intelligence.com/sanreport/internal/config"
	"code-intelligence.com/sanreport/pkg/parser/sanitizer"
)

func ViperMustBindPFlag(key string, flag *pflag.Flag) {
	err := viper.BindPFlag(key, flag)
	if err != nil {
		panic(err)
	}
}

// AddFlags executes the specified Add*Flag functions and returns a
// function which binds all those flags to viper
func AddFlags(cmd *cobra.Command, funcs ...func(cmd *cobra.Command) func()) (bindFlags func()) { // nolint:nonamedreturns
	var bindFlagFuncs []func()
	for _, f := range funcs {
		bindFlagFunc := f(cmd)
		bindFlagFuncs = append(bindFlagFuncs, bindFlagFunc)
	}
	return func() {
		for _, f := range bindFlagFuncs {
			f()
		}
	}
}

var sanitizerShortNames = []string{"all", "asan", "tsan", "lsan"}

// sanitizerValue is a flag value which only accepts the short name of
// a supported sanitizer
type sanitizerValue string

func (s *sanitizerValue) String() string {
	return string(*s)
}

func (s *sanitizerValue) Set(value string) error {
	if _, ok := sanitizer.SanitizerForShortName(value); !ok || value == "" {
		return errors.Errorf("must be one of %s", strings.Join(sanitizerShortNames, ", "))
	}
	*s = sanitizerValue(value)
	return nil
}

func (s *sanitizerValue) Type() string {
	return "sanitizer"
}

func AddSanitizerFlag(cmd *cobra.Command) func() {
	value := sanitizerValue("all")
	cmd.Flags().Var(&value, "sanitizer",
		"Only count errors reported by this `sanitizer`, one of "+strings.Join(sanitizerShortNames, ", ")+".")
	return func() {
		ViperMustBindPFlag("sanitizer", cmd.Flags().Lookup("sanitizer"))
	}
}

func AddProjectPathMarkerFlag(cmd *cobra.Command) func() {
	cmd.Flags().String("project-path-marker", sanitizer.DefaultProjectPathMarker,
		"The `path` segment which identifies stack frames from the project's source files.\n"+
			"Only such frames are used as location of an error.")
	return func() {
		ViperMustBindPFlag("project-path-marker", cmd.Flags().Lookup("project-path-marker"))
	}
}

func AddNoisePatternFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringArray("noise-pattern", nil,
		"A regular `expression` for stack frames which are never used as location of an error.\n"+
			"Replaces the default patterns for frames of the sanitizer runtimes.\n"+
			"This flag can be used multiple times.")
	viper.SetDefault("noise-patterns", sanitizer.DefaultNoisePatterns)
	return func() {
		ViperMustBindPFlag("noise-patterns", cmd.Flags().Lookup("noise-pattern"))
	}
}

func AddSamplesFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("samples", false,
		"Add the stack trace of the first occurrence of every error to the CSV output.")
	return func() {
		ViperMustBindPFlag("samples", cmd.Flags().Lookup("samples"))
	}
}

func AddKeepColorFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("keep-color", false,
		"Don't remove ANSI color codes from the logs before parsing them.")
	return func() {
		ViperMustBindPFlag("keep-color", cmd.Flags().Lookup("keep-color"))
	}
}

func AddLogDirFlag(cmd *cobra.Command) func() {
	cmd.Flags().String("log-dir", config.DefaultLogDir,
		"The `directory` which is searched for job logs (stdout_stderr.log).")
	return func() {
		ViperMustBindPFlag("log-dir", cmd.Flags().Lookup("log-dir"))
	}
}

func AddOutputDirFlag(cmd *cobra.Command) func() {
	cmd.Flags().StringP("output-dir", "o", "",
		"The `directory` to which the reports are written.\n"+
			"Defaults to the current working directory.")
	return func() {
		ViperMustBindPFlag("output-dir", cmd.Flags().Lookup("output-dir"))
	}
}

func AddPrintJSONFlag(cmd *cobra.Command) func() {
	cmd.Flags().Bool("json", false, "Print output as JSON")
	return func() {
		ViperMustBindPFlag("print-json", cmd.Flags().Lookup("json"))
	}
}
