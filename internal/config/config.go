package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"code-intelligence.com/sanreport/pkg/parser/sanitizer"
	"code-intelligence.com/sanreport/util/fileutil"
)

const ProjectConfigFile = "sanreport.yaml"

const DefaultLogDir = "log/latest_test"

//go:embed sanreport.yaml.tmpl
var projectConfigTemplate string

// Config holds the settings which can be set in the project config
// file, via SANREPORT_* environment variables or via flags.
type Config struct {
	ProjectPathMarker string   `mapstructure:"project-path-marker"`
	NoisePatterns     []string `mapstructure:"noise-patterns"`
	Samples           bool     `mapstructure:"samples"`
	KeepColor         bool     `mapstructure:"keep-color"`
	Sanitizer         string   `mapstructure:"sanitizer"`
	LogDir            string   `mapstructure:"log-dir"`
	OutputDir         string   `mapstructure:"output-dir"`
}

func (c *Config) Validate() error {
	if _, ok := sanitizer.SanitizerForShortName(c.Sanitizer); !ok {
		return errors.Errorf("Invalid sanitizer %q, must be one of all, asan, tsan or lsan", c.Sanitizer)
	}
	return nil
}

// ParserOptions returns the options for parsing logs with these
// settings. The config must be valid.
func (c *Config) ParserOptions() *sanitizer.Options {
	tool, _ := sanitizer.SanitizerForShortName(c.Sanitizer)
	return &sanitizer.Options{
		ProjectPathMarker: c.ProjectPathMarker,
		NoisePatterns:     c.NoisePatterns,
		Sanitizer:         tool,
		KeepColor:         c.KeepColor,
	}
}

// CreateProjectConfig creates a new project config in the given directory
func CreateProjectConfig(configDir string) (string, error) {
	// try to open the target file, returns error if already exists
	configpath := filepath.Join(configDir, ProjectConfigFile)
	f, err := os.OpenFile(configpath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return configpath, errors.WithStack(err)
		}
		return "", errors.WithStack(err)
	}
	defer f.Close()

	values := struct {
		LastUpdated       string
		ProjectPathMarker string
		NoisePatterns     []string
	}{
		LastUpdated:       time.Now().Format("2006-01-02"),
		ProjectPathMarker: sanitizer.DefaultProjectPathMarker,
		NoisePatterns:     sanitizer.DefaultNoisePatterns,
	}

	t, err := template.New("project_config").Parse(projectConfigTemplate)
	if err != nil {
		return "", errors.WithStack(err)
	}
	if err = t.Execute(f, values); err != nil {
		return "", errors.WithStack(err)
	}

	return configpath, nil
}

// FindAndParseProjectConfig unmarshals the viper settings into opts,
// including those from the project config file if there is one.
func FindAndParseProjectConfig(opts interface{}) error {
	configDir, err := FindConfigDir()
	if errors.Is(err, os.ErrNotExist) {
		// The config file is optional
		configDir = ""
	} else if err != nil {
		return err
	}

	return ParseProjectConfig(configDir, opts)
}

// ParseProjectConfig reads the config file in configDir and unmarshals
// all viper settings into opts. If configDir is empty, only flags,
// environment variables and defaults are used.
func ParseProjectConfig(configDir string, opts interface{}) error {
	if configDir != "" {
		viper.SetConfigFile(filepath.Join(configDir, ProjectConfigFile))
		err := viper.ReadInConfig()
		if err != nil {
			return errors.WithStack(err)
		}
	}

	err := viper.Unmarshal(opts)
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// FindConfigDir returns the closest directory, starting from the
// current working directory, which contains a project config file.
func FindConfigDir() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", errors.WithStack(err)
	}
	configFileExists, err := fileutil.Exists(filepath.Join(dir, ProjectConfigFile))
	if err != nil {
		return "", err
	}
	for !configFileExists {
		if dir == filepath.Dir(dir) {
			err := fmt.Errorf("no %s in the current or any of the parent directories: %w", ProjectConfigFile, os.ErrNotExist)
			return "", errors.WithStack(err)
		}
		dir = filepath.Dir(dir)
		configFileExists, err = fileutil.Exists(filepath.Join(dir, ProjectConfigFile))
		if err != nil {
			return "", err
		}
	}

	return dir, nil
}
