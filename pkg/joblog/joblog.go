// Package joblog locates the captured output of build and test jobs.
// Every job writes its combined stdout and stderr to a file named
// StdoutStderrLogFilename in a directory of its own, e.g.
//
//	log/latest_test/rclcpp/stdout_stderr.log
package joblog

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/mattn/go-zglob"
	"github.com/pkg/errors"
)

const StdoutStderrLogFilename = "stdout_stderr.log"

// A Job is a single job whose log was found below a base directory.
type Job struct {
	// ID is the directory of the log relative to the base directory,
	// with forward slashes. For per-package jobs it's the package name.
	ID      string
	LogPath string
}

// LogDir returns the log directory of the job in base.
func LogDir(base, job string) string {
	return filepath.Join(base, filepath.FromSlash(job))
}

// LogPath returns the path of the log file of the job in base.
func LogPath(base, job string) string {
	return filepath.Join(LogDir(base, job), StdoutStderrLogFilename)
}

// Find returns all jobs with a log file below base, sorted by ID. A log
// file directly in base has the ID ".". If there are no log files or
// base doesn't exist, no jobs are returned.
func Find(base string) ([]Job, error) {
	matches, err := zglob.Glob(filepath.Join(base, "**", StdoutStderrLogFilename))
	if err != nil {
		// zglob reports that nothing matched as os.ErrNotExist
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}

	jobs := make([]Job, 0, len(matches))
	for _, match := range matches {
		rel, err := filepath.Rel(base, filepath.Dir(match))
		if err != nil {
			return nil, errors.WithStack(err)
		}
		jobs = append(jobs, Job{ID: filepath.ToSlash(rel), LogPath: match})
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].ID < jobs[j].ID
	})
	return jobs, nil
}
