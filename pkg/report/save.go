package report

import (
	"bytes"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// SaveOptions describes which report files are written by Save.
type SaveOptions struct {
	// The directory in which the report files are created
	OutputDir string
	// The report files are called <Name>_report.csv and <Name>_report.xml
	Name string

	CSV            bool
	XML            bool
	IncludeSamples bool
}

// Save writes the aggregate to the report files selected in opts and
// returns their paths.
func (a *Aggregate) Save(fs *afero.Afero, opts *SaveOptions) ([]string, error) {
	name := opts.Name
	if name == "" {
		name = "sanitizer"
	}

	if err := fs.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, errors.WithStack(err)
	}

	var paths []string
	if opts.CSV {
		var buf bytes.Buffer
		if err := a.WriteCSV(&buf, opts.IncludeSamples); err != nil {
			return nil, err
		}
		path := filepath.Join(opts.OutputDir, name+"_report.csv")
		if err := fs.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return nil, errors.WithStack(err)
		}
		paths = append(paths, path)
	}

	if opts.XML {
		var buf bytes.Buffer
		if err := a.WriteXML(&buf); err != nil {
			return nil, err
		}
		path := filepath.Join(opts.OutputDir, name+"_report.xml")
		if err := fs.WriteFile(path, buf.Bytes(), 0644); err != nil {
			return nil, errors.WithStack(err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}
