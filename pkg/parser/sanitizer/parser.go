package sanitizer

import (
	"bufio"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/pterm/pterm"

	"code-intelligence.com/sanreport/pkg/log"
	"code-intelligence.com/sanreport/pkg/report"
	"code-intelligence.com/sanreport/util/regexutil"
)

type Options struct {
	// The path segment which identifies frames from the project's own
	// source files. Defaults to DefaultProjectPathMarker.
	ProjectPathMarker string
	// Regular expressions for frames which are never used as a key.
	// Defaults to DefaultNoisePatterns if nil.
	NoisePatterns []string
	// Only sections printed by this sanitizer (e.g. "ThreadSanitizer")
	// are counted. All sections are counted if empty.
	Sanitizer string
	// Sanitizer reports can be colorized. Unless KeepColor is set, the
	// ANSI escapes are removed before the lines are parsed.
	KeepColor bool
}

// A Parser turns the lines of a log into counted sanitizer errors.
// A Parser must not be used concurrently, use one Parser per log
// instead and merge their aggregates.
type Parser struct {
	*Options

	assembler *Assembler
	extractor *KeyExtractor
	aggregate *report.Aggregate

	numSections int
}

func NewParser(options *Options) (*Parser, error) {
	if options == nil {
		options = &Options{}
	}

	patterns := options.NoisePatterns
	if patterns == nil {
		patterns = DefaultNoisePatterns
	}
	noisePatterns, err := regexutil.CompileAll(patterns)
	if err != nil {
		return nil, err
	}

	return &Parser{
		Options:   options,
		assembler: NewAssembler(),
		extractor: NewKeyExtractor(options.ProjectPathMarker, noisePatterns),
		aggregate: report.NewAggregate(),
	}, nil
}

// MustNewParser is like NewParser but panics if the noise patterns are
// invalid.
func MustNewParser(options *Options) *Parser {
	p, err := NewParser(options)
	if err != nil {
		panic(err)
	}
	return p
}

// SetPackage sets the package to which following errors are attributed.
// Package markers in the log ("Starting >>> <package>") override it.
func (p *Parser) SetPackage(pkg string) {
	p.assembler.SetPackage(pkg)
}

// AddLine parses the next line of the log.
func (p *Parser) AddLine(line string) {
	if !p.KeepColor {
		line = pterm.RemoveColorFromString(line)
	}

	section := p.assembler.AddLine(line)
	if section == nil {
		return
	}
	p.addSection(section)
}

// Parse parses all lines read from input.
func (p *Parser) Parse(input io.Reader) error {
	// Lines are not limited in length, sanitizer output can contain C++
	// symbols with huge template argument lists
	reader := bufio.NewReader(input)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(line, "\n")
			p.AddLine(strings.TrimSuffix(line, "\r"))
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.WithStack(err)
		}
	}

	if open := p.assembler.Open(); open > 0 {
		log.Debugf("%d sanitizer section(s) were not finished", open)
	}
	return nil
}

func (p *Parser) addSection(section *Section) {
	if p.Sanitizer != "" && section.Sanitizer != p.Sanitizer {
		log.Debugf("Skipping %s report: %s", section.Sanitizer, section.ErrorName)
		return
	}
	p.numSections++

	kind := KindOf(section.ErrorName)
	for _, subSection := range section.SubSections {
		for _, trace := range p.extractor.Extract(subSection, kind) {
			key := report.Key{
				Package:   section.Package,
				ErrorName: section.ErrorName,
				Location:  trace.Key,
			}
			p.aggregate.Add(key, trace.Sample())
		}
	}
}

// NumSections returns the number of sanitizer sections which were
// parsed and counted so far.
func (p *Parser) NumSections() int {
	return p.numSections
}

// Aggregate returns the counts collected so far.
func (p *Parser) Aggregate() *report.Aggregate {
	return p.aggregate
}

// CSV returns the collected counts as CSV.
func (p *Parser) CSV(includeSamples bool) (string, error) {
	return p.aggregate.CSV(includeSamples)
}

// XML returns the collected counts as pretty-printed XML.
func (p *Parser) XML() (string, error) {
	return p.aggregate.XML()
}

// SanitizerForShortName maps the short sanitizer names used on the
// command line to the names printed in sanitizer reports.
func SanitizerForShortName(name string) (string, bool) {
	switch name {
	case "", "all":
		return "", true
	case "asan":
		return "AddressSanitizer", true
	case "tsan":
		return "ThreadSanitizer", true
	case "lsan":
		return "LeakSanitizer", true
	}
	return "", false
}
