package sanitizer

import (
	"regexp"
	"strings"
	"unicode"

	"code-intelligence.com/sanreport/pkg/log"
	"code-intelligence.com/sanreport/util/regexutil"
)

var (
	// Examples for matching lines:
	// 2: ==17726==ERROR: LeakSanitizer: detected memory leaks
	// 27: [test_requester-2] WARNING: ThreadSanitizer: data race (pid=19699)
	sectionStartPattern = regexp.MustCompile(`^(?P<prefix>.*?)(==\d+==|)(WARNING|ERROR):.*Sanitizer:.*`)
	sectionEndPattern   = regexp.MustCompile(`^(?P<prefix>.*)(SUMMARY: .*Sanitizer: .*)$`)

	packageStartPattern = regexp.MustCompile(`^.*Starting >>> (?P<package>\S+).*$`)
	packageEndPattern   = regexp.MustCompile(`^.*Finished <<< .*$`)
)

// An Assembler reconstructs sanitizer sections from a log in which the
// output of several processes is interleaved line by line. The lines of
// each process share a prefix (e.g. "27: [test_requester-2] "), which
// is used to tell the sections apart.
type Assembler struct {
	pkg string
	// The lines collected so far for each open section, by prefix
	open map[string][]string
}

func NewAssembler() *Assembler {
	return &Assembler{open: map[string][]string{}}
}

// SetPackage sets the package which sections finished from now on are
// attributed to. An empty package means that no package is active.
func (a *Assembler) SetPackage(pkg string) {
	a.pkg = pkg
}

// Open returns the number of sections which were started but not
// finished yet.
func (a *Assembler) Open() int {
	return len(a.open)
}

// AddLine processes the next line of the log and returns the section
// which it completes, or nil.
func (a *Assembler) AddLine(line string) *Section {
	line = strings.TrimRightFunc(line, unicode.IsSpace)

	// A new sanitizer section starts (or restarts) collecting lines
	// under its prefix
	if matches, found := regexutil.FindNamedGroupsMatch(sectionStartPattern, line); found {
		prefix := matches["prefix"]
		if _, exists := a.open[prefix]; exists {
			log.Debugf("Discarding unfinished sanitizer section with prefix %q", prefix)
		}
		a.open[prefix] = nil
	}

	if prefix, ok := a.matchingPrefix(line); ok {
		a.open[prefix] = append(a.open[prefix], line[len(prefix):])
	}

	if matches, found := regexutil.FindNamedGroupsMatch(sectionEndPattern, line); found {
		return a.closeSection(matches["prefix"])
	}

	if matches, found := regexutil.FindNamedGroupsMatch(packageStartPattern, line); found {
		a.pkg = matches["package"]
		return nil
	}
	if packageEndPattern.MatchString(line) {
		a.pkg = ""
	}

	return nil
}

// matchingPrefix returns the longest prefix of an open section which
// the line starts with.
func (a *Assembler) matchingPrefix(line string) (string, bool) {
	longest := ""
	found := false
	for prefix := range a.open {
		if !strings.HasPrefix(line, prefix) {
			continue
		}
		if !found || len(prefix) > len(longest) {
			longest = prefix
			found = true
		}
	}
	return longest, found
}

// closeSection attributes the section to the package which is active
// when its summary is printed.
func (a *Assembler) closeSection(prefix string) *Section {
	lines, ok := a.open[prefix]
	if !ok {
		// A summary without a start, e.g. because the log was
		// truncated at the beginning
		return nil
	}
	delete(a.open, prefix)

	section, err := newSection(a.pkg, lines)
	if err != nil {
		log.Debugf("Ignoring sanitizer section: %v", err)
		return nil
	}
	return section
}
