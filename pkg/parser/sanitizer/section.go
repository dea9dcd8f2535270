package sanitizer

import (
	"regexp"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"

	"code-intelligence.com/sanreport/util/regexutil"
)

var (
	// The error name follows "Sanitizer: " and ends before any
	// parenthesis or address, e.g. "lock-order-inversion" in
	//
	//    WARNING: ThreadSanitizer: lock-order-inversion (potential deadlock) (pid=19699)
	errorNamePattern = regexp.MustCompile(`^.*Sanitizer: (?P<error_name>.+?)( \(| 0x[0-9a-fA-F]+|\s*$)`)
	toolNamePattern  = regexp.MustCompile(`(?P<tool>\w*Sanitizer):`)
)

// A Section is a complete sanitizer report, from the line which starts
// it ("WARNING: ThreadSanitizer: ..." or "ERROR: AddressSanitizer: ...")
// up to and including the "SUMMARY: ..." line, with the log prefix of
// each line removed.
type Section struct {
	Package     string
	ErrorName   string
	Sanitizer   string
	Lines       []string
	SubSections []*SubSection
}

// A SubSection is a block of lines inside a section which starts with a
// line that isn't indented. The header, every "Direct leak of ..."
// block and the summary each form their own sub-section.
type SubSection struct {
	Lines       []string
	MaskedLines []string
}

func newSection(pkg string, lines []string) (*Section, error) {
	if len(lines) == 0 {
		return nil, errors.New("empty sanitizer section")
	}

	matches, found := regexutil.FindNamedGroupsMatch(errorNamePattern, lines[0])
	if !found {
		return nil, errors.Errorf("no error name in sanitizer section header: %q", lines[0])
	}

	var tool string
	if toolMatches, found := regexutil.FindNamedGroupsMatch(toolNamePattern, lines[0]); found {
		tool = toolMatches["tool"]
	}

	return &Section{
		Package:     pkg,
		ErrorName:   matches["error_name"],
		Sanitizer:   tool,
		Lines:       lines,
		SubSections: splitSubSections(lines),
	}, nil
}

// splitSubSections starts a new sub-section at every line which begins
// with a non-whitespace character. Empty lines stay in the current
// sub-section.
func splitSubSections(lines []string) []*SubSection {
	var subSections []*SubSection
	var current []string

	flush := func() {
		subSections = append(subSections, &SubSection{
			Lines:       current,
			MaskedLines: maskLines(current),
		})
		current = nil
	}

	for _, line := range lines {
		if startsUnindented(line) && len(current) > 0 {
			flush()
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		flush()
	}

	return subSections
}

func startsUnindented(line string) bool {
	if line == "" {
		return false
	}
	r, _ := utf8.DecodeRuneInString(line)
	return !unicode.IsSpace(r)
}
