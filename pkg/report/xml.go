package report

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
)

const xmlSuiteName = "sanitizer_report"

type xmlSuite struct {
	XMLName xml.Name  `xml:"testsuite"`
	Name    string    `xml:"name,attr"`
	Tests   int       `xml:"tests,attr"`
	Errors  int       `xml:"errors,attr"`
	Cases   []xmlCase `xml:"testcase"`
}

type xmlCase struct {
	Name    string     `xml:"name,attr"`
	Errors  int        `xml:"errors,attr"`
	Entries []xmlError `xml:"error"`
}

type xmlError struct {
	Type     string `xml:"type,attr"`
	Location string `xml:"location,attr"`
	Count    int    `xml:"count,attr"`
	// Escaped by escapeXMLText
	Sample string `xml:",innerxml"`
}

func (a *Aggregate) xmlTree() *xmlSuite {
	packages := a.Packages()
	totals := a.PackageTotals()

	suite := &xmlSuite{
		Name:   xmlSuiteName,
		Tests:  len(packages),
		Errors: a.Total(),
		Cases:  make([]xmlCase, len(packages)),
	}
	index := make(map[string]int, len(packages))
	for i, pkg := range packages {
		suite.Cases[i] = xmlCase{Name: CleanXMLString(pkg), Errors: totals[pkg]}
		index[pkg] = i
	}

	for _, r := range a.Records() {
		c := &suite.Cases[index[r.Package]]
		c.Entries = append(c.Entries, xmlError{
			Type:     CleanXMLString(r.ErrorName),
			Location: CleanXMLString(r.Location),
			Count:    r.Count,
			Sample:   escapeXMLText(CleanXMLString(r.Sample)),
		})
	}

	return suite
}

// escapeXMLText escapes s for use as character data. Unlike
// xml.EscapeText, newlines are kept so that multi-line stack traces
// stay readable in the report.
func escapeXMLText(s string) string {
	return xmlTextEscaper.Replace(s)
}

var xmlTextEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// WriteXML writes the records as pretty-printed XML, grouped by package.
func (a *Aggregate) WriteXML(w io.Writer) error {
	out, err := xml.MarshalIndent(a.xmlTree(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to serialize sanitizer report as XML")
	}

	if _, err = io.WriteString(w, xml.Header); err != nil {
		return errors.WithStack(err)
	}
	if _, err = w.Write(out); err != nil {
		return errors.WithStack(err)
	}
	_, err = io.WriteString(w, "\n")
	return errors.WithStack(err)
}

// XML returns the output of WriteXML as a string.
func (a *Aggregate) XML() (string, error) {
	var buf bytes.Buffer
	if err := a.WriteXML(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// CleanXMLString removes all characters which are not allowed or
// discouraged in XML documents, as well as invalid UTF-8 (which
// includes unpaired surrogates).
func CleanXMLString(s string) string {
	var buf bytes.Buffer
	changed := false
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if (r == utf8.RuneError && size == 1) || isIllegalXMLRune(r) {
			changed = true
		} else {
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	if !changed {
		return s
	}
	return buf.String()
}

func isIllegalXMLRune(r rune) bool {
	switch {
	case r <= 0x08,
		r >= 0x0B && r <= 0x1F,
		r >= 0x7F && r <= 0x84,
		r >= 0x86 && r <= 0x9F,
		r >= 0xD800 && r <= 0xDFFF,
		r >= 0xFDD0 && r <= 0xFDDF:
		return true
	}
	// The last two code points of every plane are non-characters
	return r&0xFFFE == 0xFFFE
}
