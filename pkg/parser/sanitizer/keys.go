package sanitizer

import (
	"regexp"
	"strings"

	"code-intelligence.com/sanreport/util/regexutil"
)

// ErrorKind selects the rule used to find the relevant stack traces of
// a sanitizer error.
type ErrorKind int

const (
	KindDefault ErrorKind = iota
	KindDataRace
	KindMemoryLeak
	KindLockOrderInversion
)

var kindsByErrorName = map[string]ErrorKind{
	"data race":             KindDataRace,
	"detected memory leaks": KindMemoryLeak,
	"lock-order-inversion":  KindLockOrderInversion,
}

// KindOf returns the error kind for an error name as printed in the
// sanitizer report header. Unknown names map to KindDefault.
func KindOf(errorName string) ErrorKind {
	if kind, ok := kindsByErrorName[errorName]; ok {
		return kind
	}
	return KindDefault
}

func (k ErrorKind) String() string {
	for name, kind := range kindsByErrorName {
		if kind == k {
			return name
		}
	}
	return "default"
}

// An extractionRule lists the anchor lines (on masked lines) which
// directly precede the stack traces identifying an error. A sub-section
// only produces keys if every anchor is found, in order.
type extractionRule struct {
	anchors []*regexp.Regexp
}

var (
	mutexAcquiredPattern = regexp.MustCompile(`^\s+Mutex M\d+ acquired here while holding mutex M\d+ in .*$`)

	rules = map[ErrorKind]extractionRule{
		// Most errors have their only or most significant stack trace
		// first in a sub-section, so any line is an anchor
		KindDefault: {anchors: []*regexp.Regexp{
			regexp.MustCompile(`^.*$`),
		}},
		// One stack trace per "Direct leak" sub-section
		KindMemoryLeak: {anchors: []*regexp.Regexp{
			regexp.MustCompile(`^Direct leak of X byte\(s\) in X object\(s\) allocated from:$`),
		}},
		// The current and the previous access, both in the same
		// sub-section
		KindDataRace: {anchors: []*regexp.Regexp{
			regexp.MustCompile(`^\s+(Read|Write) of size X at 0xX .*$`),
			regexp.MustCompile(`^\s+Previous (read|write) of size X at 0xX .*$`),
		}},
		// Both stack traces have identical headers
		KindLockOrderInversion: {anchors: []*regexp.Regexp{
			mutexAcquiredPattern,
			mutexAcquiredPattern,
		}},
	}

	framePattern = regexp.MustCompile(`^\s*#X\s+(0xX in\s+)?(?P<frame>.*?)\s*$`)
)

// DefaultProjectPathMarker is the path segment which identifies stack
// frames from source files of the project. Frames from system and
// third-party libraries don't contain it.
const DefaultProjectPathMarker = "/ros2"

// DefaultNoisePatterns match stack frames of the sanitizer runtime,
// which are never used as a key.
var DefaultNoisePatterns = []string{"libtsan", "libasan", "liblsan", "sanitizer_common"}

// A StackTrace is a run of consecutive frame lines following an anchor
// line, together with the key derived from it.
type StackTrace struct {
	Key         string
	MaskedLines []string
}

// Sample returns the masked stack trace as a single string.
func (t *StackTrace) Sample() string {
	return strings.Join(t.MaskedLines, "\n")
}

type KeyExtractor struct {
	projectPathMarker string
	noisePatterns     []*regexp.Regexp
}

// NewKeyExtractor creates a key extractor which only accepts frames
// containing projectPathMarker and matching none of noisePatterns.
func NewKeyExtractor(projectPathMarker string, noisePatterns []*regexp.Regexp) *KeyExtractor {
	if projectPathMarker == "" {
		projectPathMarker = DefaultProjectPathMarker
	}
	return &KeyExtractor{
		projectPathMarker: projectPathMarker,
		noisePatterns:     noisePatterns,
	}
}

// Extract returns the stack traces which identify the error in the
// sub-section. It returns nil unless all anchors of the rule for the
// error kind were found and each of them is followed by a stack trace
// with at least one frame from the project.
func (e *KeyExtractor) Extract(subSection *SubSection, kind ErrorKind) []*StackTrace {
	rule, ok := rules[kind]
	if !ok {
		rule = rules[KindDefault]
	}

	lines := subSection.MaskedLines
	cursor := 0
	var traces []*StackTrace

	for _, anchor := range rule.anchors {
		// Advance past the anchor line
		for cursor < len(lines) && !anchor.MatchString(lines[cursor]) {
			cursor++
		}
		if cursor == len(lines) {
			return nil
		}
		cursor++

		// Skip to the first frame and collect all consecutive frames
		for cursor < len(lines) && !framePattern.MatchString(lines[cursor]) {
			cursor++
		}
		start := cursor
		for cursor < len(lines) && framePattern.MatchString(lines[cursor]) {
			cursor++
		}
		frames := lines[start:cursor]
		if len(frames) == 0 {
			return nil
		}

		key, found := e.keyFromFrames(frames)
		if !found {
			return nil
		}
		traces = append(traces, &StackTrace{Key: key, MaskedLines: frames})
	}

	return traces
}

func (e *KeyExtractor) keyFromFrames(frames []string) (string, bool) {
	for _, line := range frames {
		if e.isNoise(line) {
			continue
		}
		matches, found := regexutil.FindNamedGroupsMatch(framePattern, line)
		if !found {
			continue
		}
		if strings.Contains(matches["frame"], e.projectPathMarker) {
			return matches["frame"], true
		}
	}
	return "", false
}

func (e *KeyExtractor) isNoise(line string) bool {
	return regexutil.MatchesAny(e.noisePatterns, line)
}
