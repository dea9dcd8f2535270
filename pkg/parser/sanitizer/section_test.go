package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSection_ErrorName(t *testing.T) {
	tests := []struct {
		header    string
		errorName string
		sanitizer string
	}{
		{"WARNING: ThreadSanitizer: data race (pid=19699)", "data race", "ThreadSanitizer"},
		{"WARNING: ThreadSanitizer: lock-order-inversion (potential deadlock) (pid=1)", "lock-order-inversion", "ThreadSanitizer"},
		{"==17726==ERROR: LeakSanitizer: detected memory leaks", "detected memory leaks", "LeakSanitizer"},
		{"==1==ERROR: AddressSanitizer: heap-use-after-free on address 0x602000000010 at pc 0x4f5a2b", "heap-use-after-free on address", "AddressSanitizer"},
		{"==1==ERROR: AddressSanitizer: SEGV on unknown address 0x000000000000 (pc 0x1 bp 0x2)", "SEGV on unknown address", "AddressSanitizer"},
		{"ERROR: UndefinedBehaviorSanitizer: stack-overflow   ", "stack-overflow", "UndefinedBehaviorSanitizer"},
	}

	for _, tc := range tests {
		t.Run(tc.errorName, func(t *testing.T) {
			s, err := newSection("pkg", []string{tc.header})
			require.NoError(t, err)
			assert.Equal(t, "pkg", s.Package)
			assert.Equal(t, tc.errorName, s.ErrorName)
			assert.Equal(t, tc.sanitizer, s.Sanitizer)
		})
	}
}

func TestNewSection_Invalid(t *testing.T) {
	_, err := newSection("pkg", nil)
	assert.Error(t, err)

	_, err = newSection("pkg", []string{"no sanitizer header here"})
	assert.Error(t, err)
}

func TestSplitSubSections(t *testing.T) {
	lines := []string{
		"ERROR: LeakSanitizer: detected memory leaks",
		"",
		"Direct leak of 4 byte(s) in 1 object(s) allocated from:",
		"    #0 0x1 in malloc",
		"",
		"Indirect leak of 8 byte(s) in 2 object(s) allocated from:",
		"    #0 0x2 in malloc",
		"SUMMARY: AddressSanitizer: 12 byte(s) leaked in 3 allocation(s).",
	}

	subSections := splitSubSections(lines)
	require.Len(t, subSections, 4)
	assert.Equal(t, lines[0:2], subSections[0].Lines)
	assert.Equal(t, lines[2:5], subSections[1].Lines)
	assert.Equal(t, lines[5:7], subSections[2].Lines)
	assert.Equal(t, lines[7:], subSections[3].Lines)

	assert.Equal(t, []string{
		"Direct leak of X byte(s) in X object(s) allocated from:",
		"    #X 0xX in malloc",
		"",
	}, subSections[1].MaskedLines)
}

func TestSplitSubSections_Empty(t *testing.T) {
	assert.Empty(t, splitSubSections(nil))
}
