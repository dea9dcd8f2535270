package sanitizer

import "regexp"

var (
	hexPattern          = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	spacedNumberPattern = regexp.MustCompile(` \d+ `)
	pidPattern          = regexp.MustCompile(`==\d+==`)
	frameNumberPattern  = regexp.MustCompile(`#\d+`)
)

// MaskLine replaces the parts of a sanitizer output line which differ
// between runs (addresses, sizes, pids and frame numbers) with
// placeholders, so that lines of the same error compare equal.
//
// Numbers are only masked when they are surrounded by spaces, digits
// which are part of a symbol name are kept.
func MaskLine(line string) string {
	masked := hexPattern.ReplaceAllString(line, "0xX")

	// Adjacent numbers share the space between them, so a single pass
	// only masks every other one of them
	for {
		next := spacedNumberPattern.ReplaceAllString(masked, " X ")
		if next == masked {
			break
		}
		masked = next
	}

	masked = pidPattern.ReplaceAllString(masked, "==X==")
	masked = frameNumberPattern.ReplaceAllString(masked, "#X")
	return masked
}

func maskLines(lines []string) []string {
	masked := make([]string, len(lines))
	for i, line := range lines {
		masked[i] = MaskLine(line)
	}
	return masked
}
