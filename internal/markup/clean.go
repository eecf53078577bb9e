package markup

import (
	"fmt"
	"regexp"

	"github.com/dlclark/regexp2"
)

var (
	cleanBlanks   = regexp.MustCompile(`[\t ]+`)
	cleanNewlines = regexp.MustCompile(`\n+`)
	cleanCRLF     = regexp.MustCompile(`(\n\r)+`)
	cleanLeadLF   = regexp.MustCompile(`\n +`)
	cleanLeadCR   = regexp.MustCompile(`\r +`)

	// A line break followed by a lowercase word continues the sentence.
	cleanWrapped = regexp2.MustCompile(`\n(?=[a-z]+[^.:)])| +`, regexp2.None)
)

// Clean removes layout whitespace from raw extracted text: runs of blanks
// collapse, hard-wrapped lines are rejoined, and blank lines are dropped.
func Clean(raw string) (string, error) {
	cleaned := cleanBlanks.ReplaceAllString(raw, " ")
	cleaned, err := cleanWrapped.Replace(cleaned, " ", -1, -1)
	if err != nil {
		return "", fmt.Errorf("clean text: %w", err)
	}
	cleaned = cleanNewlines.ReplaceAllString(cleaned, "\n")
	cleaned = cleanCRLF.ReplaceAllString(cleaned, "\n\r")
	cleaned = cleanLeadLF.ReplaceAllString(cleaned, "\n")
	cleaned = cleanLeadCR.ReplaceAllString(cleaned, "\r")
	return cleaned, nil
}
