package workspace

import (
	"fmt"
	"io"
)

// WriteSkeleton writes the header patterns as a quoted list on the first
// line, followed by the tab-indented outline.
func WriteSkeleton(w io.Writer, patterns []string, outline []string) error {
	if _, err := fmt.Fprintf(w, "%q\n", patterns); err != nil {
		return fmt.Errorf("write skeleton: %w", err)
	}
	for _, line := range outline {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write skeleton: %w", err)
		}
	}
	return nil
}
