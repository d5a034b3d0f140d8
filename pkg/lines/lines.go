// Package lines splits a fetched document into its payload lines.
package lines

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// DefaultStartMarker separates the header of a generated list from its words.
const DefaultStartMarker = "---"

const maxLineSize = 1 << 20

// ErrMarkerNotFound is returned when the body never contains the start marker.
var ErrMarkerNotFound = errors.New("start marker not found")

// Extract returns the lines of r that follow the first occurrence of
// startMarker. Text after the marker on the same line counts as a line.
// Lines may end in LF or CRLF; blank lines are skipped. An empty marker
// selects the whole body. The marker must not contain a newline.
func Extract(r io.Reader, startMarker string) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	found := startMarker == ""
	var result []string

	for scanner.Scan() {
		line := scanner.Text()

		if !found {
			idx := strings.Index(line, startMarker)
			if idx < 0 {
				continue
			}
			found = true
			line = line[idx+len(startMarker):]
		}

		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		result = append(result, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %q", ErrMarkerNotFound, startMarker)
	}

	return result, nil
}
