package structure

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// ReadSample returns up to maxLines lines from the start of r with line
// terminators removed. A maxLines of zero or less uses SampleLines.
func ReadSample(r io.Reader, maxLines int) ([]string, error) {
	if maxLines <= 0 {
		maxLines = SampleLines
	}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	lines := make([]string, 0, maxLines)
	for len(lines) < maxLines && sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return lines, fmt.Errorf("read sample: %w", err)
	}
	return lines, nil
}
