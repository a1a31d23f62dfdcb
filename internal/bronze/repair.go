package bronze

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Repair converts a loosely formatted JSON document into NDJSON: blank
// lines are dropped and a single trailing comma is stripped from each
// remaining line. It does not attempt full JSON repair; these are the only
// two malformation patterns the raw feeds are known to produce.
//
// The result is written to a sibling file named <stem>_fixed.json, which is
// left in place after the run. Applying Repair to an already-clean NDJSON
// document reproduces it byte for byte.
func Repair(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	ext := filepath.Ext(path)
	fixedPath := strings.TrimSuffix(path, ext) + "_fixed" + ext

	dst, err := os.Create(fixedPath)
	if err != nil {
		return "", fmt.Errorf("failed to create repaired file: %w", err)
	}
	defer dst.Close()

	if _, err := repairTo(src, dst); err != nil {
		return "", err
	}
	return fixedPath, nil
}

// repairTo streams the repair pass from r to w and returns the number of
// lines written.
func repairTo(r io.Reader, w io.Writer) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	out := bufio.NewWriter(w)
	lines := 0

	for scanner.Scan() {
		cleaned := strings.TrimSpace(scanner.Text())
		if cleaned == "" {
			continue
		}
		cleaned = strings.TrimSuffix(cleaned, ",")

		if _, err := out.WriteString(cleaned + "\n"); err != nil {
			return lines, fmt.Errorf("failed to write repaired line: %w", err)
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		return lines, fmt.Errorf("failed to read source file: %w", err)
	}
	return lines, out.Flush()
}

// ValidateLines probes a document line by line and returns the first line
// number that does not parse as JSON after the repair normalization, with
// the parse error. It returns 0 and nil when every non-blank line parses.
// Advisory only; used to enrich the warn log before a repair pass.
func ValidateLines(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		text = strings.TrimSuffix(text, ",")

		if !json.Valid([]byte(text)) {
			return line, fmt.Errorf("line %d is not valid JSON", line)
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}
	return 0, nil
}
