package monitorcfg

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadInitScriptLines reads path and returns its non-comment, non-blank
// lines in order, one dmlomon feeds into the input ring per line before
// falling through to interactive stdin (spec.md §4.3 step 4). When
// --init-script is given, --input-file is not read. Same `#`-comment, blank-line-skipping grammar as the teacher's
// LoadConfigArgs, repurposed from CLI-argument lines to input-ring lines.
func LoadInitScriptLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("monitorcfg: opening init script %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("monitorcfg: reading init script %s: %w", path, err)
	}
	return lines, nil
}
