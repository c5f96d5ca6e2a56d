// Package depfile parses compiler-emitted dependency information: GCC/
// Clang .d files and, once the Command Pool has extracted them from raw
// stdout, MSVC's "Note: including file:" lines (spec §4.3, §7).
//
// Grounded directly on internal/strategies/buildlogs.go's bufio.Scanner +
// regex line-parsing idiom, originally used there for link.txt/.tlog
// parsing.
package depfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// reMakeRule strips the "<object>:" prefix off a Makefile-style .d rule's
// first line, leaving just the dependency list.
var reMakeRule = regexp.MustCompile(`^(?:[^:]+):\s*(.*)$`)

// ParseDFile reads a GNU-style .d file (`<obj>: dep1 dep2 \` continuation
// lines) and returns the flat list of dependency paths, excluding the
// object path itself.
func ParseDFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("depfile: open %s: %w", path, err)
	}
	defer f.Close()
	return parseDFileReader(f)
}

func parseDFileReader(r io.Reader) ([]string, error) {
	var deps []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	first := true
	for scanner.Scan() {
		line := scanner.Text()
		line = strings.TrimSuffix(strings.TrimRight(line, "\n"), "\\")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if first {
			if m := reMakeRule.FindStringSubmatch(line); m != nil {
				line = m[1]
			}
			first = false
		}
		for _, tok := range splitUnescaped(line) {
			if tok != "" {
				deps = append(deps, tok)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("depfile: scan: %w", err)
	}
	return deps, nil
}

// splitUnescaped splits a .d rule's right-hand side on unescaped spaces
// (a backslash-space is a literal space inside a path, as GNU make
// itself requires).
func splitUnescaped(s string) []string {
	var out []string
	var cur strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) && s[i+1] == ' ' {
			cur.WriteByte(' ')
			i++
			continue
		}
		if s[i] == ' ' {
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			continue
		}
		cur.WriteByte(s[i])
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// reMSVCInclude matches MSVC's "Note: including file:   <path>" lines;
// the indentation depth (number of leading spaces before the path)
// encodes the include nesting level, which this parser discards since
// only the flat dependency set is needed for staleness checks.
var reMSVCInclude = regexp.MustCompile(`^Note: including file:\s*(.+)$`)

// FilterMSVCIncludes splits raw cl.exe stdout into (dependency paths,
// remaining non-dependency lines), matching the Command Pool's
// responsibility in spec §4.6 to extract "Note: including file:" lines
// before forwarding the rest to the user.
func FilterMSVCIncludes(stdout string) (deps []string, rest []string) {
	for _, line := range strings.Split(stdout, "\n") {
		trimmed := strings.TrimRight(line, "\r")
		if m := reMSVCInclude.FindStringSubmatch(trimmed); m != nil {
			deps = append(deps, strings.TrimSpace(m[1]))
			continue
		}
		if trimmed != "" {
			rest = append(rest, trimmed)
		}
	}
	return deps, rest
}

// WriteMSVCDepFile writes deps as a colon-delimited .d file, per spec
// §4.3's MSVC dependency-emission contract.
func WriteMSVCDepFile(path, object string, deps []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("depfile: create %s: %w", path, err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s:", object)
	for _, d := range deps {
		fmt.Fprintf(w, " %s", strings.ReplaceAll(d, " ", `\ `))
	}
	fmt.Fprintln(w)
	return w.Flush()
}
