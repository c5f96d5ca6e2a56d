// Package discovery locates compiler, linker, archiver, resource
// compiler, and build-tool executables on PATH and under well-known
// installation roots, and captures the environment delta introduced by
// sourcing a vendor environment script (spec §4.2).
package discovery

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/chalet-org/chalet/internal/platform"
)

// FindOnPath returns the absolute path to name, honoring platform
// executable suffixes (.exe on Windows), or "" if not found.
func FindOnPath(name string) string {
	if p, err := exec.LookPath(name); err == nil {
		abs, aerr := filepath.Abs(p)
		if aerr == nil {
			return abs
		}
		return p
	}
	return ""
}

// WellKnownRoots returns platform-specific directories to search when
// PATH lookup fails, per spec §4.2.
func WellKnownRoots() []string {
	switch runtime.GOOS {
	case "windows":
		pf := os.Getenv("ProgramFiles")
		if pf == "" {
			pf = `C:\Program Files`
		}
		return []string{
			filepath.Join(pf, "Microsoft Visual Studio"),
			filepath.Join(pf, "LLVM"),
			filepath.Join(pf, "Git", "usr", "bin"),
		}
	case "darwin":
		roots := []string{"/Library/Developer/CommandLineTools", "/opt/intel/oneapi"}
		if dev := xcodeSelectPath(); dev != "" {
			roots = append(roots, dev)
		}
		return roots
	default:
		return []string{"/opt/intel/oneapi"}
	}
}

func xcodeSelectPath() string {
	out, err := exec.Command("xcode-select", "-p").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// SearchRoots walks WellKnownRoots looking for name, used once
// FindOnPath has failed.
func SearchRoots(name string) string {
	for _, root := range WellKnownRoots() {
		var found string
		_ = filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
			if err != nil || found != "" {
				return nil
			}
			if !info.IsDir() && filepath.Base(p) == name {
				found = p
			}
			return nil
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// CaptureEnvDelta sources script with args on a platform-appropriate
// shell line and diffs the resulting environment against the current
// process environment, returning only the variables the script changed
// or introduced. PATH is special-cased to keep only entries the script
// prepended/appended versus the current PATH (spec §4.2).
//
// Grounded on internal/strategies/conan_graph.go's exec.Command +
// bounded-wait pattern for invoking an external shell reliably.
func CaptureEnvDelta(ctx context.Context, script string, args []string) (map[string]string, error) {
	baseline := snapshotEnv()

	var argv []string
	if runtime.GOOS == "windows" {
		line := fmt.Sprintf("%q %s && set", script, strings.Join(args, " "))
		argv = []string{"cmd", "/c", line}
	} else {
		parts, err := shlex.Split(script + " " + strings.Join(args, " "))
		if err != nil {
			return nil, fmt.Errorf("discovery: tokenize vendor script invocation: %w", err)
		}
		line := "source " + strings.Join(parts, " ") + " && printenv"
		argv = []string{"bash", "-c", line}
	}

	res := platform.Run(ctx, "", argv, nil, 2*time.Minute)
	if res.Err != nil {
		return nil, fmt.Errorf("discovery: capture env delta from %s: %w", script, res.Err)
	}

	current := parseEnvLines(string(res.Stdout))
	delta := map[string]string{}
	for k, v := range current {
		if old, ok := baseline[k]; !ok || old != v {
			if k == "PATH" {
				delta[k] = diffPath(baseline["PATH"], v)
				continue
			}
			delta[k] = v
		}
	}
	return delta, nil
}

func snapshotEnv() map[string]string {
	return parseEnvLines(strings.Join(os.Environ(), "\n"))
}

func parseEnvLines(s string) map[string]string {
	out := map[string]string{}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			continue
		}
		out[line[:eq]] = line[eq+1:]
	}
	return out
}

// diffPath returns the entries in newPath not present in oldPath, joined
// with the platform list separator, so only vendor-added directories are
// persisted into the toolchain's EnvDelta.
func diffPath(oldPath, newPath string) string {
	sep := ":"
	if runtime.GOOS == "windows" {
		sep = ";"
	}
	old := map[string]bool{}
	for _, p := range strings.Split(oldPath, sep) {
		old[p] = true
	}
	var added []string
	for _, p := range strings.Split(newPath, sep) {
		if p != "" && !old[p] {
			added = append(added, p)
		}
	}
	sort.Strings(added)
	return strings.Join(added, sep)
}
