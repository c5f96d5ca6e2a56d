package discovery

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
)

// extensionInterpreters maps a script extension to its candidate
// interpreter names, tried in order (spec §4.8).
var extensionInterpreters = map[string][]string{
	".sh":   {"bash"},
	".py":   {"python3", "python"},
	".rb":   {"ruby"},
	".pl":   {"perl"},
	".lua":  {"lua"},
	".ps1":  {"pwsh", "powershell"},
	".bat":  {"cmd.exe"},
	".cmd":  {"cmd.exe"},
}

// ResolveInterpreter finds the interpreter for scriptFile: first by
// reading its shebang line, then by its extension. Returns the resolved
// absolute interpreter path and any extra leading args (e.g. "/c" for
// cmd.exe), or a plain error when no interpreter can be found.
func ResolveInterpreter(scriptFile string) (path string, args []string, err error) {
	if shebangPath, shebangArgs, ok := readShebang(scriptFile); ok {
		if resolved := FindOnPath(shebangPath); resolved != "" {
			return resolved, shebangArgs, nil
		}
		// Shebang present but its interpreter is unavailable: fall
		// through to the extension map rather than failing immediately,
		// since a portable script may carry a Unix shebang but still be
		// invoked through its extension-mapped interpreter on Windows.
	}

	ext := strings.ToLower(filepath.Ext(scriptFile))
	candidates, ok := extensionInterpreters[ext]
	if !ok {
		return "", nil, fmt.Errorf("discovery: no interpreter mapping for extension %q", ext)
	}
	for _, name := range candidates {
		if resolved := FindOnPath(name); resolved != "" {
			if name == "cmd.exe" {
				return resolved, []string{"/c"}, nil
			}
			return resolved, nil, nil
		}
	}
	return "", nil, fmt.Errorf("discovery: interpreter unavailable for %s (tried %v)", scriptFile, candidates)
}

func readShebang(scriptFile string) (path string, args []string, ok bool) {
	f, err := os.Open(scriptFile)
	if err != nil {
		return "", nil, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return "", nil, false
	}
	line := scanner.Text()
	if !strings.HasPrefix(line, "#!") {
		return "", nil, false
	}
	rest := strings.TrimSpace(line[2:])
	tokens, err := shlex.Split(rest)
	if err != nil || len(tokens) == 0 {
		return "", nil, false
	}
	return tokens[0], tokens[1:], true
}
