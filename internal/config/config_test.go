package config

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawMessages(t *testing.T, kv map[string]string) map[string]json.RawMessage {
	t.Helper()
	out := make(map[string]json.RawMessage, len(kv))
	for k, v := range kv {
		out[k] = json.RawMessage(v)
	}
	return out
}

func TestMergeConditional_PlatformAppendsDefines(t *testing.T) {
	raw := rawMessages(t, map[string]string{
		"targets.app":        `{"defines":["BASE"],"kind":"executable"}`,
		"targets.app.linux":  `{"defines":["LINUX_ONLY"]}`,
		"targets.app.macos":  `{"defines":["MACOS_ONLY"]}`,
	})

	effective, err := MergeConditional(raw, "targets.app", "linux", false)
	require.NoError(t, err)

	defines, ok := effective["defines"].([]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"BASE", "LINUX_ONLY"}, defines)
	assert.Equal(t, "executable", effective["kind"])
}

func TestMergeConditional_NotPlatformExcluded(t *testing.T) {
	raw := rawMessages(t, map[string]string{
		"targets.app":          `{"defines":["BASE"]}`,
		"targets.app.!windows": `{"defines":["POSIX_ONLY"]}`,
	})

	effective, err := MergeConditional(raw, "targets.app", "windows", false)
	require.NoError(t, err)

	defines, ok := effective["defines"].([]any)
	require.True(t, ok)
	assert.ElementsMatch(t, []any{"BASE"}, defines)
}

func TestMergeConditional_DebugCombination(t *testing.T) {
	raw := rawMessages(t, map[string]string{
		"targets.app":              `{"defines":["BASE"]}`,
		"targets.app.linux.debug":  `{"defines":["LINUX_DEBUG"]}`,
		"targets.app.linux.!debug": `{"defines":["LINUX_RELEASE"]}`,
	})

	debugEffective, err := MergeConditional(raw, "targets.app", "linux", true)
	require.NoError(t, err)
	debugDefines, _ := debugEffective["defines"].([]any)
	assert.ElementsMatch(t, []any{"BASE", "LINUX_DEBUG"}, debugDefines)

	releaseEffective, err := MergeConditional(raw, "targets.app", "linux", false)
	require.NoError(t, err)
	releaseDefines, _ := releaseEffective["defines"].([]any)
	assert.ElementsMatch(t, []any{"BASE", "LINUX_RELEASE"}, releaseDefines)
}

func TestSourceTargetFromKeys_RejectsZeroFiles(t *testing.T) {
	_, err := SourceTargetFromKeys("app", map[string]any{"kind": "executable"})
	assert.Error(t, err)
}

func TestSourceTargetFromKeys_DecodesFields(t *testing.T) {
	effective := map[string]any{
		"files":       []any{"src/main.cpp"},
		"kind":        "staticLibrary",
		"cppStandard": "c++20",
		"defines":     []any{"FOO"},
		"rtti":        false,
	}

	target, err := SourceTargetFromKeys("mylib", effective)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main.cpp"}, target.Files)
	assert.Equal(t, "c++20", target.LanguageStandard)
	assert.False(t, target.Rtti)
	assert.True(t, target.Exceptions)
}
