package compiler

import "github.com/chalet-org/chalet/internal/model"

// gnuWarningFlags maps each abstract preset to the cumulative GNU/Clang
// flag set (spec §4.3 warning preset table, "Superset" column — each
// preset includes everything above it).
var gnuWarningFlags = map[model.WarningPreset][]string{
	model.WarnNone:     nil,
	model.WarnMinimal:  {"-Wall"},
	model.WarnExtra:    {"-Wall", "-Wextra"},
	model.WarnPedantic: {"-Wall", "-Wextra", "-Wpedantic"},
	model.WarnStrict: {
		"-Wall", "-Wextra", "-Wpedantic",
		"-Wunused", "-Wcast-align", "-Wdouble-promotion", "-Wformat=2",
		"-Wmissing-declarations", "-Wmissing-include-dirs", "-Wnon-virtual-dtor",
		"-Wredundant-decls", "-Wodr",
	},
	model.WarnStrictPedantic: {
		"-Wall", "-Wextra", "-Wpedantic",
		"-Wunused", "-Wcast-align", "-Wdouble-promotion", "-Wformat=2",
		"-Wmissing-declarations", "-Wmissing-include-dirs", "-Wnon-virtual-dtor",
		"-Wredundant-decls", "-Wodr",
		"-Wunreachable-code", "-Wshadow",
	},
	model.WarnVeryStrict: {
		"-Wall", "-Wextra", "-Wpedantic",
		"-Wunused", "-Wcast-align", "-Wdouble-promotion", "-Wformat=2",
		"-Wmissing-declarations", "-Wmissing-include-dirs", "-Wnon-virtual-dtor",
		"-Wredundant-decls", "-Wodr",
		"-Wunreachable-code", "-Wshadow",
		"-Wnoexcept", "-Wundef", "-Wconversion", "-Wcast-qual", "-Wfloat-equal",
		"-Winline", "-Wold-style-cast", "-Woverloaded-virtual", "-Wsign-conversion",
		"-Wsign-promo",
	},
}

// msvcWarningFlags maps each preset to its single MSVC flag (spec §4.3).
var msvcWarningFlags = map[model.WarningPreset]string{
	model.WarnNone:           "/W0",
	model.WarnMinimal:        "/W1",
	model.WarnExtra:          "/W2",
	model.WarnPedantic:       "/W3",
	model.WarnStrict:         "/W3",
	model.WarnStrictPedantic: "/W4",
	model.WarnVeryStrict:     "/Wall",
}

func gnuWarningArgs(preset model.WarningPreset, warningsAsErrors bool) []string {
	args := append([]string{}, gnuWarningFlags[preset]...)
	if warningsAsErrors {
		args = append(args, "-Werror")
	}
	return args
}

func msvcWarningArgs(preset model.WarningPreset, warningsAsErrors bool) []string {
	var args []string
	if flag, ok := msvcWarningFlags[preset]; ok && flag != "" {
		args = append(args, flag)
	}
	if warningsAsErrors {
		args = append(args, "/WX")
	}
	return args
}
