// Package modcxx scans C++ translation units for module/header-unit
// declarations by invoking the compiler's own scan mode, builds the
// inter-TU DAG, detects cycles, and orders compilation into dependency
// batches (spec §4.4).
package modcxx

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chalet-org/chalet/internal/chkerr"
	"github.com/chalet-org/chalet/internal/model"
	"github.com/chalet-org/chalet/internal/platform"
)

// p1689Result mirrors the subset of the p1689 JSON schema this engine
// consumes (GCC/Clang `-fdeps-format=p1689`).
type p1689Result struct {
	Rules []struct {
		Primary string `json:"primary-output"`
		Provides []struct {
			LogicalName string `json:"logical-name"`
			IsInterface bool   `json:"is-interface"`
		} `json:"provides"`
		Requires []struct {
			LogicalName string `json:"logical-name"`
			LookupMethod string `json:"lookup-method"`
			SourcePath   string `json:"source-path"`
		} `json:"requires"`
	} `json:"rules"`
}

// ScanTU invokes the compiler in scan mode for one translation unit and
// fills in f.ProvidesModule / f.ImportsModules / f.ImportsHeaderUnits /
// f.IsModuleImpl.
func ScanTU(ctx context.Context, rt *model.ResolvedToolchain, f *model.SourceFileGroup, includeDirs, defines []string) error {
	var argv []string
	switch rt.Family {
	case model.FamilyMSVC:
		argv = []string{rt.Cpp, "/nologo", "/scanDependencies", f.Source, "/TP"}
	default:
		argv = []string{rt.Cpp, "-std=c++20", "-fdeps-format=p1689", "-MT", f.Object, "-c", f.Source, "-o", "/dev/null"}
	}
	for _, d := range includeDirs {
		argv = append(argv, "-I"+d)
	}
	for _, d := range defines {
		argv = append(argv, "-D"+d)
	}

	res := platform.Run(ctx, "", argv, nil, 60*time.Second)
	if res.Err != nil {
		return &chkerr.Error{Kind: chkerr.DependencyScanFailure, File: f.Source, Err: res.Err}
	}

	var parsed p1689Result
	if err := json.Unmarshal(res.Stdout, &parsed); err != nil {
		return &chkerr.Error{Kind: chkerr.DependencyScanFailure, File: f.Source, Err: fmt.Errorf("parse scan output: %w", err)}
	}

	for _, rule := range parsed.Rules {
		for _, p := range rule.Provides {
			f.ProvidesModule = p.LogicalName
			f.IsModuleImpl = !p.IsInterface
		}
		for _, r := range rule.Requires {
			if r.LookupMethod == "include-angle" || r.LookupMethod == "include-quote" {
				f.ImportsHeaderUnits = append(f.ImportsHeaderUnits, r.SourcePath)
			} else {
				f.ImportsModules = append(f.ImportsModules, r.LogicalName)
			}
		}
	}
	return nil
}
