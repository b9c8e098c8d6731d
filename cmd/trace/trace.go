/*
Copyright © 2026 esmap contributors

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package trace provides the trace command for esmap.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/daKmoR/esmap/fs"
	"github.com/daKmoR/esmap/importmap"
	"github.com/daKmoR/esmap/internal/output"
	"github.com/daKmoR/esmap/trace"
)

// Cmd is the trace cobra command that walks module graphs from HTML entry
// points, resolving every bare specifier through the declared import map.
var Cmd = &cobra.Command{
	Use:   "trace [file.html...]",
	Short: "Trace module graphs through their import maps",
	Long: `Trace HTML entry points, resolving every module specifier through the
declared import map.

For a single file, outputs a JSON report of modules, resolutions, and
unresolved specifiers. For multiple files (via arguments or --glob), outputs
NDJSON with one report per line. The --unresolved policy decides what an
unresolved specifier means: a hard error, a warning, or an external
dependency left for another tool.`,
	Example: `  # Trace a single HTML file
  esmap trace index.html

  # Trace files matching a glob pattern, 8 workers
  esmap trace --glob "_site/**/*.html" -j 8

  # Override the documents' declared maps
  esmap trace index.html --map import-map.json

  # Fail the build on unresolved specifiers
  esmap trace index.html --unresolved error`,
	RunE: run,
}

func init() {
	Cmd.Flags().String("map", "", "Import map file overriding the documents' declared maps")
	Cmd.Flags().String("unresolved", "warn", "Unresolved specifier policy (error, warn, external)")
	Cmd.Flags().String("glob", "", "Glob pattern to match HTML files (e.g., \"_site/**/*.html\")")
	Cmd.Flags().IntP("jobs", "j", 0, "Number of parallel workers (default: number of CPUs)")
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()

	absRoot, err := filepath.Abs(viper.GetString("root"))
	if err != nil {
		return fmt.Errorf("invalid root directory: %w", err)
	}

	// Collect files from args and glob pattern, deduplicating by absolute path
	seen := make(map[string]struct{})
	var files []string

	for _, arg := range args {
		absPath, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("invalid file path %q: %w", arg, err)
		}
		if _, exists := seen[absPath]; !exists {
			seen[absPath] = struct{}{}
			files = append(files, absPath)
		}
	}

	globPattern, _ := cmd.Flags().GetString("glob")
	if globPattern != "" {
		matches, err := doublestar.FilepathGlob(globPattern)
		if err != nil {
			return fmt.Errorf("invalid glob pattern: %w", err)
		}
		for _, match := range matches {
			absPath, err := filepath.Abs(match)
			if err != nil {
				return fmt.Errorf("invalid file path %q: %w", match, err)
			}
			if _, exists := seen[absPath]; !exists {
				seen[absPath] = struct{}{}
				files = append(files, absPath)
			}
		}
	}

	if len(files) == 0 {
		return fmt.Errorf("no files to trace: provide file arguments or use --glob")
	}

	policyArg, _ := cmd.Flags().GetString("unresolved")
	policy, err := trace.ParsePolicy(policyArg)
	if err != nil {
		return err
	}

	opts := trace.Options{}

	if mapPath, _ := cmd.Flags().GetString("map"); mapPath != "" {
		data, err := osfs.ReadFile(mapPath)
		if err != nil {
			return fmt.Errorf("failed to read import map: %w", err)
		}
		opts.Map, err = importmap.ParseStrict(data)
		if err != nil {
			return err
		}
	}
	opts.Parallel, _ = cmd.Flags().GetInt("jobs")

	if len(files) == 1 {
		return runSingle(osfs, files[0], absRoot, policy, opts)
	}
	return runBatch(osfs, files, absRoot, policy, opts)
}

func runSingle(osfs fs.FileSystem, file, absRoot string, policy trace.Policy, opts trace.Options) error {
	result, err := trace.TraceSingle(osfs, file, absRoot, opts)
	if err != nil {
		return fmt.Errorf("failed to trace: %w", err)
	}

	if err := applyPolicy(result, policy); err != nil {
		return err
	}

	return output.JSON(osfs, result)
}

func runBatch(osfs fs.FileSystem, files []string, absRoot string, policy trace.Policy, opts trace.Options) error {
	results := trace.TraceBatch(osfs, files, absRoot, opts)

	encoder := json.NewEncoder(os.Stdout)
	var errorCount, totalCount, unresolvedCount int

	for result := range results {
		totalCount++
		if result.Error != "" {
			errorCount++
		}
		unresolvedCount += len(result.Unresolved)

		if policy != trace.PolicyError {
			// Error policy is applied after the loop, once all workers finish.
			_ = applyPolicy(&result, policy)
		}
		if err := encoder.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding result for %s: %v\n", result.File, err)
		}
	}

	if errorCount == totalCount {
		return fmt.Errorf("all %d files failed to trace", errorCount)
	}
	if policy == trace.PolicyError && unresolvedCount > 0 {
		return fmt.Errorf("%d unresolved specifiers", unresolvedCount)
	}
	return nil
}

// applyPolicy interprets unresolved specifiers per the caller's policy.
func applyPolicy(result *trace.Result, policy trace.Policy) error {
	switch policy {
	case trace.PolicyWarn:
		for _, issue := range result.Unresolved {
			fmt.Fprintf(os.Stderr, "Warning: %s:%d\n", issue.File, issue.Line)
			fmt.Fprintf(os.Stderr, "  no import map entry for %q\n", issue.Specifier)
		}
	case trace.PolicyExternal:
		// External dependencies are another tool's concern.
		result.Unresolved = nil
	case trace.PolicyError:
		if len(result.Unresolved) > 0 {
			return fmt.Errorf("%d unresolved specifiers in %s", len(result.Unresolved), result.File)
		}
	}
	return nil
}
