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

// Package check provides the check command for esmap.
package check

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/daKmoR/esmap/fs"
	"github.com/daKmoR/esmap/importmap"
	"github.com/daKmoR/esmap/scan"
)

// Cmd is the check cobra command that validates import maps before they are
// used for resolution. Malformed maps are fatal to a build, so they are
// caught here, at load time.
var Cmd = &cobra.Command{
	Use:   "check [file...]",
	Short: "Validate import map files and maps embedded in HTML",
	Long: `Validate import maps before resolution.

Accepts import map JSON files and HTML documents; for HTML, the embedded
<script type="importmap"> block is checked. Reports one result per file and
exits non-zero if any map is malformed.`,
	Example: `  # Check a map file
  esmap check import-map.json

  # Check every page of a built site
  esmap check --glob "_site/**/*.html"`,
	RunE: run,
}

// result is the per-file check outcome.
type result struct {
	File  string `json:"file"`
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

func init() {
	Cmd.Flags().String("glob", "", "Glob pattern to match files")
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()

	files := append([]string(nil), args...)
	if globPattern, _ := cmd.Flags().GetString("glob"); globPattern != "" {
		matches, err := doublestar.FilepathGlob(globPattern)
		if err != nil {
			return fmt.Errorf("invalid glob pattern: %w", err)
		}
		files = append(files, matches...)
	}

	if len(files) == 0 {
		return fmt.Errorf("no files to check: provide file arguments or use --glob")
	}

	encoder := json.NewEncoder(os.Stdout)
	var invalid int

	for _, file := range files {
		res := checkFile(osfs, file)
		if !res.Valid {
			invalid++
		}
		if err := encoder.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding result for %s: %v\n", file, err)
		}
	}

	if invalid > 0 {
		return fmt.Errorf("%d of %d files have malformed import maps", invalid, len(files))
	}
	return nil
}

// checkFile validates one file's import map.
func checkFile(osfs fs.FileSystem, file string) result {
	data, err := osfs.ReadFile(file)
	if err != nil {
		return result{File: file, Error: err.Error()}
	}

	if scan.IsHTMLPath(file) {
		doc, err := scan.Scan(data)
		if err != nil {
			return result{File: file, Error: err.Error()}
		}
		if _, err := doc.ImportMap(); err != nil {
			// A page without a map is not malformed.
			if err == scan.ErrNoImportMap {
				return result{File: file, Valid: true}
			}
			return result{File: file, Error: err.Error()}
		}
		return result{File: file, Valid: true}
	}

	if _, err := importmap.ParseStrict(data); err != nil {
		return result{File: file, Error: err.Error()}
	}
	return result{File: file, Valid: true}
}
