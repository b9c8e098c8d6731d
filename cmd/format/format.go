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

// Package format provides the format command for esmap.
package format

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daKmoR/esmap/fs"
	"github.com/daKmoR/esmap/importmap"
	"github.com/daKmoR/esmap/internal/output"
	"github.com/daKmoR/esmap/scan"
)

// Cmd is the format cobra command that normalizes an import map and emits it
// as JSON or as an HTML script tag.
var Cmd = &cobra.Command{
	Use:   "format [file]",
	Short: "Format an import map",
	Long: `Validate and reformat an import map.

Reads a map from a JSON file or from the first <script type="importmap">
block of an HTML document, then prints it with stable indentation. With
--simplify, exact entries already covered by a consistent prefix key are
removed. With --merge, additional map files are merged in, later files
taking precedence.`,
	Example: `  # Reformat a map file
  esmap format import-map.json

  # Extract the map from a page as an HTML script tag
  esmap format index.html --format html

  # Merge an override map and drop redundant entries
  esmap format base.json --merge override.json --simplify`,
	Args: cobra.ExactArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().StringP("format", "f", "json", "Output format (json, html)")
	Cmd.Flags().Bool("simplify", false, "Remove exact entries covered by a prefix key")
	Cmd.Flags().StringArray("merge", nil, "Additional map files to merge, later files win")
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()

	im, err := loadMap(osfs, args[0])
	if err != nil {
		return err
	}

	mergeFiles, _ := cmd.Flags().GetStringArray("merge")
	for _, file := range mergeFiles {
		other, err := loadMap(osfs, file)
		if err != nil {
			return err
		}
		im = im.Merge(other)
	}

	if simplify, _ := cmd.Flags().GetBool("simplify"); simplify {
		im = im.Simplify()
	}

	format, _ := cmd.Flags().GetString("format")
	return output.ImportMap(osfs, im, format)
}

// loadMap reads a validated map from a JSON file or an HTML document.
func loadMap(osfs fs.FileSystem, file string) (*importmap.ImportMap, error) {
	data, err := osfs.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", file, err)
	}

	if scan.IsHTMLPath(file) {
		doc, err := scan.Scan(data)
		if err != nil {
			return nil, err
		}
		im, err := doc.ImportMap()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		return im, nil
	}

	im, err := importmap.ParseStrict(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return im, nil
}
