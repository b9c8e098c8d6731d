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

// Package resolve provides the resolve command for esmap.
package resolve

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/daKmoR/esmap/fs"
	"github.com/daKmoR/esmap/importmap"
	"github.com/daKmoR/esmap/internal/output"
	"github.com/daKmoR/esmap/resolve"
	"github.com/daKmoR/esmap/scan"
)

// Cmd is the resolve cobra command that translates module specifiers into
// concrete load targets using a declared import map.
var Cmd = &cobra.Command{
	Use:   "resolve [specifier...]",
	Short: "Resolve module specifiers against an import map",
	Long: `Resolve bare module specifiers against an import map.

The map is read from a JSON file (--map) or from the import map declared in
an HTML document (--html). Unmapped specifiers are reported as unresolved;
the exit status stays zero, since unresolved is a condition, not a failure.`,
	Example: `  # Resolve specifiers against a map file
  esmap resolve lit-html lit-html/directives/repeat.js --map import-map.json

  # Resolve against the map declared in an HTML page
  esmap resolve lit-html --html index.html

  # Scope-aware resolution on behalf of a referrer module
  esmap resolve lit-html --map import-map.json --from /node_modules/lit-element/lit-element.js`,
	Args: cobra.MinimumNArgs(1),
	RunE: run,
}

func init() {
	Cmd.Flags().String("map", "", "Import map JSON file")
	Cmd.Flags().String("html", "", "HTML file declaring the import map")
	Cmd.Flags().String("from", "", "Referrer path for scope-aware resolution")
}

func run(cmd *cobra.Command, args []string) error {
	osfs := fs.NewOSFileSystem()

	mapPath, _ := cmd.Flags().GetString("map")
	htmlPath, _ := cmd.Flags().GetString("html")

	im, err := loadMap(osfs, mapPath, htmlPath)
	if err != nil {
		return err
	}

	resolver, err := resolve.New(im)
	if err != nil {
		return err
	}

	from, _ := cmd.Flags().GetString("from")

	results := make([]resolve.Resolution, len(args))
	for i, specifier := range args {
		results[i] = resolver.ResolveFrom(specifier, from)
	}

	return output.JSON(osfs, results)
}

// loadMap reads the import map from exactly one of the two sources.
func loadMap(osfs fs.FileSystem, mapPath, htmlPath string) (*importmap.ImportMap, error) {
	switch {
	case mapPath != "" && htmlPath != "":
		return nil, fmt.Errorf("--map and --html are mutually exclusive")
	case mapPath != "":
		data, err := osfs.ReadFile(mapPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read import map: %w", err)
		}
		return importmap.ParseStrict(data)
	case htmlPath != "":
		content, err := osfs.ReadFile(htmlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read HTML file: %w", err)
		}
		doc, err := scan.Scan(content)
		if err != nil {
			return nil, err
		}
		im, err := doc.ImportMap()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", htmlPath, err)
		}
		return im, nil
	default:
		return nil, fmt.Errorf("an import map source is required: use --map or --html")
	}
}
