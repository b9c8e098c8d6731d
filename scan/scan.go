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

// Package scan extracts module entry points and import map declarations
// from HTML documents. It supplies the two inputs resolution needs: the
// declared import map and the set of discovered module scripts.
package scan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"

	"github.com/daKmoR/esmap/importmap"
)

// ErrNoImportMap indicates the document declares no import map.
// Callers decide whether that is fatal; a page with no bare imports
// needs no map at all.
var ErrNoImportMap = errors.New("no import map declared")

// Document holds everything scan extracts from one HTML file.
type Document struct {
	// RawImportMap is the JSON content of the first
	// <script type="importmap"> block, or nil if none was declared.
	RawImportMap []byte

	// ModuleSrcs are the src attributes of external module scripts,
	// in document order.
	ModuleSrcs []string

	// InlineModules are the source texts of inline module scripts,
	// in document order.
	InlineModules []string

	// Warnings records recoverable oddities, such as additional import
	// map blocks after the first (the first map wins).
	Warnings []string
}

// Scan tokenizes HTML content and collects module scripts and the declared
// import map. Parse errors in the HTML itself are returned; script contents
// are collected verbatim and not interpreted here.
func Scan(content []byte) (*Document, error) {
	doc := &Document{}
	z := html.NewTokenizer(bytes.NewReader(content))

	for {
		switch z.Next() {
		case html.ErrorToken:
			if z.Err() == io.EOF {
				return doc, nil
			}
			return nil, fmt.Errorf("scanning html: %w", z.Err())

		case html.StartTagToken:
			name, hasAttr := z.TagName()
			if string(name) != "script" {
				continue
			}

			var scriptType, src string
			for hasAttr {
				var key, val []byte
				key, val, hasAttr = z.TagAttr()
				switch string(key) {
				case "type":
					scriptType = string(val)
				case "src":
					src = string(val)
				}
			}

			// Script elements hold raw text; the tokenizer emits it as a
			// single text token before the end tag.
			var text string
			if z.Next() == html.TextToken {
				text = string(z.Text())
			}

			switch scriptType {
			case "importmap":
				if doc.RawImportMap != nil {
					doc.Warnings = append(doc.Warnings, "ignoring additional import map block: the first declared map wins")
					continue
				}
				doc.RawImportMap = []byte(strings.TrimSpace(text))
			case "module":
				if src != "" {
					doc.ModuleSrcs = append(doc.ModuleSrcs, src)
				} else if strings.TrimSpace(text) != "" {
					doc.InlineModules = append(doc.InlineModules, text)
				}
			}
		}
	}
}

// IsHTMLPath reports whether a file path names an HTML document.
func IsHTMLPath(path string) bool {
	return strings.HasSuffix(path, ".html") || strings.HasSuffix(path, ".htm")
}

// ImportMap parses and validates the document's declared import map.
// Returns ErrNoImportMap when the document declares none. A declared map
// that fails to parse or validate is malformed, which is fatal to the run:
// every resolution against it would be unreliable.
func (d *Document) ImportMap() (*importmap.ImportMap, error) {
	if d.RawImportMap == nil {
		return nil, ErrNoImportMap
	}
	return importmap.ParseStrict(d.RawImportMap)
}
