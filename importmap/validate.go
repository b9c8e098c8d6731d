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
package importmap

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMalformed is the root of the malformed-map error taxonomy. All
// validation failures wrap it, so callers can match the whole class with
// errors.Is(err, ErrMalformed). A malformed map is fatal to a run: every
// resolution against it would be unreliable.
var ErrMalformed = errors.New("malformed import map")

// Structural validation errors. Each wraps ErrMalformed.
var (
	// ErrMissingImports indicates the map has no "imports" key.
	ErrMissingImports = fmt.Errorf("%w: missing required \"imports\" key", ErrMalformed)

	// ErrEmptyKey indicates an entry with an empty specifier key.
	ErrEmptyKey = fmt.Errorf("%w: empty specifier key", ErrMalformed)

	// ErrEmptyTarget indicates an entry with an empty target.
	ErrEmptyTarget = fmt.Errorf("%w: empty target", ErrMalformed)

	// ErrPrefixTarget indicates a prefix key (trailing slash) whose target
	// is not directory-like (no trailing slash). Forwarding a remainder onto
	// such a target would splice path segments together.
	ErrPrefixTarget = fmt.Errorf("%w: prefix key target must end in \"/\"", ErrMalformed)

	// ErrScopeKey indicates a scope key that is not a URL prefix.
	ErrScopeKey = fmt.Errorf("%w: scope key must end in \"/\"", ErrMalformed)
)

// IsMalformed reports whether err belongs to the malformed-map taxonomy.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformed)
}

// Validate checks the structural rules an import map must satisfy before it
// can drive resolution. It is called once at load time; resolution itself
// never revalidates.
func (im *ImportMap) Validate() error {
	if im == nil || im.Imports == nil {
		return ErrMissingImports
	}

	if err := validateEntries(im.Imports); err != nil {
		return err
	}

	for scope, imports := range im.Scopes {
		if !strings.HasSuffix(scope, "/") {
			return fmt.Errorf("%w: %q", ErrScopeKey, scope)
		}
		if err := validateEntries(imports); err != nil {
			return fmt.Errorf("scope %q: %w", scope, err)
		}
	}

	return nil
}

func validateEntries(entries map[string]string) error {
	for key, target := range entries {
		if key == "" {
			return ErrEmptyKey
		}
		if target == "" {
			return fmt.Errorf("%w for key %q", ErrEmptyTarget, key)
		}
		if strings.HasSuffix(key, "/") && !strings.HasSuffix(target, "/") {
			return fmt.Errorf("%w: %q -> %q", ErrPrefixTarget, key, target)
		}
	}
	return nil
}
