/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"path"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// NewItemID returns an identifier for an item created from filename. The
// random stamp keeps ids unique across repeated drops of the same file, so a
// late resolution can never clobber an unrelated record.
func NewItemID(filename string) string {
	stamp := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return Slug(filename) + "-" + stamp
}

// Slug turns a filename into a DOM-id friendly token: the base name without
// extension, lower-cased, with runs of other characters collapsed to '-'.
func Slug(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(base) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "item"
	}
	return s
}

// AssignIDs gives every loaded item a unique key. Items saved without an id
// are keyed by their source path ("src:<path>", then "#2", "#3", ... on
// collision). Items with neither id nor source path cannot be addressed and
// are returned in dropped.
func AssignIDs(items []SavedItem) (keyed []SavedItem, dropped []SavedItem) {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if it.ID != "" {
			seen[it.ID] = true
		}
	}
	keyed = make([]SavedItem, 0, len(items))
	for _, it := range items {
		switch {
		case it.ID != "":
		case it.SourcePath != "":
			base := "src:" + it.SourcePath
			id := base
			for n := 2; seen[id]; n++ {
				id = base + "#" + strconv.Itoa(n)
			}
			it.ID = id
			seen[id] = true
		default:
			dropped = append(dropped, it)
			continue
		}
		keyed = append(keyed, it)
	}
	return keyed, dropped
}
