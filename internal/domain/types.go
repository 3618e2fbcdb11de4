/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the layout data model shared by the editor core, the
// persistence bridge and the server. Records are plain values: copying a
// map of them is a full structural copy.

import (
	"math"
	"strconv"
	"strings"
)

const (
	// MinOpacity is the lowest opacity a record can carry; lower values clamp to it.
	MinOpacity = 0.05
	// DefaultLength is used for left/top when a record is created without them.
	DefaultLength = "0px"
)

// ItemRecord is the placement/transform record of one visual item.
// The zero value of every optional field means "absent".
type ItemRecord struct {
	Left       string  `json:"left"`
	Top        string  `json:"top"`
	Width      string  `json:"width,omitempty"`
	Height     string  `json:"height,omitempty"`
	PageIndex  int     `json:"pageIndex"`
	Opacity    float64 `json:"opacity,omitempty"`
	Scale      string  `json:"scale,omitempty"`
	Rotation   int     `json:"rotation,omitempty"`
	ParserKind string  `json:"parserKind,omitempty"`
	SourcePath string  `json:"sourcePath,omitempty"`
}

// Patch is a partial ItemRecord; nil fields are left untouched by a merge.
// Setting a field to its "absent" value (e.g. Opacity 1, Rotation 0, Width "")
// clears it after normalization.
type Patch struct {
	Left       *string
	Top        *string
	Width      *string
	Height     *string
	PageIndex  *int
	Opacity    *float64
	Scale      *string
	Rotation   *int
	ParserKind *string
	SourcePath *string
}

// SavedItem is the wire form of a record: the record plus its identifier.
type SavedItem struct {
	ID string `json:"id,omitempty"`
	ItemRecord
}

// NewRecord returns a record with the default position.
func NewRecord() ItemRecord {
	return ItemRecord{Left: DefaultLength, Top: DefaultLength}
}

// Apply merges p into r and returns the normalized result.
func (r ItemRecord) Apply(p Patch) ItemRecord {
	if p.Left != nil {
		r.Left = *p.Left
	}
	if p.Top != nil {
		r.Top = *p.Top
	}
	if p.Width != nil {
		r.Width = *p.Width
	}
	if p.Height != nil {
		r.Height = *p.Height
	}
	if p.PageIndex != nil {
		r.PageIndex = *p.PageIndex
	}
	if p.Opacity != nil {
		// A stored zero means absent; an explicit zero is the faintest value.
		r.Opacity = *p.Opacity
		if r.Opacity == 0 {
			r.Opacity = MinOpacity
		}
	}
	if p.Scale != nil {
		r.Scale = *p.Scale
	}
	if p.Rotation != nil {
		r.Rotation = *p.Rotation
	}
	if p.ParserKind != nil {
		r.ParserKind = *p.ParserKind
	}
	if p.SourcePath != nil {
		r.SourcePath = *p.SourcePath
	}
	return r.Normalize()
}

// Normalize drops values that equal their defaults so serialized records stay minimal.
func (r ItemRecord) Normalize() ItemRecord {
	if strings.TrimSpace(r.Left) == "" {
		r.Left = DefaultLength
	}
	if strings.TrimSpace(r.Top) == "" {
		r.Top = DefaultLength
	}
	if r.PageIndex < 0 {
		r.PageIndex = 0
	}
	r.Opacity = NormalizeOpacity(r.Opacity)
	r.Scale = NormalizeScale(r.Scale)
	r.Rotation = NormalizeRotation(r.Rotation)
	return r
}

// NormalizeOpacity maps o onto the stored representation: 0 (absent) for
// fully opaque, otherwise a 2-decimal value in [MinOpacity, 1).
func NormalizeOpacity(o float64) float64 {
	if o == 0 || math.IsNaN(o) {
		return 0
	}
	o = math.Round(o*100) / 100
	if o >= 1 {
		return 0
	}
	if o < MinOpacity {
		return MinOpacity
	}
	return o
}

// EffectiveOpacity returns the rendered opacity (absent means 1).
func (r ItemRecord) EffectiveOpacity() float64 {
	if r.Opacity == 0 {
		return 1
	}
	return r.Opacity
}

// NormalizeScale returns "" for unscaled, unparsable or non-positive factors,
// otherwise the canonical 2-decimal spelling of the factor.
func NormalizeScale(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return ""
	}
	f = math.Round(f*100) / 100
	if f == 1 || f <= 0 {
		return ""
	}
	return FormatNumber(f)
}

// EffectiveScale returns the numeric scale factor (absent means 1).
func (r ItemRecord) EffectiveScale() float64 {
	if r.Scale == "" {
		return 1
	}
	f, err := strconv.ParseFloat(r.Scale, 64)
	if err != nil || f <= 0 {
		return 1
	}
	return f
}

// NormalizeRotation reduces degrees modulo 360; a full turn is "unrotated".
func NormalizeRotation(deg int) int { return deg % 360 }

// Transform returns the CSS transform string for the record.
func (r ItemRecord) Transform() string {
	scale := r.Scale
	if scale == "" {
		scale = "1"
	}
	return "rotate(" + strconv.Itoa(r.Rotation) + "deg) scale(" + scale + ")"
}

// Position returns left/top in pixels. Unparsable lengths read as 0.
func (r ItemRecord) Position() (x, y float64) {
	x, _ = ParsePx(r.Left)
	y, _ = ParsePx(r.Top)
	return x, y
}

// Ptr returns a pointer to v; handy for building a Patch.
func Ptr[T any](v T) *T { return &v }

// PositionPatch builds a Patch that moves an item to (x, y) on page.
func PositionPatch(x, y float64, page int) Patch {
	return Patch{Left: Ptr(Px(x)), Top: Ptr(Px(y)), PageIndex: Ptr(page)}
}

// Positions is the load/save wire envelope.
type Positions struct {
	Objects []SavedItem `json:"objects"`
}

// UploadResult is the server's answer to a file upload.
type UploadResult struct {
	Success  bool   `json:"success"`
	Filename string `json:"filename"`
	Path     string `json:"path"`
}
