/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package parser

import (
	"errors"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ImageParser treats content as the image URL.
type ImageParser struct{}

func (ImageParser) Parse(content, filename string) (Result, error) {
	src := strings.TrimSpace(content)
	if src == "" {
		return Result{}, errors.New("image source is empty")
	}
	if filename == "" {
		filename = path.Base(src)
	}
	img := &html.Node{Type: html.ElementNode, Data: "img", DataAtom: atom.Img}
	img.Attr = []html.Attribute{
		{Key: "src", Val: src},
		{Key: "alt", Val: filename},
		{Key: "draggable", Val: "false"},
	}
	return Result{Node: img}, nil
}
