/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package dom

import (
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

type decl struct{ prop, value string }

// style is an ordered inline declaration list. Order is kept so that
// re-serialising an untouched attribute yields the same text.
type style []decl

func parseStyle(s string) style {
	var out style
	p := css.NewParser(parse.NewInputString(s), true)
	for {
		gt, _, data := p.Next()
		if gt == css.ErrorGrammar {
			break
		}
		if gt != css.DeclarationGrammar && gt != css.CustomPropertyGrammar {
			continue
		}
		var b strings.Builder
		for _, tok := range p.Values() {
			if tok.TokenType == css.WhitespaceToken {
				b.WriteByte(' ')
				continue
			}
			b.Write(tok.Data)
		}
		out = out.set(strings.ToLower(string(data)), strings.TrimSpace(b.String()))
	}
	return out
}

func (s style) get(prop string) (string, bool) {
	for _, d := range s {
		if d.prop == prop {
			return d.value, true
		}
	}
	return "", false
}

func (s style) set(prop, value string) style {
	for i := range s {
		if s[i].prop == prop {
			s[i].value = value
			return s
		}
	}
	return append(s, decl{prop, value})
}

func (s style) remove(prop string) style {
	out := s[:0]
	for _, d := range s {
		if d.prop != prop {
			out = append(out, d)
		}
	}
	return out
}

func (s style) String() string {
	parts := make([]string, 0, len(s))
	for _, d := range s {
		parts = append(parts, d.prop+": "+d.value)
	}
	return strings.Join(parts, "; ")
}
