/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import "pageboard/internal/vector"

// Mods is the set of modifier keys held during an event.
type Mods uint8

const (
	ModShift Mods = 1 << iota
	ModCtrl
	ModAlt
	ModMeta
)

func (m Mods) Has(x Mods) bool { return m&x != 0 }

// Event is one input to Session.Dispatch. The set is closed.
type Event interface{ event() }

// DragStart grabs item ID at Point (document coordinates).
type DragStart struct {
	ID    string
	Point vector.Pt
}

// DragOver reports pointer movement during a drag.
type DragOver struct{ Point vector.Pt }

// Drop releases the dragged item at Point.
type Drop struct{ Point vector.Pt }

// DragCancel abandons the current drag.
type DragCancel struct{}

// Wheel is one wheel tick over item ID; DeltaY < 0 scrolls up.
type Wheel struct {
	ID     string
	DeltaY float64
	Mods   Mods
}

// Click selects item ID; an empty ID clears the selection.
type Click struct{ ID string }

// KeyDown carries a key name as reported by the browser ("Delete", "z", ...).
type KeyDown struct {
	Key  string
	Mods Mods
}

// FileDragOver reports an external file hovering at Point.
type FileDragOver struct{ Point vector.Pt }

// FileDrop delivers a dropped file.
type FileDrop struct {
	Name  string
	Data  []byte
	Point vector.Pt
}

// Reload is the server's hot-reload signal.
type Reload struct{ Message string }

func (DragStart) event()    {}
func (DragOver) event()     {}
func (Drop) event()         {}
func (DragCancel) event()   {}
func (Wheel) event()        {}
func (Click) event()        {}
func (KeyDown) event()      {}
func (FileDragOver) event() {}
func (FileDrop) event()     {}
func (Reload) event()       {}
