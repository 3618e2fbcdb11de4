/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"net/http"
)

// Error taxonomy shared by content resolution, the persistence bridge and
// the editor. Every type unwraps to its cause so errors.Is keeps working.

// FetchError reports a network failure or a non-2xx response.
type FetchError struct {
	URL    string
	Status int // 0 when the request never got a response
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %d %s", e.URL, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports a failing content parser.
type ParseError struct {
	Filename string
	Parser   string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s with %s parser: %v", e.Filename, e.Parser, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// NotFoundError means nothing has been persisted yet. It is not a failure.
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string { return e.What + " not found" }

// PersistenceError reports a failed save. Editing continues.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return "save positions: " + e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }

// PlacementError aborts the placement of a single item.
type PlacementError struct {
	ID     string
	Reason string
}

func (e *PlacementError) Error() string {
	if e.ID == "" {
		return "placement: " + e.Reason
	}
	return fmt.Sprintf("placement of %s: %s", e.ID, e.Reason)
}
