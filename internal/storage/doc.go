/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements the server-side workspace.
// It handles the saved layout (positions.json) with transactional writes and timestamped backups,
// the uploaded files under user/, and the embedded SQLite upload index at <root>/.pgb/index.sqlite.
// An optional Postgres store keeps layout snapshots when a DSN is configured.
// The upload index is derived from user/ and can be rebuilt from it at any time.
package storage
