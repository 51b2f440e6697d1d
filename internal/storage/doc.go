/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package storage persists calendar documents.
// A document is a folder holding the canonical scene manifest (calendar.json), written transactionally with
// timestamped backups, plus a per-document SQLite index at <document>/.calcanvas/index.sqlite. The index keeps
// autosave snapshots, the export history, page preview thumbnails and a full-text index over layer text.
// Everything in the index except snapshots is derived from calendar.json and can be rebuilt at any time.
package storage
