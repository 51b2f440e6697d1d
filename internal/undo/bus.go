/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo implements the command bus: a linear history of reversible
// commands with optional coalescing of consecutive edits and a bounded depth.
package undo

import "time"

// Command is a reversible mutation. Do must be repeatable after Undo so the
// command can be redone.
type Command interface {
	Name() string
	Do()
	Undo()
}

// Merger is implemented by commands that can absorb a following command of
// the same kind, e.g. the many frame updates of a single drag.
type Merger interface {
	// MergeKey groups commands that may merge. Commands sharing a name are
	// offered to MergeWith whatever their keys; an empty key matches nothing.
	MergeKey() string
	// MergeWith folds next into the receiver and reports whether it did.
	// After a successful merge the receiver's Undo must restore the state
	// before the receiver, and its Do the state after next.
	MergeWith(next Command) bool
}

// Func adapts closures to Command and Merger.
type Func struct {
	Label   string
	Key     string
	DoFn    func()
	UndoFn  func()
	MergeFn func(next Command) bool
}

func (f *Func) Name() string { return f.Label }

func (f *Func) Do() {
	if f.DoFn != nil {
		f.DoFn()
	}
}

func (f *Func) Undo() {
	if f.UndoFn != nil {
		f.UndoFn()
	}
}

func (f *Func) MergeKey() string { return f.Key }

func (f *Func) MergeWith(next Command) bool {
	if f.MergeFn == nil {
		return false
	}
	return f.MergeFn(next)
}

// Config controls history depth and coalescing.
type Config struct {
	// Limit caps the number of undoable entries. Default 100.
	Limit int
	// MergeWindow, when positive, only merges commands executed within the
	// window of the previous one.
	MergeWindow time.Duration
	// Now is the clock used for the merge window; defaults to time.Now.
	Now func() time.Time
}

// ExecOptions tune a single Execute call.
type ExecOptions struct {
	Merge bool
}

type entry struct {
	cmd Command
	at  time.Time
}

// Bus records executed commands on a done stack and undone commands on a
// redo stack. It is not safe for concurrent use; the engine owns it.
type Bus struct {
	cfg    Config
	done   []entry
	undone []entry
	merged int
	evict  int
}

// DefaultLimit is the history depth used when Config.Limit is not positive.
const DefaultLimit = 100

func New(cfg Config) *Bus {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Bus{cfg: cfg}
}

// Execute runs cmd.Do and records it. With opts.Merge the command is folded
// into the previous entry when both share a merge key or a name and the
// previous command accepts it. Executing always clears the redo stack.
func (b *Bus) Execute(cmd Command, opts ExecOptions) {
	if cmd == nil {
		return
	}
	now := b.cfg.Now()
	cmd.Do()
	b.undone = nil

	if opts.Merge && b.tryMerge(cmd, now) {
		return
	}
	b.done = append(b.done, entry{cmd: cmd, at: now})
	b.enforceLimit()
}

func (b *Bus) tryMerge(cmd Command, now time.Time) bool {
	n := len(b.done)
	if n == 0 {
		return false
	}
	last := &b.done[n-1]
	if b.cfg.MergeWindow > 0 && now.Sub(last.at) > b.cfg.MergeWindow {
		return false
	}
	lk, ck := mergeKey(last.cmd), mergeKey(cmd)
	if (lk == "" || lk != ck) && last.cmd.Name() != cmd.Name() {
		return false
	}
	m, ok := last.cmd.(Merger)
	if !ok || !m.MergeWith(cmd) {
		return false
	}
	last.at = now
	b.merged++
	return true
}

func mergeKey(c Command) string {
	if m, ok := c.(Merger); ok {
		return m.MergeKey()
	}
	return ""
}

// Undo reverts the most recent command. It returns false when there is
// nothing to undo.
func (b *Bus) Undo() bool {
	n := len(b.done)
	if n == 0 {
		return false
	}
	e := b.done[n-1]
	b.done = b.done[:n-1]
	e.cmd.Undo()
	b.undone = append(b.undone, e)
	return true
}

// Redo re-applies the most recently undone command.
func (b *Bus) Redo() bool {
	n := len(b.undone)
	if n == 0 {
		return false
	}
	e := b.undone[n-1]
	b.undone = b.undone[:n-1]
	e.cmd.Do()
	b.done = append(b.done, e)
	b.enforceLimit()
	return true
}

func (b *Bus) CanUndo() bool { return len(b.done) > 0 }
func (b *Bus) CanRedo() bool { return len(b.undone) > 0 }

// Len returns the number of undoable entries.
func (b *Bus) Len() int { return len(b.done) }

// Clear drops both stacks. Used when a different document is loaded.
func (b *Bus) Clear() {
	b.done = nil
	b.undone = nil
}

// SetLimit changes the history depth, evicting the oldest entries if needed.
func (b *Bus) SetLimit(limit int) {
	b.cfg.Limit = max(1, limit)
	b.enforceLimit()
}

// Peek returns the name of the command Undo would revert.
func (b *Bus) Peek() (string, bool) {
	if len(b.done) == 0 {
		return "", false
	}
	return b.done[len(b.done)-1].cmd.Name(), true
}

// Stats reports history sizes for diagnostics.
type Stats struct {
	Done    int
	Undone  int
	Limit   int
	Merged  int
	Evicted int
}

func (b *Bus) Stats() Stats {
	return Stats{Done: len(b.done), Undone: len(b.undone), Limit: b.cfg.Limit, Merged: b.merged, Evicted: b.evict}
}

// enforceLimit drops the oldest entries without undoing them; their effect
// stays in the document, only the ability to revert it is lost.
func (b *Bus) enforceLimit() {
	if over := len(b.done) - b.cfg.Limit; over > 0 {
		clear(b.done[:over])
		b.done = append([]entry(nil), b.done[over:]...)
		b.evict += over
	}
}
