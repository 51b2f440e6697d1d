/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

// setCmd assigns a value to a shared int and remembers the previous one.
type setCmd struct {
	target *int
	before int
	after  int
	key    string
}

func set(target *int, v int) *setCmd {
	return &setCmd{target: target, before: *target, after: v}
}

func (c *setCmd) Name() string { return "set" }
func (c *setCmd) Do()          { *c.target = c.after }
func (c *setCmd) Undo()        { *c.target = c.before }

type mergingSet struct{ *setCmd }

func (c mergingSet) MergeKey() string { return c.key }
func (c mergingSet) MergeWith(next Command) bool {
	n, ok := next.(mergingSet)
	if !ok || n.target != c.target {
		return false
	}
	c.after = n.after
	return true
}

func TestUndoRedoBasic(t *testing.T) {
	v := 0
	b := New(Config{})
	b.Execute(set(&v, 1), ExecOptions{})
	b.Execute(set(&v, 2), ExecOptions{})
	if v != 2 || b.Len() != 2 {
		t.Fatalf("expected v=2 with 2 entries, got v=%d len=%d", v, b.Len())
	}
	if !b.Undo() || v != 1 {
		t.Fatalf("undo expected v=1, got %d", v)
	}
	if !b.CanRedo() {
		t.Fatalf("expected redo to be available")
	}
	if !b.Redo() || v != 2 {
		t.Fatalf("redo expected v=2, got %d", v)
	}
	b.Undo()
	b.Undo()
	if v != 0 {
		t.Fatalf("expected initial value after undoing everything, got %d", v)
	}
	if b.Undo() {
		t.Fatalf("undo on empty history must report false")
	}
}

func TestExecuteClearsRedo(t *testing.T) {
	v := 0
	b := New(Config{})
	b.Execute(set(&v, 1), ExecOptions{})
	b.Undo()
	b.Execute(set(&v, 5), ExecOptions{})
	if b.CanRedo() {
		t.Fatalf("new command must clear the redo stack")
	}
	if b.Redo() {
		t.Fatalf("redo on empty stack must report false")
	}
}

func TestHistoryBound(t *testing.T) {
	v := 0
	b := New(Config{Limit: 100})
	for i := 1; i <= 150; i++ {
		b.Execute(set(&v, i), ExecOptions{})
	}
	if b.Len() != 100 {
		t.Fatalf("expected 100 entries, got %d", b.Len())
	}
	n := 0
	for b.Undo() {
		n++
	}
	if n != 100 {
		t.Fatalf("expected 100 undo steps, got %d", n)
	}
	// the 50 evicted commands stay applied
	if v != 50 {
		t.Fatalf("expected value of the last evicted command, got %d", v)
	}
	if st := b.Stats(); st.Evicted != 50 || st.Undone != 100 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestMergeCoalescing(t *testing.T) {
	v := 0
	b := New(Config{})
	first := mergingSet{set(&v, 1)}
	first.key = "drag:a"
	b.Execute(first, ExecOptions{Merge: true})
	second := mergingSet{set(&v, 2)}
	second.key = "drag:a"
	b.Execute(second, ExecOptions{Merge: true})

	if b.Len() != 1 {
		t.Fatalf("expected a single history entry, got %d", b.Len())
	}
	if !b.Undo() || v != 0 {
		t.Fatalf("undo should revert to the state before the first command, got %d", v)
	}
	if !b.Redo() || v != 2 {
		t.Fatalf("redo should apply the merged result, got %d", v)
	}
}

func TestMergeRequiresOptionKeyAndPredicate(t *testing.T) {
	v := 0
	b := New(Config{})
	a := mergingSet{set(&v, 1)}
	a.key = "k1"
	b.Execute(a, ExecOptions{Merge: true})

	c := mergingSet{set(&v, 2)}
	c.key = "k1"
	b.Execute(c, ExecOptions{})
	if b.Len() != 2 {
		t.Fatalf("merge without option must push, got %d", b.Len())
	}

	// a different key with the same name is still offered to MergeWith
	d := mergingSet{set(&v, 3)}
	d.key = "k2"
	b.Execute(d, ExecOptions{Merge: true})
	if b.Len() != 2 || v != 3 {
		t.Fatalf("same-name command should merge, got len %d v %d", b.Len(), v)
	}
	if !b.Undo() || v != 1 {
		t.Fatalf("undo of merged entry expected v=1, got %d", v)
	}
	b.Redo()

	// the predicate still decides
	w := 0
	e := mergingSet{set(&w, 9)}
	e.key = "k2"
	b.Execute(e, ExecOptions{Merge: true})
	if b.Len() != 3 {
		t.Fatalf("MergeWith rejecting another target must push, got %d", b.Len())
	}

	// plain commands without a predicate never merge even with equal names
	b.Execute(set(&v, 4), ExecOptions{Merge: true})
	b.Execute(set(&v, 5), ExecOptions{Merge: true})
	if b.Len() != 5 {
		t.Fatalf("commands without MergeWith must not merge, got %d", b.Len())
	}
}

func TestMergeNeedsKeyOrName(t *testing.T) {
	v := 0
	b := New(Config{})
	b.Execute(&Func{Label: "move", Key: "a", MergeFn: func(Command) bool { return true }}, ExecOptions{Merge: true})
	b.Execute(&Func{Label: "resize", Key: "b", DoFn: func() { v++ }}, ExecOptions{Merge: true})
	if b.Len() != 2 || v != 1 {
		t.Fatalf("different key and name must push, got len %d v %d", b.Len(), v)
	}
	b.Execute(&Func{Label: "rotate", Key: "b"}, ExecOptions{Merge: true})
	if b.Len() != 3 {
		t.Fatalf("resize has no MergeFn, got len %d", b.Len())
	}
}

func TestMergeWindow(t *testing.T) {
	v := 0
	now := time.Date(2024, 2, 15, 12, 0, 0, 0, time.UTC)
	b := New(Config{MergeWindow: 100 * time.Millisecond, Now: func() time.Time { return now }})
	b.Execute(mergingSet{set(&v, 1)}, ExecOptions{Merge: true})
	now = now.Add(50 * time.Millisecond)
	b.Execute(mergingSet{set(&v, 2)}, ExecOptions{Merge: true})
	now = now.Add(time.Second)
	b.Execute(mergingSet{set(&v, 3)}, ExecOptions{Merge: true})
	if b.Len() != 2 {
		t.Fatalf("expected window to split history into 2 entries, got %d", b.Len())
	}
	if st := b.Stats(); st.Merged != 1 {
		t.Fatalf("expected one merge, got %+v", st)
	}
}

func TestFuncAdapterAndSetLimit(t *testing.T) {
	var log []string
	b := New(Config{Limit: 10})
	for i := 0; i < 5; i++ {
		b.Execute(&Func{
			Label:  "append",
			DoFn:   func() { log = append(log, "do") },
			UndoFn: func() { log = append(log, "undo") },
		}, ExecOptions{})
	}
	b.SetLimit(2)
	if b.Len() != 2 {
		t.Fatalf("SetLimit should evict down to 2, got %d", b.Len())
	}
	if name, ok := b.Peek(); !ok || name != "append" {
		t.Fatalf("unexpected peek %q %v", name, ok)
	}
	b.Clear()
	if b.CanUndo() || b.CanRedo() {
		t.Fatalf("clear should empty both stacks")
	}
	if len(log) != 5 {
		t.Fatalf("evictions and clear must not call undo, log=%v", log)
	}
}
