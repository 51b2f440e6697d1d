/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */
package render

import (
	"context"
	"errors"
	"sync"
	"time"
)

// FrameScheduler runs a callback on the next display refresh.
type FrameScheduler interface {
	RequestFrame(fn func())
}

// ManualFrames queues frame callbacks until the host calls Flush. It gives
// tests and headless exports full control over when painting happens.
type ManualFrames struct {
	mu      sync.Mutex
	pending []func()
}

func (m *ManualFrames) RequestFrame(fn func()) {
	m.mu.Lock()
	m.pending = append(m.pending, fn)
	m.mu.Unlock()
}

// Pending is the number of queued callbacks.
func (m *ManualFrames) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Flush runs the callbacks queued so far and returns how many ran. Frames
// requested while flushing run on the next Flush.
func (m *ManualFrames) Flush() int {
	m.mu.Lock()
	run := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, fn := range run {
		fn()
	}
	return len(run)
}

// DefaultFrameInterval is the tick of Loop when no interval is given.
const DefaultFrameInterval = 16 * time.Millisecond

// ErrLoopStopped is returned by Post after Run has exited.
var ErrLoopStopped = errors.New("render loop stopped")

// Loop is a single goroutine that owns the engine and renderer. Work posted
// with Post and frame callbacks both run on that goroutine, so neither needs
// locking. Frames fire on a fixed ticker.
type Loop struct {
	interval time.Duration
	work     chan func()
	done     chan struct{}

	mu     sync.Mutex
	frames []func()
	once   sync.Once
}

// NewLoop returns a loop ticking every interval (DefaultFrameInterval if <= 0).
func NewLoop(interval time.Duration) *Loop {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Loop{interval: interval, work: make(chan func()), done: make(chan struct{})}
}

func (l *Loop) RequestFrame(fn func()) {
	l.mu.Lock()
	l.frames = append(l.frames, fn)
	l.mu.Unlock()
}

// Post runs fn on the loop goroutine and waits until it has been accepted.
func (l *Loop) Post(ctx context.Context, fn func()) error {
	select {
	case l.work <- fn:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes posted work and frames until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer l.once.Do(func() { close(l.done) })
	t := time.NewTicker(l.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.work:
			fn()
		case <-t.C:
			l.mu.Lock()
			run := l.frames
			l.frames = nil
			l.mu.Unlock()
			for _, fn := range run {
				fn()
			}
		}
	}
}
