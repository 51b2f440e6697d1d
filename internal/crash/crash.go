/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report, a crash snapshot of the
// open document and a non-zero exit.
package crash

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "calendarcanvas/internal/log"
	"calendarcanvas/internal/scene"
	"calendarcanvas/internal/storage"
	"calendarcanvas/internal/telemetry"
	"calendarcanvas/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// ExitCode is the process status after a recovered panic.
const ExitCode = 2

type options struct {
	current  func() *scene.Scene
	uploader *telemetry.Client
}

type Option func(*options)

// WithScene supplies the live scene, usually Engine.Serialize. Without it
// the scene loaded with the document is saved.
func WithScene(fn func() *scene.Scene) Option { return func(o *options) { o.current = fn } }

// WithUploader sends the report through an opt-in telemetry client.
func WithUploader(c *telemetry.Client) Option { return func(o *options) { o.uploader = c } }

// Recover captures a panic, logs it with the stack, writes a report file and
// stores a crash snapshot of the document when one is open.
//
// Usage: defer crash.Recover(doc, crash.WithScene(eng.Serialize))
func Recover(doc *storage.Document, opts ...Option) {
	r := recover()
	if r == nil {
		return
	}
	var o options
	for _, fn := range opts {
		fn(&o)
	}
	handle(doc, o, r, debug.Stack())
	exitFn(ExitCode)
}

func handle(doc *storage.Document, o options, panicVal any, stack []byte) {
	l := applog.WithComponent("crash")
	l.Error("panic recovered", slog.Any("panic", panicVal), slog.String("stack", string(stack)))

	report := buildReport(doc, panicVal, stack, time.Now())
	path, err := writeReport(doc, report)
	if err != nil {
		l.Error("crash report not written", slog.Any("err", err), slog.String("path", path))
	}

	if doc != nil {
		if id, err := snapshot(doc, o.current); err != nil {
			l.Error("crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("crash snapshot written", slog.Int64("id", id))
		}
	}

	if o.uploader != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := o.uploader.UploadCrash(ctx, report); err != nil && !errors.Is(err, telemetry.ErrDisabled) {
			l.Warn("crash upload failed", slog.Any("err", err))
		}
		cancel()
	}

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", path); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
}

// snapshot saves the live scene when available, so unsaved edits survive.
func snapshot(doc *storage.Document, current func() *scene.Scene) (id int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("scene source panicked: %v", r)
		}
	}()
	target := doc
	if current != nil {
		if sc := current(); sc != nil {
			cp := *doc
			cp.Scene = sc
			target = &cp
		}
	}
	return storage.AutosaveCrashSnapshot(target)
}

func buildReport(doc *storage.Document, panicVal any, stack []byte, now time.Time) []byte {
	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "CalendarCanvas Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", now.Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if doc != nil {
		_, _ = fmt.Fprintf(&buf, "DocumentRoot: %s\n", doc.Root)
		_, _ = fmt.Fprintf(&buf, "Manifest: %s\n", doc.ManifestPath)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))
	return buf.Bytes()
}

// writeReport stores the report in the document's backups folder, or the
// temp dir when no document is open.
func writeReport(doc *storage.Document, report []byte) (string, error) {
	dir := os.TempDir()
	if doc != nil && doc.Root != "" {
		dir = filepath.Join(doc.Root, storage.BackupsDirName)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return dir, err
		}
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405.000")))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()
	if _, err := f.Write(report); err != nil {
		return path, err
	}
	return path, f.Sync()
}
