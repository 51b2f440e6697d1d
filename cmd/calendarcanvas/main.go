/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"calendarcanvas/internal/config"
	"calendarcanvas/internal/crash"
	applog "calendarcanvas/internal/log"
	"calendarcanvas/internal/telemetry"
	"calendarcanvas/internal/version"
)

func usage() {
	fmt.Println("CalendarCanvas")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  calendarcanvas version|-v|--version              Show version")
	fmt.Println("  calendarcanvas init <dir> <title> [year month]   Create a calendar document at <dir>")
	fmt.Println("  calendarcanvas open <dir>                        Open a document, check its index and print a summary")
	fmt.Println("  calendarcanvas recover <dir>                     Write the newest autosave draft back to the manifest")
	fmt.Println("  calendarcanvas month <year> <month> [weekStart]  Print a month grid")
	fmt.Println("  calendarcanvas render <dir> <out.png> [page]     Render the editor view of a page")
	fmt.Println("  calendarcanvas export <dir> <web|print> [fmt..]  Batch export pages")
	fmt.Println("  calendarcanvas snapshots <dir>                   List autosave snapshots")
	fmt.Println("  calendarcanvas search <dir> <text>               Search layer text")
	fmt.Println("  calendarcanvas themes <dir> [export <zip>|install <zip>]")
}

// app carries what every command needs.
type app struct {
	cfg config.AppConfig
	tel *telemetry.Client
	log *slog.Logger
}

func main() {
	cfg, cfgErr := config.Load()
	applog.Init(cfg.LogOptions())
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config not loaded, using defaults", slog.Any("err", cfgErr))
		cfg = config.Defaults()
	}

	tcfg, err := telemetry.FromEnv()
	if err != nil {
		l.Warn("telemetry config", slog.Any("err", err))
	}
	tcfg.OptIn = tcfg.OptIn || cfg.General.TelemetryOptIn
	tel := telemetry.New(tcfg)
	defer tel.Close()
	defer crash.Recover(nil, crash.WithUploader(tel))

	a := &app{cfg: cfg, tel: tel, log: l}
	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}

	var runErr error
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("CalendarCanvas")
		fmt.Println(version.String())
		return
	case "init":
		if len(args) < 4 {
			fail("init requires <dir> and <title>")
		}
		runErr = a.initDocument(args[2], args[3], args[4:])
	case "open":
		if len(args) < 3 {
			fail("open requires <dir>")
		}
		runErr = a.open(args[2])
	case "recover":
		if len(args) < 3 {
			fail("recover requires <dir>")
		}
		runErr = a.recoverDraft(args[2])
	case "month":
		if len(args) < 4 {
			fail("month requires <year> and <month>")
		}
		runErr = a.month(args[2], args[3], args[4:])
	case "render":
		if len(args) < 4 {
			fail("render requires <dir> and <out.png>")
		}
		runErr = a.render(args[2], args[3], args[4:])
	case "export":
		if len(args) < 4 {
			fail("export requires <dir> and <preset>")
		}
		runErr = a.export(args[2], args[3], args[4:])
	case "snapshots":
		if len(args) < 3 {
			fail("snapshots requires <dir>")
		}
		runErr = a.snapshots(args[2])
	case "search":
		if len(args) < 4 {
			fail("search requires <dir> and <text>")
		}
		runErr = a.search(args[2], args[3])
	case "themes":
		if len(args) < 3 {
			fail("themes requires <dir>")
		}
		runErr = a.themes(args[2], args[3:])
	default:
		usage()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), telemetryFlush)
	tel.Flush(ctx)
	cancel()
	if runErr != nil {
		l.Error(args[1]+" failed", slog.Any("err", runErr))
		fmt.Println("Error:", runErr)
		os.Exit(1)
	}
}

func fail(msg string) {
	fmt.Println(msg)
	usage()
	os.Exit(2)
}
