/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"pageboard/internal/bundle"
	"pageboard/internal/config"
	"pageboard/internal/content"
	"pageboard/internal/crash"
	"pageboard/internal/dom"
	"pageboard/internal/editor"
	"pageboard/internal/export"
	applog "pageboard/internal/log"
	"pageboard/internal/persist"
	"pageboard/internal/server"
	"pageboard/internal/storage"
	"pageboard/internal/telemetry"
	"pageboard/internal/vector"
	"pageboard/internal/version"
)

func usage() {
	fmt.Println("pageboard: drag-and-drop page layout board")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pageboard version|-v|--version           Show version")
	fmt.Println("  pageboard serve [<dir>]                  Serve the editor for data dir <dir>")
	fmt.Println("  pageboard export <dir> <out.pdf>         Render the stored layout of <dir> to PDF")
	fmt.Println("  pageboard reindex <dir>                  Rebuild the upload index of <dir>")
	fmt.Println("  pageboard bundle <dir> <out.zip>         Pack layout and uploads of <dir> into a zip")
	fmt.Println("  pageboard unbundle <dir> <in.zip>        Install a bundle into <dir>, keeping existing files")
	fmt.Println("  pageboard arrange <url>                  Load, arrange and save the layout on a running server")
	fmt.Println("  pageboard drop <url> <file> <x> <y>      Drop a file at document point x,y on a running server")
}

func main() {
	cfg, cerr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cerr != nil {
		l.Warn("config not loaded; using defaults", slog.Any("err", cerr))
	}
	tcfg := telemetry.FromEnv()
	tcfg.OptIn = tcfg.OptIn || cfg.General.TelemetryOptIn
	tel := telemetry.New(tcfg)
	telemetry.SetDefault(tel)
	defer func() {
		tel.Flush(context.Background())
		tel.Close()
	}()

	var ws *storage.Workspace
	defer func() {
		if r := recover(); r != nil {
			crash.Handle(ws, r)
		}
	}()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println(version.String())
		return
	case "serve":
		dir := cfg.Server.DataDir
		if len(args) >= 3 {
			dir = args[2]
		}
		ws, err = storage.OpenWorkspace(dir)
		if err == nil {
			err = serve(ctx, cfg, ws, tel)
		}
	case "export":
		if len(args) < 4 {
			fmt.Println("export requires <dir> and <out.pdf>")
			usage()
			os.Exit(2)
		}
		ws, err = storage.OpenWorkspace(args[2])
		if err == nil {
			err = exportPDF(ctx, cfg, ws, args[3])
		}
	case "reindex":
		if len(args) < 3 {
			fmt.Println("reindex requires <dir>")
			usage()
			os.Exit(2)
		}
		ws, err = storage.OpenWorkspace(args[2])
		if err == nil {
			err = reindex(ctx, ws)
		}
	case "bundle", "unbundle":
		if len(args) < 4 {
			fmt.Printf("%s requires <dir> and <zip>\n", args[1])
			usage()
			os.Exit(2)
		}
		ws, err = storage.OpenWorkspace(args[2])
		if err != nil {
			break
		}
		var n int
		if args[1] == "bundle" {
			n, err = bundle.Export(ws, args[3])
		} else {
			n, err = bundle.Install(ws, args[3])
		}
		if err == nil {
			fmt.Printf("%s: %d file(s)\n", args[1], n)
		}
	case "arrange":
		if len(args) < 3 {
			fmt.Println("arrange requires <url>")
			usage()
			os.Exit(2)
		}
		err = arrange(ctx, cfg, args[2])
	case "drop":
		if len(args) < 6 {
			fmt.Println("drop requires <url> <file> <x> <y>")
			usage()
			os.Exit(2)
		}
		err = drop(ctx, cfg, args[2], args[3], args[4], args[5])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		l.Error("command failed", slog.String("cmd", args[1]), slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}

func positionsStore(ctx context.Context, cfg config.AppConfig, ws *storage.Workspace) (storage.PositionStore, func(), error) {
	if cfg.Database.PostgresDSN == "" {
		return storage.NewFilePositions(ws), func() {}, nil
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pg, err := storage.OpenPGPositions(pctx, cfg.Database.PostgresDSN)
	if err != nil {
		return nil, nil, err
	}
	return pg, func() { _ = pg.Close() }, nil
}

func pageLayout(cfg config.AppConfig) server.PageLayout {
	p := cfg.Pages
	return server.PageLayout{Count: p.Count, Width: p.Width, Height: p.Height, Margin: p.Margin, Gap: p.Gap}
}

func shellOptions(cfg config.AppConfig) dom.ShellOptions {
	p := cfg.Pages
	return dom.ShellOptions{Count: p.Count, Width: p.Width, Height: p.Height, Layout: dom.Layout{Margin: p.Margin, Gap: p.Gap}}
}

func editorOptions(cfg config.AppConfig) editor.Options {
	o := editor.DefaultOptions()
	e := cfg.Editor
	o.HistoryDepth = e.HistoryDepth
	o.Padding, o.Spacing = e.Padding, e.Spacing
	o.OpacityStep, o.ScaleStep, o.RotationStep = e.OpacityStep, e.ScaleStep, e.RotationStep
	return o
}

func serve(ctx context.Context, cfg config.AppConfig, ws *storage.Workspace, tel *telemetry.Client) error {
	positions, closeStore, err := positionsStore(ctx, cfg, ws)
	if err != nil {
		return err
	}
	defer closeStore()
	ix, err := storage.OpenUploadIndex(ws)
	if err != nil {
		return err
	}
	defer func() { _ = ix.Close() }()
	if list, err := ix.List(ctx); err == nil && len(list) == 0 {
		if n, err := ix.Rebuild(ctx, ws); err == nil && n > 0 {
			applog.WithComponent("cli").Info("upload index rebuilt", slog.Int("files", n))
		}
	}
	srv, err := server.New(server.Config{
		Workspace:      ws,
		Positions:      positions,
		Uploads:        ix,
		StaticDir:      cfg.Server.StaticDir,
		HotReload:      cfg.Server.HotReload,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		Pages:          pageLayout(cfg),
		Editor:         editorOptions(cfg),
		Telemetry:      tel,
	})
	if err != nil {
		return err
	}
	err = srv.ListenAndServe(ctx, cfg.Server.Addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func exportPDF(ctx context.Context, cfg config.AppConfig, ws *storage.Workspace, out string) error {
	positions, closeStore, err := positionsStore(ctx, cfg, ws)
	if err != nil {
		return err
	}
	defer closeStore()
	bridge := &server.LocalBridge{WS: ws, Positions: positions}
	sess, err := server.OpenLocalSession(ctx, bridge, server.SessionOptions{Shell: shellOptions(cfg), Editor: editorOptions(cfg)})
	if err != nil {
		return err
	}
	pages, items := export.FromSession(sess, bridge.ImageFile)
	abs, _ := filepath.Abs(out)
	if err := export.LayoutPDFFile(abs, pages, items, export.PDFOptions{IncludeLabels: true}); err != nil {
		return err
	}
	fmt.Printf("Exported %d item(s) on %d page(s) to %s\n", len(items), len(pages), abs)
	return nil
}

func reindex(ctx context.Context, ws *storage.Workspace) error {
	ix, err := storage.OpenUploadIndex(ws)
	if err != nil {
		return err
	}
	defer func() { _ = ix.Close() }()
	n, err := ix.Rebuild(ctx, ws)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d upload(s)\n", n)
	return nil
}

// remoteSession runs a headless editor against a running server.
func remoteSession(ctx context.Context, cfg config.AppConfig, url string) (*editor.Session, error) {
	client := persist.NewClient(url, cfg.Client.EffectiveTimeout())
	sess := editor.New(editor.Config{
		Doc:      dom.NewShell(shellOptions(cfg)),
		Resolver: content.NewResolver(client),
		Bridge:   client,
		Options:  editorOptions(cfg),
		Notifier: editor.NotifierFunc(func(msg string) { fmt.Fprintln(os.Stderr, msg) }),
	})
	if err := sess.Load(ctx); err != nil {
		return nil, err
	}
	return sess, nil
}

func arrange(ctx context.Context, cfg config.AppConfig, url string) error {
	sess, err := remoteSession(ctx, cfg, url)
	if err != nil {
		return err
	}
	if err := sess.Save(ctx); err != nil {
		return err
	}
	fmt.Printf("Arranged and saved %d item(s)\n", sess.Store.Len())
	return nil
}

func drop(ctx context.Context, cfg config.AppConfig, url, file, xs, ys string) error {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return fmt.Errorf("x: %w", err)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return fmt.Errorf("y: %w", err)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	sess, err := remoteSession(ctx, cfg, url)
	if err != nil {
		return err
	}
	ev := editor.FileDrop{Name: filepath.Base(file), Data: data, Point: vector.Pt{X: x, Y: y}}
	if err := sess.Dispatch(ctx, ev); err != nil {
		return err
	}
	fmt.Printf("Dropped %s; layout has %d item(s)\n", ev.Name, sess.Store.Len())
	return nil
}
