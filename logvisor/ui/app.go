// Copyright 2026 The Logvisor Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use file except in compliance with the License.
// You may obtain a copy of the license at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ui implements the terminal control surface of the logvisor
// client.
package ui

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"

	"github.com/nutrilab/logvisor/internal/logging"
	"github.com/nutrilab/logvisor/logvisor/util"
	"github.com/nutrilab/logvisor/rest"
)

const (
	// RefreshInterval is how often the process list is reloaded.
	RefreshInterval = 200 * time.Millisecond

	// MaxLogLines is how many lines the log panel keeps.
	MaxLogLines = 1000
)

var errNotFound = errors.New("Process not found")

// Client is the part of rest.Client the UI uses.
type Client interface {
	Processes() ([]string, error)
	GetProcess(label string) (*rest.ProcessInfo, error)
	ToggleProcess(label string) error
	StopProcess(label string, timeout time.Duration) error
	WatchLog(ctx context.Context, label string, last *rest.LogInfo) (*rest.LogInfo, error)
	SetAuth(user, pass string)
}

// App is the root widget.  It owns the panels and the data they
// display, which is only touched on the application goroutine.
type App struct {
	app       *views.Application
	view      views.View
	panel     views.Widget
	info      *InfoPanel
	help      *HelpPanel
	log       *LogPanel
	main      *MainPanel
	auth      *AuthPanel
	client    Client
	server    string
	logger    *slog.Logger
	err       error
	items     []*rest.ProcessInfo
	logName   string
	logRecs   []rest.LogRecord
	logErr    error
	logCancel context.CancelFunc
	quit      chan struct{}
	once      sync.Once

	views.WidgetWatchers
}

func (a *App) show(w views.Widget) {
	if w != a.panel {
		a.panel.SetView(nil)
		a.panel = w
	}
	a.panel.SetView(a.view)
	a.panel.Resize()
	a.app.Refresh()
}

func (a *App) ShowHelp() {
	a.show(a.help)
}

func (a *App) ShowInfo(label string) {
	a.info.SetName(label)
	a.show(a.info)
}

func (a *App) ShowAuth() {
	a.auth.ResetFields()
	a.show(a.auth)
}

func (a *App) ShowLog(label string) {
	if a.logCancel != nil {
		a.logCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.logRecs = nil
	a.logErr = nil
	a.logName = label
	a.logCancel = cancel
	a.log.SetName(label)
	go a.refreshLog(ctx, label)

	a.show(a.log)
}

func (a *App) ShowMain() {
	a.show(a.main)
}

// ToggleProcess starts or stops the process, off the UI goroutine as a
// stop may take a while.
func (a *App) ToggleProcess(label string) {
	go func() {
		if e := a.client.ToggleProcess(label); e != nil {
			a.logger.Warn("toggle failed", "label", label, "error", e)
		}
	}()
}

func (a *App) StopProcess(label string) {
	go func() {
		if e := a.client.StopProcess(label, 0); e != nil {
			a.logger.Warn("stop failed", "label", label, "error", e)
		}
	}()
}

func (a *App) SetUserPassword(user, pass string) {
	a.client.SetAuth(user, pass)
}

func (a *App) Quit() {
	/* This just posts the quit event. */
	a.app.Quit()
}

func (a *App) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = logging.Discard()
	}
	a.logger = logger
}

func (a *App) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		// Intercept a few control keys up front, for global handling.
		case tcell.KeyCtrlC:
			a.Quit()
			return true
		case tcell.KeyCtrlL:
			a.app.Refresh()
			return true
		}
	}

	if a.panel != nil {
		return a.panel.HandleEvent(ev)
	}
	return false
}

func (a *App) Draw() {
	if a.panel != nil {
		a.panel.Draw()
	}
}

func (a *App) Resize() {
	if a.panel != nil {
		a.panel.Resize()
	}
}

func (a *App) SetView(view views.View) {
	a.view = view
	if a.panel != nil {
		a.panel.SetView(view)
	}
}

func (a *App) Size() (int, int) {
	if a.panel != nil {
		return a.panel.Size()
	}
	return 0, 0
}

func (a *App) Server() string {
	return a.server
}

func (a *App) GetAppName() string {
	return "Logvisor v1.0"
}

func NewApp(client Client, server string) *App {
	app := &App{
		app:    &views.Application{},
		client: client,
		server: server,
		quit:   make(chan struct{}),
	}
	app.SetLogger(nil)
	app.info = NewInfoPanel(app)
	app.help = NewHelpPanel(app)
	app.log = NewLogPanel(app)
	app.main = NewMainPanel(app)
	app.auth = NewAuthPanel(app)
	app.panel = app.main
	return app
}

func (a *App) getItems() ([]*rest.ProcessInfo, error) {
	labels, e := a.client.Processes()
	if e != nil {
		return nil, e
	}
	items := make([]*rest.ProcessInfo, 0, len(labels))
	for _, l := range labels {
		item, e := a.client.GetProcess(l)
		if e == nil {
			items = append(items, item)
		}
	}
	util.SortProcesses(items)
	return items, nil
}

// refresh keeps the app items current
func (a *App) refresh() {
	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()
	for {
		items, e := a.getItems()
		a.app.PostFunc(func() {
			a.items = items
			a.err = e
			a.app.Update()
		})
		select {
		case <-a.quit:
			return
		case <-ticker.C:
		}
	}
}

func (a *App) refreshLog(ctx context.Context, label string) {
	var last *rest.LogInfo
	recs := []rest.LogRecord{}
	for {
		info, e := a.client.WatchLog(ctx, label, last)
		if ctx.Err() != nil {
			return
		}
		if e == nil {
			last = info
			recs = append(recs, info.Records...)
			if n := len(recs) - MaxLogLines; n > 0 {
				recs = append([]rest.LogRecord(nil), recs[n:]...)
			}
		}
		snap := recs
		a.app.PostFunc(func() {
			if a.logName == label {
				a.logRecs = snap
				a.logErr = e
				a.app.Update()
			}
		})
		if e != nil {
			var re *rest.Error
			if errors.As(e, &re) && re.Code == http.StatusNotFound {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
		}
	}
}

func (a *App) GetItems() ([]*rest.ProcessInfo, error) {
	return a.items, a.err
}

func (a *App) GetItem(label string) (*rest.ProcessInfo, error) {
	if a.err != nil {
		return nil, a.err
	}
	for _, i := range a.items {
		if i.Label == label {
			return i, nil
		}
	}
	return nil, errNotFound
}

func (a *App) GetLog(label string) ([]rest.LogRecord, error) {
	if a.logName == label {
		return a.logRecs, a.logErr
	}
	return nil, nil
}

func (a *App) Run() error {
	a.logger.Info("starting user interface", "server", a.server)
	a.app.SetRootWidget(a)
	a.ShowMain()
	go a.refresh()
	e := a.app.Run()
	a.once.Do(func() { close(a.quit) })
	if a.logCancel != nil {
		a.logCancel()
	}
	return e
}
