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

package ui

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"

	"github.com/nutrilab/logvisor/logvisor/util"
	"github.com/nutrilab/logvisor/rest"
)

// Health is how well whatever a panel shows is doing.  It picks the
// status bar color.
type Health int

const (
	HealthNormal Health = iota
	HealthGood
	HealthWarn
	HealthError
)

var (
	StyleNormal = tcell.StyleDefault.
			Foreground(tcell.ColorSilver).
			Background(tcell.ColorBlack)
	StyleGood = tcell.StyleDefault.
			Foreground(tcell.ColorGreen).
			Background(tcell.ColorBlack)
	StyleWarn = tcell.StyleDefault.
			Foreground(tcell.ColorYellow).
			Background(tcell.ColorBlack)
	StyleError = tcell.StyleDefault.
			Foreground(tcell.ColorRed).
			Background(tcell.ColorBlack)
)

// processHealth rates a single process.
func processHealth(p *rest.ProcessInfo) Health {
	switch {
	case p.State == "terminating":
		return HealthWarn
	case p.Running:
		return HealthGood
	case util.Failed(p):
		return HealthError
	}
	return HealthNormal
}

// Panel lays out a content widget between a title bar and key bar, with
// the status bar just below the title.
type Panel struct {
	title  *TitleBar
	status *StatusBar
	keys   *KeyBar
	once   sync.Once
	app    *App

	views.Panel
}

func (p *Panel) SetTitle(title string) {
	p.title.SetCenter(strings.ReplaceAll(title, "%", "%%"))
}

func (p *Panel) SetKeys(words []string) {
	p.keys.SetKeys(words)
}

// SetStatus replaces the status line.
func (p *Panel) SetStatus(h Health, format string, args ...interface{}) {
	p.status.Set(h, fmt.Sprintf(format, args...))
}

func (p *Panel) Init(app *App) {
	p.once.Do(func() {
		p.app = app

		p.title = NewTitleBar()
		p.title.SetLeft(strings.ReplaceAll(app.Server(), "%", "%%"))
		p.title.SetCenter(" ")
		p.title.SetRight(app.GetAppName())

		p.status = NewStatusBar()
		p.keys = NewKeyBar()

		p.Panel.SetTitle(p.title)
		p.Panel.SetMenu(p.status)
		p.Panel.SetStatus(p.keys)
	})
}

func (p *Panel) App() *App {
	return p.app
}
