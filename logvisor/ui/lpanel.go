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
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"

	"github.com/nutrilab/logvisor"
	"github.com/nutrilab/logvisor/logvisor/util"
	"github.com/nutrilab/logvisor/rest"
)

type LogPanel struct {
	content *views.CellView
	info    *rest.ProcessInfo
	name    string
	follow  bool
	width   int
	lines   []string
	styles  []tcell.Style

	Panel
}

type logModel struct {
	p *LogPanel
}

func (model *logModel) GetCell(x, y int) (rune, tcell.Style, []rune, int) {
	p := model.p
	if y < 0 || y >= len(p.lines) {
		return ' ', StyleNormal, nil, 1
	}
	ch := ' '
	if x >= 0 && x < len(p.lines[y]) {
		ch = rune(p.lines[y][x])
	}
	return ch, p.styles[y], nil, 1
}

func (model *logModel) GetBounds() (int, int) {
	return model.p.width, len(model.p.lines)
}

func (model *logModel) GetCursor() (int, int, bool, bool) {
	return 0, 0, false, false
}

func (model *logModel) MoveCursor(offx, offy int) {
	if offy < 0 {
		model.p.follow = false
	}
}

func (model *logModel) SetCursor(x, y int) {}

func NewLogPanel(app *App) *LogPanel {
	p := &LogPanel{follow: true}

	p.Panel.Init(app)

	p.content = views.NewCellView()
	p.content.SetModel(&logModel{p})
	p.content.SetStyle(StyleNormal)
	p.SetContent(p.content)
	p.SetKeys([]string{"[ESC] Main", "[H] Help"})

	return p
}

func (p *LogPanel) Draw() {
	p.update()
	p.Panel.Draw()
}

func (p *LogPanel) HandleEvent(ev tcell.Event) bool {
	info := p.info
	app := p.app
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			app.ShowMain()
			return true
		case tcell.KeyF1:
			app.ShowHelp()
			return true
		case tcell.KeyEnd:
			p.follow = true
			app.app.Update()
			return true
		case tcell.KeyUp, tcell.KeyPgUp, tcell.KeyHome:
			p.follow = false
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				app.ShowMain()
				return true
			case 'H', 'h':
				app.ShowHelp()
				return true
			case 'F', 'f':
				p.follow = !p.follow
				app.app.Update()
				return true
			case 'I', 'i':
				if info != nil {
					app.ShowInfo(info.Label)
					return true
				}
			case 'S', 's', ' ':
				if info != nil {
					app.ToggleProcess(info.Label)
					return true
				}
			}
		}
	}
	return p.Panel.HandleEvent(ev)
}

func (p *LogPanel) SetName(name string) {
	p.SetTitle("Loading")
	p.name = name
	p.follow = true
	p.lines = nil
	p.styles = nil
	p.width = 0
}

func severityStyle(sev logvisor.Severity) tcell.Style {
	switch sev {
	case logvisor.SeverityOK:
		return StyleGood
	case logvisor.SeverityWarning:
		return StyleWarn
	case logvisor.SeverityError:
		return StyleError
	}
	return StyleNormal
}

func logLine(r rest.LogRecord) string {
	return fmt.Sprintf("%s %s", r.Time.Format(time.StampMilli), r.Raw)
}

// update runs on the application goroutine.
func (p *LogPanel) update() {

	info, _ := p.app.GetItem(p.name)
	recs, err := p.app.GetLog(p.name)
	p.info = info

	p.SetTitle("Log for " + p.name)

	words := []string{"[ESC] Main", "[H] Help"}
	if p.follow {
		words = append(words, "[F] Pause")
	} else {
		words = append(words, "[F] Follow")
	}
	if info != nil {
		words = append(words, "[I] Info")
		if info.Running {
			words = append(words, "[S] Stop")
		} else {
			words = append(words, "[S] Start")
		}
	}
	p.SetKeys(words)

	switch {
	case err != nil:
		p.SetStatus(HealthError, "No data: %v", err)
	case recs == nil:
		p.SetStatus(HealthNormal, "Loading ...")
	case info == nil:
		p.SetStatus(HealthNormal, "%d lines", len(recs))
	default:
		p.SetStatus(processHealth(info), "%s, %d lines",
			util.Status(info), len(recs))
	}

	lines := make([]string, 0, len(recs))
	styles := make([]tcell.Style, 0, len(recs))
	width := 0
	for _, r := range recs {
		line := logLine(r)
		if len(line) > width {
			width = len(line)
		}
		lines = append(lines, line)
		styles = append(styles, severityStyle(r.Severity))
	}
	p.lines = lines
	p.styles = styles
	p.width = width

	if p.follow && len(lines) > 0 {
		p.content.MakeVisible(0, len(lines)-1)
	}
}
