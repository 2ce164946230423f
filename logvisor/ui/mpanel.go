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
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"

	"github.com/nutrilab/logvisor/logvisor/util"
	"github.com/nutrilab/logvisor/rest"
)

// MainPanel shows one line per supervised process, with the cursor
// selecting the process the keys act on.
type MainPanel struct {
	content  *views.CellView
	selected *rest.ProcessInfo
	nfailed  int
	nrunning int
	nstopped int
	width    int
	height   int
	curx     int
	cury     int
	lines    []string
	styles   []tcell.Style
	items    []*rest.ProcessInfo

	Panel
}

// mainModel provides the model for a CellArea.
type mainModel struct {
	m *MainPanel
}

func NewMainPanel(app *App) *MainPanel {
	m := &MainPanel{}

	m.Panel.Init(app)
	m.content = views.NewCellView()
	m.SetContent(m.content)

	m.content.SetModel(&mainModel{m})
	m.content.SetStyle(StyleNormal)

	m.SetTitle("Processes")
	m.SetKeys([]string{"[Q] Quit"})

	return m
}

func (m *MainPanel) Draw() {
	m.update()
	m.Panel.Draw()
}

func (m *MainPanel) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			m.unselect()
			return true
		case tcell.KeyF1:
			m.App().ShowHelp()
			return true
		case tcell.KeyEnter:
			if m.selected != nil {
				m.App().ShowInfo(m.selected.Label)
				return true
			}
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				m.App().Quit()
				return true
			case 'H', 'h':
				m.App().ShowHelp()
				return true
			case 'I', 'i':
				if m.selected != nil {
					m.App().ShowInfo(m.selected.Label)
					return true
				}
			case 'L', 'l':
				if m.selected != nil {
					m.App().ShowLog(m.selected.Label)
					return true
				}
			case 'S', 's', ' ':
				if m.selected != nil {
					m.App().ToggleProcess(m.selected.Label)
					return true
				}
			case 'K', 'k':
				if m.selected != nil && m.selected.Running {
					m.App().StopProcess(m.selected.Label)
					return true
				}
			}
		}
	}
	return m.Panel.HandleEvent(ev)
}

// Model items
func (model *mainModel) GetCell(x, y int) (rune, tcell.Style, []rune, int) {
	m := model.m

	if y < 0 || y >= len(m.lines) {
		return ' ', StyleNormal, nil, 1
	}

	ch := ' '
	if x >= 0 && x < len(m.lines[y]) {
		ch = rune(m.lines[y][x])
	}
	style := m.styles[y]
	if m.items[y] == m.selected {
		style = style.Reverse(true)
	}
	return ch, style, nil, 1
}

func (model *mainModel) GetBounds() (int, int) {
	// This assumes that all content is displayable runes of width 1.
	return model.m.width, model.m.height
}

func (model *mainModel) GetCursor() (int, int, bool, bool) {
	m := model.m
	return m.curx, m.cury, true, false
}

func (model *mainModel) MoveCursor(offx, offy int) {
	m := model.m
	m.moveTo(m.curx+offx, m.cury+offy)
}

func (model *mainModel) SetCursor(x, y int) {
	model.m.moveTo(x, y)
}

// clamp keeps v within [0, n).
func clamp(v, n int) int {
	if v >= n {
		v = n - 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

// moveTo selects the row under the cursor.  Nothing is selected until the
// first move, which always lands on the top row.
func (m *MainPanel) moveTo(x, y int) {
	if m.selected == nil {
		x, y = 0, 0
	}
	m.curx = clamp(x, m.width)
	m.cury = clamp(y, m.height)
	if m.height > 0 {
		m.selected = m.items[m.cury]
	}
}

func (m *MainPanel) unselect() {
	m.curx, m.cury = 0, 0
	m.selected = nil
}

// processLine formats a single row of the process table.
func processLine(p *rest.ProcessInfo, now time.Time) string {
	d := util.Since(p, now)
	d -= d % time.Second
	return fmt.Sprintf("%-20s %-10s %10s   %s",
		p.Label, util.Status(p), util.FormatDuration(d), util.Detail(p))
}

// processStyle is the row color: green while running, red otherwise.
func processStyle(p *rest.ProcessInfo) tcell.Style {
	switch {
	case p.State == "terminating":
		return StyleWarn
	case p.Running:
		return StyleGood
	}
	return StyleError
}

// update is called to update content, e.g. in response to Draw() or
// as part of another update.  It runs on the application goroutine.
func (m *MainPanel) update() {

	items, err := m.App().GetItems()
	m.items = items

	// preserve selected item
	if sel := m.selected; sel != nil {
		m.selected = nil
		for y, item := range m.items {
			if item.Label == sel.Label {
				m.selected = item
				m.cury = y
			}
		}
	}
	if err != nil {
		var re *rest.Error
		if errors.As(err, &re) && re.Code == http.StatusUnauthorized {
			m.App().ShowAuth()
			return
		}
		m.SetStatus(HealthError, "Cannot load processes: %v", err)
		m.items = nil
		m.selected = nil
		m.lines = nil
		m.styles = nil
		m.width, m.height = 0, 0
		return
	}

	now := time.Now()
	lines := make([]string, 0, len(m.items))
	styles := make([]tcell.Style, 0, len(m.items))

	m.nfailed = 0
	m.nstopped = 0
	m.nrunning = 0
	m.width = 0
	m.height = 0

	for _, info := range items {
		line := processLine(info, now)
		if len(line) > m.width {
			m.width = len(line)
		}
		m.height++
		lines = append(lines, line)
		styles = append(styles, processStyle(info))

		switch {
		case info.Running:
			m.nrunning++
		case util.Failed(info):
			m.nfailed++
		default:
			m.nstopped++
		}
	}

	m.lines = lines
	m.styles = styles

	h := HealthNormal
	switch {
	case m.nfailed > 0:
		h = HealthError
	case m.nrunning > 0:
		h = HealthGood
	}
	m.SetStatus(h, "%6d Processes %6d Running %6d Failed %6d Stopped",
		len(m.items), m.nrunning, m.nfailed, m.nstopped)

	words := []string{"[Q] Quit", "[H] Help"}

	if item := m.selected; item != nil {
		words = append(words, "[I] Info", "[L] Log")
		if item.Running {
			words = append(words, "[S] Stop", "[K] Kill")
		} else {
			words = append(words, "[S] Start")
		}
	}
	m.SetKeys(words)
}
