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
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"

	"github.com/nutrilab/logvisor/logvisor/util"
	"github.com/nutrilab/logvisor/rest"
)

type InfoPanel struct {
	text *views.TextArea
	info *rest.ProcessInfo
	name string
	err  error // last error retrieving state

	Panel
}

func NewInfoPanel(app *App) *InfoPanel {
	i := &InfoPanel{}
	i.Panel.Init(app)

	i.text = views.NewTextArea()
	i.text.EnableCursor(false)
	i.text.SetStyle(StyleNormal)
	i.SetContent(i.text)
	i.SetKeys([]string{"[ESC] Main", "[H] Help"})

	return i
}

func (i *InfoPanel) Draw() {
	i.update()
	i.Panel.Draw()
}

func (i *InfoPanel) HandleEvent(ev tcell.Event) bool {
	info := i.info
	app := i.App()
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEsc:
			app.ShowMain()
			return true
		case tcell.KeyF1:
			app.ShowHelp()
			return true
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'Q', 'q':
				app.ShowMain()
				return true
			case 'H', 'h':
				app.ShowHelp()
				return true
			case 'L', 'l':
				if info != nil {
					app.ShowLog(info.Label)
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
	return i.Panel.HandleEvent(ev)
}

func (i *InfoPanel) SetName(name string) {
	i.name = name
	i.info = nil
	i.err = nil
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(time.DateTime)
}

// infoLines renders the detail view of a single process.
func infoLines(p *rest.ProcessInfo, now time.Time) []string {
	lines := []string{
		fmt.Sprintf("%13s %s", "Label:", p.Label),
		fmt.Sprintf("%13s %s", "Description:", p.Description),
		fmt.Sprintf("%13s %s", "Command:", strings.Join(p.Command, " ")),
		fmt.Sprintf("%13s %s", "Status:", util.Status(p)),
	}
	if p.Running {
		lines = append(lines,
			fmt.Sprintf("%13s %d", "PID:", p.PID),
			fmt.Sprintf("%13s %s", "Run:", p.RunID))
	}
	lines = append(lines,
		fmt.Sprintf("%13s %s", "Started:", stamp(p.Started)),
		fmt.Sprintf("%13s %s", "Exited:", stamp(p.Exited)))
	if p.ExitReason != "" {
		lines = append(lines,
			fmt.Sprintf("%13s %d", "Exit Code:", p.ExitCode),
			fmt.Sprintf("%13s %s", "Detail:", p.ExitReason))
	}
	if d := util.Since(p, now); d > 0 {
		lines = append(lines, fmt.Sprintf("%13s %s", "For:",
			util.FormatDuration(d-d%time.Second)))
	}
	return lines
}

// update runs on the application goroutine.
func (i *InfoPanel) update() {

	s, e := i.App().GetItem(i.name)
	i.info = s
	i.err = e

	words := []string{"[ESC] Main", "[H] Help"}

	i.SetTitle("Details for " + i.name)

	if s == nil {
		if e != nil {
			i.SetStatus(HealthError, "No data: %v", e)
		} else {
			i.SetStatus(HealthNormal, "Loading...")
		}
		i.text.SetLines(nil)
		i.SetKeys(words)
		return
	}

	i.SetStatus(processHealth(s), "%s", util.Status(s))

	i.text.SetLines(infoLines(s, time.Now()))

	words = append(words, "[L] Log")
	if s.Running {
		words = append(words, "[S] Stop")
	} else {
		words = append(words, "[S] Start")
	}
	i.SetKeys(words)
}
