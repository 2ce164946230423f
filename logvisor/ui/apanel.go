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
	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"
)

const (
	fieldWidth = 16
	fieldLimit = 256
)

var (
	styleFocus = tcell.StyleDefault.
			Foreground(tcell.ColorWhite).
			Background(tcell.ColorNavy)
)

// AuthPanel prompts for the credentials the daemon wants.
type AuthPanel struct {
	layout     *views.BoxLayout
	uprompt    *views.Text
	pprompt    *views.Text
	ufield     *views.Text
	pfield     *views.Text
	passactive bool
	username   []rune
	password   []rune

	Panel
}

func column(widgets ...views.Widget) *views.BoxLayout {
	box := views.NewBoxLayout(views.Vertical)
	box.SetStyle(StyleNormal)
	box.AddWidget(views.NewSpacer(), 1.0)
	for _, w := range widgets {
		box.AddWidget(w, 0.0)
	}
	box.AddWidget(views.NewSpacer(), 1.0)
	return box
}

func newLabel(s string) *views.Text {
	t := views.NewText()
	t.SetText(s)
	t.SetStyle(StyleNormal)
	return t
}

func NewAuthPanel(app *App) *AuthPanel {
	a := &AuthPanel{
		username: make([]rune, 0, fieldWidth),
		password: make([]rune, 0, fieldWidth),
	}
	a.Panel.Init(app)

	a.uprompt = newLabel("Username: ")
	a.pprompt = newLabel("Password: ")
	a.ufield = newLabel(fieldText(nil, false, 0))
	a.pfield = newLabel(fieldText(nil, false, 0))

	a.layout = views.NewBoxLayout(views.Horizontal)
	a.layout.SetStyle(StyleNormal)
	a.layout.AddWidget(views.NewSpacer(), 1.0)
	a.layout.AddWidget(column(a.uprompt, a.pprompt), 0.0)
	a.layout.AddWidget(column(a.ufield, a.pfield), 0.0)
	a.layout.AddWidget(views.NewSpacer(), 1.0)

	a.SetTitle("Login")
	a.SetStatus(HealthError, "Authentication Required")
	a.SetKeys([]string{"[ESC] Quit"})
	a.SetContent(a.layout)

	return a
}

func (a *AuthPanel) ResetFields() {
	a.passactive = false
	a.username = a.username[:0]
	a.password = a.password[:0]
}

func (a *AuthPanel) Draw() {
	a.update()
	a.Panel.Draw()
}

// active returns the field being edited.
func (a *AuthPanel) active() *[]rune {
	if a.passactive {
		return &a.password
	}
	return &a.username
}

func (a *AuthPanel) HandleEvent(ev tcell.Event) bool {
	kev, ok := ev.(*tcell.EventKey)
	if !ok {
		return a.Panel.HandleEvent(ev)
	}
	field := a.active()
	switch kev.Key() {
	case tcell.KeyEsc:
		a.App().Quit()
	case tcell.KeyTab, tcell.KeyEnter:
		if a.passactive {
			a.App().SetUserPassword(string(a.username),
				string(a.password))
			a.App().ShowMain()
		} else {
			a.passactive = true
		}
	case tcell.KeyBacktab:
		a.passactive = false
	case tcell.KeyCtrlU, tcell.KeyCtrlW:
		*field = (*field)[:0]
	case tcell.KeyBackspace, tcell.KeyBackspace2:
		if n := len(*field); n > 0 {
			*field = (*field)[:n-1]
		}
	case tcell.KeyRune:
		if len(*field) < fieldLimit {
			*field = append(*field, kev.Rune())
		}
	default:
		return false
	}
	return true
}

// fieldText renders a prompt field, masked if mask is non-zero, with a
// cursor when active.  Long input scrolls off the left edge.
func fieldText(val []rune, active bool, mask rune) string {
	out := make([]rune, 0, len(val)+1)
	for _, r := range val {
		if mask != 0 {
			r = mask
		}
		out = append(out, r)
	}
	if active {
		out = append(out, '_')
	}
	if len(out) > fieldWidth {
		out = out[len(out)-fieldWidth:]
		out[0] = '<'
	}
	for len(out) < fieldWidth {
		out = append(out, ' ')
	}
	return string(out)
}

func (a *AuthPanel) update() {
	a.ufield.SetText(fieldText(a.username, !a.passactive, 0))
	a.pfield.SetText(fieldText(a.password, a.passactive, '*'))

	if a.passactive {
		a.pfield.SetStyle(styleFocus)
		a.ufield.SetStyle(StyleNormal)
	} else {
		a.ufield.SetStyle(styleFocus)
		a.pfield.SetStyle(StyleNormal)
	}
}
