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
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/gdamore/tcell/v2/views"
)

// statusStyles are the status bar colors, indexed by Health.
var statusStyles = [...]tcell.Style{
	HealthNormal: barStyle,
	HealthGood: tcell.StyleDefault.
		Foreground(tcell.ColorWhite).
		Background(tcell.ColorGreen).
		Bold(true),
	HealthWarn: tcell.StyleDefault.
		Foreground(tcell.ColorBlack).
		Background(tcell.ColorYellow),
	HealthError: tcell.StyleDefault.
		Foreground(tcell.ColorWhite).
		Background(tcell.ColorMaroon).
		Bold(true),
}

var (
	barStyle = tcell.StyleDefault.
			Foreground(tcell.ColorBlack).
			Background(tcell.ColorSilver)
	barAccent = tcell.StyleDefault.
			Foreground(tcell.ColorNavy).
			Background(tcell.ColorSilver).
			Bold(true)
)

// TitleBar shows the server on the left, the panel title in the middle
// and the program name on the right.
type TitleBar struct {
	once sync.Once
	views.SimpleStyledTextBar
}

func (tb *TitleBar) Init() {
	tb.once.Do(func() {
		tb.SimpleStyledTextBar.Init()
		tb.SimpleStyledTextBar.SetStyle(barStyle)
		tb.RegisterLeftStyle('N', barStyle)
		tb.RegisterCenterStyle('N', barStyle)
		tb.RegisterCenterStyle('A', barAccent)
		tb.RegisterRightStyle('N', barStyle)
	})
}

func NewTitleBar() *TitleBar {
	tb := &TitleBar{}
	tb.Init()
	return tb
}

// KeyBar lists the keys that do something.  Words are written like
// "[S] Start"; the bracketed part is highlighted.
type KeyBar struct {
	once sync.Once
	views.SimpleStyledTextBar
}

func (k *KeyBar) Init() {
	k.once.Do(func() {
		k.SimpleStyledTextBar.Init()
		k.SimpleStyledTextBar.SetStyle(barStyle)
		k.RegisterLeftStyle('N', barStyle)
		k.RegisterLeftStyle('A', barAccent)
	})
}

// keyMarkup turns key words into styled text bar markup.
func keyMarkup(words []string) string {
	var b strings.Builder
	for i, w := range words {
		if i != 0 {
			b.WriteByte(' ')
		}
		w = strings.ReplaceAll(w, "%", "%%")
		if lb, rb := strings.IndexByte(w, '['), strings.IndexByte(w, ']'); lb >= 0 && rb > lb {
			b.WriteString(w[:lb+1])
			b.WriteString("%A")
			b.WriteString(w[lb+1 : rb])
			b.WriteString("%N")
			b.WriteString(w[rb:])
		} else {
			b.WriteString(w)
		}
	}
	return b.String()
}

func (k *KeyBar) SetKeys(words []string) {
	k.SetLeft(keyMarkup(words))
}

func NewKeyBar() *KeyBar {
	kb := &KeyBar{}
	kb.Init()
	return kb
}

// StatusBar changes color with the health of what the panel shows.
type StatusBar struct {
	once   sync.Once
	text   string
	health Health
	views.SimpleStyledTextBar
}

func (sb *StatusBar) Init() {
	sb.once.Do(func() {
		sb.SimpleStyledTextBar.Init()
		sb.Set(HealthNormal, "")
	})
}

// Set updates the text and color together.
func (sb *StatusBar) Set(h Health, text string) {
	if h < HealthNormal || h > HealthError {
		h = HealthNormal
	}
	sb.health = h
	sb.text = strings.ReplaceAll(text, "%", "%%")

	style := statusStyles[h]
	sb.SimpleStyledTextBar.SetStyle(style)
	sb.RegisterLeftStyle('N', style)
	sb.SetLeft(sb.text)
}

func (sb *StatusBar) Health() Health {
	return sb.health
}

func NewStatusBar() *StatusBar {
	sb := &StatusBar{}
	sb.Init()
	return sb
}
