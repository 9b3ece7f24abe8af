// Copyright 2026 The Colony Authors
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

// Command colonytop is a full-screen status monitor for colonyd.  It
// polls the daemon's REST API and renders one line per process.
//
// Keys: up/down select a process, "r" restarts the selection, "q" or
// ESC quits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/gocolony/colony"
	"github.com/gocolony/colony/rest"
)

var addr string = "http://127.0.0.1:8322"

type model struct {
	infos  []*colony.ProcessInfo
	sel    int
	status string
}

func fetch(client *rest.Client) ([]*colony.ProcessInfo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	names, e := client.Processes(ctx)
	if e != nil {
		return nil, e
	}
	sort.Strings(names)
	infos := make([]*colony.ProcessInfo, 0, len(names))
	for _, name := range names {
		info, e := client.GetProcess(ctx, name)
		if e != nil {
			// Removed between the two calls; skip it.
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func puts(s tcell.Screen, x, y int, style tcell.Style, str string) {
	for _, r := range str {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}

func draw(s tcell.Screen, m *model) {
	s.Clear()
	w, h := s.Size()

	head := tcell.StyleDefault.Reverse(true)
	puts(s, 0, 0, head, pad(fmt.Sprintf("%-20s %-10s %8s %8s %10s  %s",
		"NAME", "STATE", "PID", "RESTART", "SINCE", "STATUS"), w))

	for i, info := range m.infos {
		y := i + 1
		if y >= h-1 {
			break
		}
		style := tcell.StyleDefault
		if info.State == colony.Failed.String() {
			style = style.Foreground(tcell.ColorRed)
		}
		if i == m.sel {
			style = style.Reverse(true)
		}
		d := time.Since(info.Stamp)
		d -= d % time.Second
		puts(s, 0, y, style, pad(fmt.Sprintf(
			"%-20s %-10s %8d %8d %10s  %s", info.Name, info.State,
			info.PID, info.Restarts, d, info.Status), w))
	}

	puts(s, 0, h-1, tcell.StyleDefault.Reverse(true),
		pad(" q:quit  r:restart  "+m.status, w))
	s.Show()
}

func pad(str string, w int) string {
	for len(str) < w {
		str += " "
	}
	return str
}

func main() {
	flag.StringVar(&addr, "a", addr, "colonyd REST address")
	flag.Parse()

	client := rest.NewClient(nil, addr)

	s, e := tcell.NewScreen()
	if e != nil {
		log.Fatalf("Cannot open screen: %v", e)
	}
	if e := s.Init(); e != nil {
		log.Fatalf("Cannot init screen: %v", e)
	}
	defer s.Fini()

	events := make(chan tcell.Event, 16)
	go func() {
		for {
			ev := s.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	m := &model{}
	refresh := func() {
		infos, e := fetch(client)
		if e != nil {
			m.status = "error: " + e.Error()
		} else {
			m.infos = infos
			m.status = ""
			if m.sel >= len(infos) {
				m.sel = len(infos) - 1
			}
			if m.sel < 0 {
				m.sel = 0
			}
		}
	}
	refresh()
	draw(s, m)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			refresh()
			draw(s, m)
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventResize:
				s.Sync()
				draw(s, m)
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape ||
					ev.Rune() == 'q':
					return
				case ev.Key() == tcell.KeyUp:
					if m.sel > 0 {
						m.sel--
					}
					draw(s, m)
				case ev.Key() == tcell.KeyDown:
					if m.sel < len(m.infos)-1 {
						m.sel++
					}
					draw(s, m)
				case ev.Rune() == 'r':
					if m.sel < len(m.infos) {
						ctx, cancel := context.WithTimeout(
							context.Background(), 3*time.Second)
						name := m.infos[m.sel].Name
						if e := client.RestartProcess(ctx, name); e != nil {
							m.status = "error: " + e.Error()
						} else {
							m.status = "restarted " + name
						}
						cancel()
						refresh()
						draw(s, m)
					}
				}
			}
		}
	}
}
