package ui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/ftahirops/drivelog/model"
	"github.com/ftahirops/drivelog/store"
	"github.com/ftahirops/drivelog/util"
)

// Source is the read side of the store the browser needs.
type Source interface {
	Identities(ctx context.Context, ownerHost string) ([]model.IdentitySnapshot, error)
	LatestObservation(ctx context.Context, ownerHost, deviceName string, generation int) (model.Observation, error)
}

// identitiesMsg is sent when the identity list has loaded.
type identitiesMsg struct {
	rows []model.IdentitySnapshot
	err  error
}

// observationMsg is sent when the latest observation of a row has loaded.
type observationMsg struct {
	index int
	obs   *model.Observation
	err   error
}

// Browser is the Bubbletea model for browsing stored drive generations.
type Browser struct {
	src  Source
	host string
	now  func() time.Time

	rows    []model.IdentitySnapshot
	cursor  int
	loaded  bool
	err     error
	obs     *model.Observation
	obsErr  error
	obsFor  int
	showRaw bool
	width   int
	height  int
}

// NewBrowser returns a browser over src. An empty host shows all hosts.
func NewBrowser(src Source, host string) Browser {
	return Browser{src: src, host: host, now: time.Now, obsFor: -1}
}

func (m Browser) loadIdentities() tea.Msg {
	rows, err := m.src.Identities(context.Background(), m.host)
	return identitiesMsg{rows: rows, err: err}
}

func (m Browser) loadObservation(i int) tea.Cmd {
	if i < 0 || i >= len(m.rows) {
		return nil
	}
	s := m.rows[i]
	src := m.src
	return func() tea.Msg {
		obs, err := src.LatestObservation(context.Background(), s.OwnerHost, s.DeviceName, s.Generation)
		if err != nil {
			return observationMsg{index: i, err: err}
		}
		return observationMsg{index: i, obs: &obs}
	}
}

func (m Browser) Init() tea.Cmd {
	return m.loadIdentities
}

func (m Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case identitiesMsg:
		m.loaded = true
		m.rows, m.err = msg.rows, msg.err
		m.cursor = 0
		return m, m.loadObservation(0)
	case observationMsg:
		if msg.index == m.cursor {
			m.obs, m.obsErr, m.obsFor = msg.obs, msg.err, msg.index
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "j", "down":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
				m.obs, m.obsErr, m.obsFor = nil, nil, -1
				return m, m.loadObservation(m.cursor)
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
				m.obs, m.obsErr, m.obsFor = nil, nil, -1
				return m, m.loadObservation(m.cursor)
			}
		case "r":
			m.showRaw = !m.showRaw
		}
	}
	return m, nil
}

func (m Browser) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("drivelog generations"))
	if m.host != "" {
		b.WriteString(" " + labelStyle.Render(m.host))
	}
	b.WriteString("\n\n")

	switch {
	case !m.loaded:
		b.WriteString(labelStyle.Render("loading..."))
		return b.String()
	case m.err != nil:
		b.WriteString(critStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n\n" + helpStyle.Render("q quit"))
		return b.String()
	case len(m.rows) == 0:
		b.WriteString(labelStyle.Render("no drives recorded yet"))
		b.WriteString("\n\n" + helpStyle.Render("q quit"))
		return b.String()
	}

	list := m.renderList()
	detail := panelStyle.Render(m.renderDetail())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, panelStyle.Render(list), " ", detail))
	b.WriteString("\n" + helpStyle.Render("j/k move  r raw json  q quit"))
	return b.String()
}

func (m Browser) renderList() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(padRight("HOST", 12) + " " + padRight("DEVICE", 16) + " GEN"))
	for i, s := range m.rows {
		line := padRight(s.OwnerHost, 12) + " " + padRight(s.DeviceName, 16) + " " + padLeft(strconv.Itoa(s.Generation), 3)
		b.WriteByte('\n')
		if i == m.cursor {
			b.WriteString(selectedStyle.Render(line))
		} else {
			b.WriteString(valueStyle.Render(line))
		}
	}
	return b.String()
}

func (m Browser) renderDetail() string {
	s := m.rows[m.cursor]
	f := parseIdentityFacts(s.IdentityData)

	var b strings.Builder
	row := func(label, val string) {
		fmt.Fprintf(&b, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-10s", label)), valueStyle.Render(val))
	}
	row("device", s.DeviceName)
	row("gen", fmt.Sprintf("%d", s.Generation))
	row("model", f.Model)
	row("serial", f.Serial)
	if f.Capacity != "" {
		row("capacity", f.Capacity)
	}
	row("since", humanize.RelTime(s.ObservedAt, m.now(), "ago", "from now"))

	b.WriteByte('\n')
	switch {
	case m.obsErr != nil && errors.Is(m.obsErr, store.ErrNotFound):
		b.WriteString(labelStyle.Render("no observations for this generation"))
	case m.obsErr != nil:
		b.WriteString(critStyle.Render("error: " + m.obsErr.Error()))
	case m.obs == nil || m.obsFor != m.cursor:
		b.WriteString(labelStyle.Render("loading observation..."))
	default:
		row("observed", humanize.RelTime(m.obs.ObservedAt, m.now(), "ago", "from now"))
		b.WriteByte('\n')
		b.WriteString(headerStyle.Render("brief") + "\n")
		b.WriteString(util.IndentJSON(m.obs.BriefSummary, "  ") + "\n")
		b.WriteString(headerStyle.Render("detail") + "\n")
		b.WriteString(util.IndentJSON(m.obs.DetailSummary, "  "))
	}
	if m.showRaw {
		b.WriteString("\n\n" + headerStyle.Render("identity") + "\n")
		b.WriteString(util.IndentJSON(s.IdentityData, "  "))
	}
	return b.String()
}
