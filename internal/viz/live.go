package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/epifor/seirgo/internal/epi"
	"github.com/epifor/seirgo/internal/restrict"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type tickMsg time.Time

// Live replays an evaluated run day by day in the terminal.
type Live struct {
	name         string
	times        []float64
	infected     []float64
	hospitalized []float64
	deaths       []float64
	restrictions []restrict.Restriction

	cursor  int
	playing bool
}

// NewLive prepares a replay of the aggregate epidemic curves.
func NewLive(name string, results *epi.Results, restrictions []restrict.Restriction) (*Live, error) {
	infected, err := results.Aggregate(epi.QuantityInfectedActive)
	if err != nil {
		return nil, err
	}
	hospitalized, err := results.Aggregate(epi.QuantityHospitalized)
	if err != nil {
		return nil, err
	}
	deaths, err := results.Aggregate(epi.QuantityDeaths)
	if err != nil {
		return nil, err
	}

	return &Live{
		name:         name,
		times:        results.Times,
		infected:     infected,
		hospitalized: hospitalized,
		deaths:       deaths,
		restrictions: restrictions,
		cursor:       1,
		playing:      true,
	}, nil
}

// Run starts the replay and blocks until the user quits.
func (l *Live) Run() error {
	_, err := tea.NewProgram(l).Run()
	return err
}

func tick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (l *Live) Init() tea.Cmd {
	return tick()
}

func (l *Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if l.playing && l.cursor < len(l.times)-1 {
			l.cursor++
		}
		return l, tick()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return l, tea.Quit
		case " ":
			l.playing = !l.playing
		case "right", "l":
			if l.cursor < len(l.times)-1 {
				l.cursor++
			}
		case "left", "h":
			if l.cursor > 1 {
				l.cursor--
			}
		case "r":
			l.cursor = 1
			l.playing = true
		}
	}
	return l, nil
}

func (l *Live) View() string {
	t := l.times[l.cursor]

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s  day %.0f / %.0f", l.name, t, l.times[len(l.times)-1])))
	b.WriteString("\n")

	curve := trimNaN(l.infected[:l.cursor+1])
	if len(curve) >= 2 {
		graph := asciigraph.Plot(curve,
			asciigraph.Height(plotHeight),
			asciigraph.Width(plotWidth),
			asciigraph.Caption("active infections"),
		)
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n")
	}

	b.WriteString(l.statLine("infected (active)", l.infected[l.cursor]))
	b.WriteString(l.statLine("hospitalized", l.hospitalized[l.cursor]))
	b.WriteString(l.statLine("deaths", l.deaths[l.cursor]))

	for _, r := range l.restrictions {
		if t >= r.Begins && t <= r.Ends {
			b.WriteString(activeStyle.Render(fmt.Sprintf("  ⏻ %s active", r.Title)))
			b.WriteString("\n")
		}
	}

	b.WriteString(helpStyle.Render("space pause · ←/→ step · r restart · q quit"))
	b.WriteString("\n")
	return b.String()
}

func (l *Live) statLine(label string, v float64) string {
	val := "–"
	if !math.IsNaN(v) {
		val = fmt.Sprintf("%.0f", v)
	}
	return labelStyle.Render(label) + valueStyle.Render(val) + "\n"
}

func trimNaN(vs []float64) []float64 {
	start := 0
	for start < len(vs) && math.IsNaN(vs[start]) {
		start++
	}
	return vs[start:]
}
