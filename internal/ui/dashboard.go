package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/curve-launchpad/internal/logger"
	"github.com/rovshanmuradov/curve-launchpad/internal/monitor"
	"github.com/rovshanmuradov/curve-launchpad/internal/task"
	"github.com/rovshanmuradov/curve-launchpad/internal/types"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui/component"
	"github.com/rovshanmuradov/curve-launchpad/internal/ui/style"
)

const (
	feedSize     = 10
	refreshEvery = 500 * time.Millisecond
)

// poolRow - состояние пула, как его видит дашборд.
type poolRow struct {
	token     string
	curve     string
	reserve   uint64
	tokens    uint64
	price     float64
	marketCap uint64
	trades    int
	stage     string
}

// DashboardConfig collects the dashboard data sources.
type DashboardConfig struct {
	Title   string
	Bridge  *Bridge
	Candles *monitor.CandleTracker
	Logs    *logger.LogBuffer
}

// Dashboard is the bubbletea model of the live simulation view.
type Dashboard struct {
	cfg    DashboardConfig
	keys   KeyMap
	help   help.Model
	table  table.Model
	spin   spinner.Model
	spark  *component.Sparkline
	logs   *component.LogPane
	width  int
	height int

	pools   []*poolRow
	byToken map[string]*poolRow
	feed    []monitor.Trade

	running bool
	done    *SimulationDoneMsg
}

// NewDashboard creates the model.
func NewDashboard(cfg DashboardConfig) *Dashboard {
	if cfg.Title == "" {
		cfg.Title = "Curve Launchpad"
	}
	t := table.New(
		table.WithColumns(poolColumns(80)),
		table.WithFocused(true),
		table.WithHeight(6),
	)
	st := table.DefaultStyles()
	st.Header = st.Header.Foreground(style.Cyan).Bold(true)
	st.Selected = st.Selected.Foreground(style.Base2).Background(style.Base02)
	t.SetStyles(st)

	return &Dashboard{
		cfg:     cfg,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		table:   t,
		spin:    spinner.New(spinner.WithSpinner(spinner.Dot)),
		spark:   component.NewSparkline(40),
		logs:    component.NewLogPane(cfg.Logs),
		byToken: make(map[string]*poolRow),
		running: true,
	}
}

func poolColumns(width int) []table.Column {
	fixed := []table.Column{
		{Title: "Curve", Width: 12},
		{Title: "Reserve SOL", Width: 14},
		{Title: "Price", Width: 14},
		{Title: "MCap SOL", Width: 14},
		{Title: "Trades", Width: 7},
		{Title: "Stage", Width: 18},
	}
	used := 0
	for _, c := range fixed {
		used += c.Width + 2
	}
	return append([]table.Column{{Title: "Token", Width: max(width-used-4, 12)}}, fixed...)
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Init starts the spinner, the refresh ticker and the bridge listener.
func (d *Dashboard) Init() tea.Cmd {
	cmds := []tea.Cmd{d.spin.Tick, tick()}
	if d.cfg.Bridge != nil {
		cmds = append(cmds, d.cfg.Bridge.Listen())
	}
	return tea.Batch(cmds...)
}

func (d *Dashboard) listen() tea.Cmd {
	if d.cfg.Bridge == nil {
		return nil
	}
	return d.cfg.Bridge.Listen()
}

// Update handles messages.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.resize(msg.Width, msg.Height)
		return d, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, d.keys.Quit):
			return d, tea.Quit
		case key.Matches(msg, d.keys.Help):
			d.help.ShowAll = !d.help.ShowAll
			return d, nil
		case key.Matches(msg, d.keys.ToggleLogs):
			d.logs.Toggle()
			d.resize(d.width, d.height)
			return d, nil
		case key.Matches(msg, d.keys.Debug):
			d.logs.ToggleDebug()
			return d, nil
		}
		var cmd tea.Cmd
		d.table, cmd = d.table.Update(msg)
		d.refreshSpark()
		return d, cmd

	case PoolCreatedMsg:
		d.row(msg.Token).curve = msg.Curve
		d.syncTable()
		return d, d.listen()

	case PoolUpdateMsg:
		r := d.row(msg.Token)
		if msg.ReserveBase != 0 || msg.ReserveToken != 0 {
			r.reserve, r.tokens, r.price = msg.ReserveBase, msg.ReserveToken, msg.Price
		}
		if msg.MarketCap != 0 {
			r.marketCap = msg.MarketCap
		}
		d.syncTable()
		return d, d.listen()

	case TradeMsg:
		d.row(msg.Trade.Token).trades++
		d.feed = append([]monitor.Trade{msg.Trade}, d.feed...)
		if len(d.feed) > feedSize {
			d.feed = d.feed[:feedSize]
		}
		d.syncTable()
		return d, d.listen()

	case MigrationMsg:
		d.row(msg.Token).stage = msg.Stage
		d.syncTable()
		return d, d.listen()

	case SimulationDoneMsg:
		d.running = false
		d.done = &msg
		return d, nil

	case TickMsg:
		if d.cfg.Bridge != nil {
			d.cfg.Bridge.Flush()
		}
		d.logs.Refresh()
		d.refreshSpark()
		return d, tick()

	case spinner.TickMsg:
		if !d.running {
			return d, nil
		}
		var cmd tea.Cmd
		d.spin, cmd = d.spin.Update(msg)
		return d, cmd
	}
	return d, nil
}

func (d *Dashboard) resize(width, height int) {
	d.width, d.height = width, height
	d.help.Width = width
	d.table.SetColumns(poolColumns(width))
	d.table.SetWidth(width - 2)
	d.spark.SetWidth(max(width-20, 10))

	logHeight := 0
	if d.logs.Visible() {
		logHeight = max(height/4, 5)
		d.logs.SetSize(width, logHeight)
	}
	// заголовок, спарклайн, лента и помощь занимают фиксированную часть экрана
	d.table.SetHeight(max(height-logHeight-feedSize-10, 3))
}

func (d *Dashboard) row(token string) *poolRow {
	if r, ok := d.byToken[token]; ok {
		return r
	}
	r := &poolRow{token: token, stage: "Trading"}
	d.byToken[token] = r
	d.pools = append(d.pools, r)
	return r
}

func (d *Dashboard) syncTable() {
	rows := make([]table.Row, len(d.pools))
	for i, p := range d.pools {
		rows[i] = table.Row{
			p.token,
			p.curve,
			monitor.FormatSOL(p.reserve),
			fmt.Sprintf("%.10f", p.price),
			monitor.FormatSOL(p.marketCap),
			fmt.Sprintf("%d", p.trades),
			p.stage,
		}
	}
	d.table.SetRows(rows)
}

// Selected returns the token under the cursor.
func (d *Dashboard) Selected() string {
	c := d.table.Cursor()
	if c < 0 || c >= len(d.pools) {
		return ""
	}
	return d.pools[c].token
}

func (d *Dashboard) refreshSpark() {
	token := d.Selected()
	if token == "" || d.cfg.Candles == nil {
		d.spark.SetData(nil)
		return
	}
	d.spark.SetCandles(d.cfg.Candles.History(token))
}

// View renders the dashboard.
func (d *Dashboard) View() string {
	sections := []string{d.header(), style.Panel.Render(d.table.View())}

	if token := d.Selected(); token != "" {
		sections = append(sections, style.Panel.Render(lipgloss.JoinVertical(lipgloss.Left,
			style.Title.Render("Price "+shortToken(token)),
			d.spark.View(),
		)))
	}

	sections = append(sections, style.Panel.Render(d.feedView()))
	if d.logs.Visible() {
		sections = append(sections, d.logs.View())
	}
	sections = append(sections, d.help.View(d.keys))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (d *Dashboard) header() string {
	status := d.spin.View() + " running"
	if !d.running {
		status = d.summary()
	}
	return style.Title.Render(d.cfg.Title) + "  " + style.Muted.Render(fmt.Sprintf("%d pools", len(d.pools))) + "  " + status
}

func (d *Dashboard) summary() string {
	if d.done == nil {
		return ""
	}
	completed, failed, volume := task.Summary(d.done.Results)
	s := fmt.Sprintf("done: %d ok, %d failed, %s SOL", completed, failed, monitor.FormatSOL(volume))
	if d.done.Err != nil {
		return style.Sell.Render(s + " (" + d.done.Err.Error() + ")")
	}
	if failed > 0 {
		return lipgloss.NewStyle().Foreground(style.Yellow).Render(s)
	}
	return style.Buy.Render(s)
}

func (d *Dashboard) feedView() string {
	lines := []string{style.Title.Render("Trades")}
	if len(d.feed) == 0 {
		lines = append(lines, style.Muted.Render("waiting for trades..."))
	}
	for _, t := range d.feed {
		side := style.Buy.Render("BUY ")
		if t.Side == types.SideSell {
			side = style.Sell.Render("SELL")
		}
		lines = append(lines, fmt.Sprintf("%s %s %s %s SOL  %s tokens  @ %s",
			style.Muted.Render(t.Timestamp.Format("15:04:05")),
			side,
			shortToken(t.Token),
			monitor.FormatSOL(t.BaseAmount),
			monitor.FormatTokens(t.TokenAmount),
			t.Price.StringFixed(10)))
	}
	return strings.Join(lines, "\n")
}

func shortToken(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:4] + "…" + s[len(s)-4:]
}
