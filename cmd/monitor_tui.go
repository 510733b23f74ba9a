// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 The dominobus Authors

package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dominohub/dominobus/pkg/bridge"
	"github.com/dominohub/dominobus/pkg/devices"
	"github.com/dominohub/dominobus/pkg/domino"
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// Focus states
const (
	focusEntityList = iota
	focusLevelInput
)

// logEntry is one line of the event log
type logEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// entityItem is one bridged entity in the list
type entityItem struct {
	info      bridge.Info
	state     bridge.State
	available bool
	seen      bool
}

// Implement list.Item interface
func (e entityItem) Title() string       { return e.info.Name }
func (e entityItem) Description() string { return describeEntity(e) }
func (e entityItem) FilterValue() string { return e.info.Name }

func describeEntity(e entityItem) string {
	switch {
	case !e.seen:
		return "waiting..."
	case !e.available:
		return "unavailable"
	case e.info.Component == bridge.ComponentLight:
		if !e.state.On {
			return "off"
		}
		if e.info.Dimmable {
			return fmt.Sprintf("on %d%%", e.state.Brightness*100/bridge.MaxBrightness)
		}
		return "on"
	default:
		return strings.TrimSpace(e.state.Value + " " + e.info.Unit)
	}
}

// monitorModel is the Bubble Tea model for the monitor TUI
type monitorModel struct {
	bridge   *bridge.Bridge
	stats    *domino.Statistics
	connInfo string

	entityList list.Model
	index      map[string]int

	levelInput   textinput.Model
	focusedField int

	eventLog      []logEntry
	maxLogEntries int
	showExchanges bool

	width    int
	height   int
	quitting bool
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type monitorTickMsg time.Time

type announceMsg struct {
	infos []bridge.Info
}

type stateMsg struct {
	uid   string
	state bridge.State
}

type availabilityMsg struct {
	uid       string
	available bool
}

type exchangeMsg domino.Exchange

type commandResultMsg struct {
	name string
	err  error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialMonitorModel(b *bridge.Bridge, stats *domino.Statistics, connInfo string) monitorModel {
	ti := textinput.New()
	ti.Placeholder = "0-100"
	ti.CharLimit = 3
	ti.Width = 6

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	entityList := list.New([]list.Item{}, delegate, 40, 12)
	entityList.Title = "Devices"
	entityList.SetShowStatusBar(false)
	entityList.SetShowHelp(false)
	entityList.SetFilteringEnabled(false)

	return monitorModel{
		bridge:        b,
		stats:         stats,
		connInfo:      connInfo,
		entityList:    entityList,
		index:         make(map[string]int),
		levelInput:    ti,
		focusedField:  focusEntityList,
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

//////////////////////////////////////////////////////////////
// Bubble Tea Interface
//////////////////////////////////////////////////////////////

func (m monitorModel) Init() tea.Cmd {
	return monitorTickCmd()
}

func monitorTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return monitorTickMsg(t)
	})
}

func (m monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.entityList.SetSize(max(m.width/2-2, 30), max(m.height-16, 6))

	case monitorTickMsg:
		// Redraw for rates
		return m, monitorTickCmd()

	case announceMsg:
		items := make([]list.Item, len(msg.infos))
		for i, info := range msg.infos {
			items[i] = entityItem{info: info}
			m.index[info.UniqueID] = i
		}
		cmd := m.entityList.SetItems(items)
		m.addLogEntry(fmt.Sprintf("Polling %d entities", len(items)), false)
		return m, cmd

	case stateMsg:
		item, ok := m.item(msg.uid)
		if !ok {
			return m, nil
		}
		item.state = msg.state
		item.seen = true
		item.available = true
		return m, m.entityList.SetItem(m.index[msg.uid], item)

	case availabilityMsg:
		item, ok := m.item(msg.uid)
		if !ok {
			return m, nil
		}
		if item.seen && item.available != msg.available {
			if msg.available {
				m.addLogEntry(item.info.Name+" available again", false)
			} else {
				m.addLogEntry(item.info.Name+" unavailable", true)
			}
		}
		item.available = msg.available
		item.seen = true
		return m, m.entityList.SetItem(m.index[msg.uid], item)

	case exchangeMsg:
		m.logExchange(domino.Exchange(msg))

	case commandResultMsg:
		if msg.err != nil {
			m.addLogEntry(fmt.Sprintf("%s: %v", msg.name, msg.err), true)
		} else {
			m.addLogEntry(msg.name+" updated", false)
		}
	}

	return m, nil
}

func (m monitorModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "tab", "shift+tab":
		return m.toggleFocus(), nil

	case "enter":
		return m.handleEnter()
	}

	if m.focusedField == focusLevelInput {
		var cmd tea.Cmd
		m.levelInput, cmd = m.levelInput.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "x":
		m.showExchanges = !m.showExchanges
		return m, nil
	}

	var cmd tea.Cmd
	m.entityList, cmd = m.entityList.Update(msg)
	return m, cmd
}

// toggleFocus moves between the list and the level input. The input only
// takes focus when a dimmable light is selected.
func (m monitorModel) toggleFocus() monitorModel {
	if m.focusedField == focusLevelInput {
		m.focusedField = focusEntityList
		m.levelInput.Blur()
		return m
	}

	selected, ok := m.selected()
	if !ok || !selected.info.Dimmable {
		return m
	}
	m.focusedField = focusLevelInput
	m.levelInput.Focus()
	return m
}

func (m monitorModel) handleEnter() (tea.Model, tea.Cmd) {
	selected, ok := m.selected()
	if !ok {
		return m, nil
	}
	if selected.info.Component != bridge.ComponentLight {
		m.addLogEntry(selected.info.Name+" is read-only", true)
		return m, nil
	}

	if m.focusedField == focusLevelInput {
		c, err := levelCommand(m.levelInput.Value())
		if err != nil {
			m.addLogEntry(err.Error(), true)
			return m, nil
		}
		m.levelInput.SetValue("")
		return m, m.sendCommand(selected.info, c)
	}

	c := bridge.Command{State: bridge.StateOn}
	if selected.state.On {
		c.State = bridge.StateOff
	}
	return m, m.sendCommand(selected.info, c)
}

// sendCommand applies c off the UI goroutine. The resulting state comes
// back through the sink.
func (m monitorModel) sendCommand(info bridge.Info, c bridge.Command) tea.Cmd {
	b := m.bridge
	return func() tea.Msg {
		err := b.HandleCommand(context.Background(), info.UniqueID, c)
		return commandResultMsg{name: info.Name, err: err}
	}
}

// levelCommand turns a typed percentage into a light command.
func levelCommand(input string) (bridge.Command, error) {
	pct, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return bridge.Command{}, fmt.Errorf("invalid level %q", input)
	}
	pct = devices.ClampPercent(pct)

	bri := pct * bridge.MaxBrightness / 100
	c := bridge.Command{State: bridge.StateOn, Brightness: &bri}
	if pct == 0 {
		c.State = bridge.StateOff
	}
	return c, nil
}

func (m monitorModel) selected() (entityItem, bool) {
	item, ok := m.entityList.SelectedItem().(entityItem)
	return item, ok
}

func (m monitorModel) item(uid string) (entityItem, bool) {
	i, ok := m.index[uid]
	if !ok {
		return entityItem{}, false
	}
	item, ok := m.entityList.Items()[i].(entityItem)
	return item, ok
}

// logExchange logs failed exchanges, and every exchange when toggled on.
func (m *monitorModel) logExchange(e domino.Exchange) {
	result := e.Result()
	failed := result != domino.ResultOK && result != domino.ResultNoData
	if !failed && !m.showExchanges {
		return
	}

	msg := fmt.Sprintf("%s module %d: %s", domino.FormatFunction(e.Request.Function()), e.Request.Module(), result)
	if e.Err != nil {
		msg = fmt.Sprintf("%s module %d: %v", domino.FormatFunction(e.Request.Function()), e.Request.Module(), e.Err)
	}
	m.addLogEntry(fmt.Sprintf("%s (%s)", msg, e.Duration.Round(time.Millisecond)), failed)
}

func (m *monitorModel) addLogEntry(message string, isError bool) {
	m.eventLog = append(m.eventLog, logEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	})

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	statsLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("12")).
			Bold(true)

	statsValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	focusedBoxStyle = boxStyle.
			BorderForeground(lipgloss.Color("12"))
)

func (m monitorModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	var s strings.Builder

	// Header
	mode := "Errors only"
	if m.showExchanges {
		mode = "All exchanges"
	}
	s.WriteString(titleStyle.Render("DOMINOBUS - MONITOR"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Log: %s | tab: level  enter: toggle/apply  x: log mode  q: quit",
		m.connInfo, mode)))
	s.WriteString("\n\n")

	listBox := boxStyle
	if m.focusedField == focusEntityList {
		listBox = focusedBoxStyle
	}
	left := listBox.Render(m.entityList.View())
	right := lipgloss.JoinVertical(lipgloss.Left, m.renderStats(), m.renderControl())
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right))
	s.WriteString("\n\n")

	s.WriteString(statsLabelStyle.Render("Recent Events:"))
	s.WriteString("\n")
	s.WriteString(boxStyle.Width(max(m.width-4, 20)).Render(m.renderLog()))

	return s.String()
}

func (m monitorModel) renderStats() string {
	snap := m.stats.Snapshot()

	var okPercent float64
	if snap.TotalExchanges > 0 {
		okPercent = float64(snap.Succeeded) * 100.0 / float64(snap.TotalExchanges)
	}

	errorValue := func(n uint64) string {
		if n > 0 {
			return errorStyle.Render(strconv.FormatUint(n, 10))
		}
		return statsValueStyle.Render("0")
	}

	var c strings.Builder
	fmt.Fprintf(&c, "%s %s\n", statsLabelStyle.Render("Exchanges: "), statsValueStyle.Render(strconv.FormatUint(snap.TotalExchanges, 10)))
	fmt.Fprintf(&c, "%s %s\n", statsLabelStyle.Render("Succeeded: "), statsValueStyle.Render(fmt.Sprintf("%d (%.1f%%)", snap.Succeeded, okPercent)))
	fmt.Fprintf(&c, "%s %s\n", statsLabelStyle.Render("No data:   "), warningStyle.Render(strconv.FormatUint(snap.NoData, 10)))
	fmt.Fprintf(&c, "%s %s\n", statsLabelStyle.Render("Timeouts:  "), errorValue(snap.Timeouts))
	fmt.Fprintf(&c, "%s %s\n", statsLabelStyle.Render("Malformed: "), errorValue(snap.Malformed))
	fmt.Fprintf(&c, "%s %s\n", statsLabelStyle.Render("I/O errors:"), errorValue(snap.IOErrors))
	fmt.Fprintf(&c, "%s %s\n", statsLabelStyle.Render("Latency:   "), statsValueStyle.Render(fmt.Sprintf("avg %s  max %s",
		snap.AverageLatency().Round(time.Millisecond), snap.MaxLatency.Round(time.Millisecond))))
	fmt.Fprintf(&c, "%s %s", statsLabelStyle.Render("Rate:      "), statsValueStyle.Render(fmt.Sprintf("%.1f xchg/s", snap.ExchangeRate)))

	return boxStyle.Render(c.String())
}

func (m monitorModel) renderControl() string {
	selected, ok := m.selected()
	if !ok {
		return boxStyle.Render(headerStyle.Render("(no device selected)"))
	}

	var c strings.Builder
	fmt.Fprintf(&c, "%s %s\n", statsLabelStyle.Render(selected.info.Name), headerStyle.Render(selected.info.UniqueID))
	fmt.Fprintf(&c, "%s %s", statsLabelStyle.Render("State:"), statsValueStyle.Render(describeEntity(selected)))
	if selected.info.Dimmable {
		fmt.Fprintf(&c, "\n%s %s", statsLabelStyle.Render("Level:"), m.levelInput.View())
	}

	if m.focusedField == focusLevelInput {
		return focusedBoxStyle.Render(c.String())
	}
	return boxStyle.Render(c.String())
}

func (m monitorModel) renderLog() string {
	logHeight := max(m.height-22, 5)
	start := max(len(m.eventLog)-logHeight, 0)

	if len(m.eventLog) == 0 {
		return headerStyle.Render("  (no events yet)")
	}

	var c strings.Builder
	for _, entry := range m.eventLog[start:] {
		timestamp := entry.timestamp.Format("15:04:05.000")
		if entry.isError {
			fmt.Fprintf(&c, "%s %s\n", headerStyle.Render(timestamp), errorStyle.Render("✗ "+entry.message))
		} else {
			fmt.Fprintf(&c, "%s %s\n", headerStyle.Render(timestamp), warningStyle.Render("ℹ "+entry.message))
		}
	}
	return strings.TrimRight(c.String(), "\n")
}
