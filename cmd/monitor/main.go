// https://github.com/chris-zen/mdp-bridge
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

// Command monitor is a host-side tool: it reads the diagnostic trace
// stream a board writes to its USB-serial console and renders it as a
// live-scrolling dashboard.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tarm/serial"
	"golang.org/x/time/rate"
)

var (
	device  = flag.String("device", "/dev/ttyACM0", "serial device the board's console is attached to")
	baud    = flag.Int("baud", 115200, "serial baud rate")
	history = flag.Int("history", 200, "number of trace lines retained in the scrollback")
)

func main() {
	flag.Parse()

	port, err := serial.OpenPort(&serial.Config{Name: *device, Baud: *baud})
	if err != nil {
		fmt.Fprintf(os.Stderr, "monitor: %v\n", err)
		os.Exit(1)
	}
	defer port.Close()

	lines := make(chan string, 256)
	go readLines(port, lines)

	m := newModel(lines, *history)
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "monitor: %v\n", err)
		os.Exit(1)
	}
}

// readLines pumps newline-terminated trace lines from the board's
// console into lines, blocking on reads the same way the firmware blocks
// on register polling.
func readLines(r *serial.Port, lines chan<- string) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
	close(lines)
}

type lineMsg string
type tickMsg time.Time

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	frameStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	traceStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// model is the bubbletea model for the trace dashboard: a bounded
// scrollback of lines received from the board. Every line is counted,
// but lines arriving faster than the limiter's 30 per second are not
// added to the scrollback, however fast the board produces trace output.
type model struct {
	lines   <-chan string
	maxLen  int
	limiter *rate.Limiter

	history  []string
	received int
	width    int
	height   int
}

func newModel(lines <-chan string, maxLen int) model {
	return model{
		lines:   lines,
		maxLen:  maxLen,
		limiter: rate.NewLimiter(rate.Limit(30), 1),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForLine(m.lines), tick())
}

func waitForLine(lines <-chan string) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-lines
		if !ok {
			return nil
		}
		return lineMsg(line)
	}
}

func tick() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
		return m, nil

	case lineMsg:
		m.received++
		if m.limiter.Allow() {
			m.history = append(m.history, string(msg))
			if len(m.history) > m.maxLen {
				m.history = m.history[len(m.history)-m.maxLen:]
			}
		}
		return m, waitForLine(m.lines)

	case tickMsg:
		return m, tick()

	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.render()
}

func (m model) render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("mdp-bridge monitor -- %d frames", m.received)))

	visible := m.history
	if m.height > 2 && len(visible) > m.height-2 {
		visible = visible[len(visible)-(m.height-2):]
	}
	for _, line := range visible {
		b.WriteString(styleLine(line))
		b.WriteByte('\n')
	}

	b.WriteString(footerStyle.Render("q to quit"))
	return b.String()
}

// styleLine highlights the leading "[pipe length pid noack]" frame header
// the engine's protocol packages emit, and dims everything else.
func styleLine(line string) string {
	if strings.HasPrefix(line, "[") {
		if end := strings.IndexByte(line, ']'); end >= 0 {
			return frameStyle.Render(line[:end+1]) + traceStyle.Render(line[end+1:])
		}
	}
	return traceStyle.Render(line)
}
