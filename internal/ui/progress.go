package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

// TransferBar is the bubbletea model for one file's transfer progress.
// Set is safe to call from the sender goroutine while the program runs.
type TransferBar struct {
	mu        sync.RWMutex
	bar       progress.Model
	name      string
	total     int64
	current   int64
	startTime time.Time
	started   bool
	done      bool
}

// NewTransferBar creates a progress bar for one file.
func NewTransferBar(name string, total int64) *TransferBar {
	return &TransferBar{
		bar: progress.New(
			progress.WithGradient("#22d3ee", "#0ea5e9"),
			progress.WithWidth(30),
			progress.WithoutPercentage(),
		),
		name:  name,
		total: total,
	}
}

// TickMsg drives periodic redraws.
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (t *TransferBar) Init() tea.Cmd {
	return tickCmd()
}

func (t *TransferBar) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return t, tea.Quit
		}

	case TickMsg:
		if t.Complete() {
			return t, tea.Quit
		}
		return t, tickCmd()

	case progress.FrameMsg:
		model, cmd := t.bar.Update(msg)
		t.bar = model.(progress.Model)
		return t, cmd
	}
	return t, nil
}

// Set updates the transferred byte count.
func (t *TransferBar) Set(current int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started && current > 0 {
		t.started = true
		t.startTime = time.Now()
	}
	t.current = current
	if t.total > 0 && current >= t.total {
		t.done = true
	}
}

// Complete reports whether the transfer finished.
func (t *TransferBar) Complete() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.done
}

func (t *TransferBar) View() string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s ", t.name))

	if t.total > 0 {
		ratio := float64(t.current) / float64(t.total)
		b.WriteString(t.bar.ViewAs(ratio))
		b.WriteString(fmt.Sprintf(" %5.1f%%", ratio*100))
	}
	b.WriteString(MutedStyle.Render(fmt.Sprintf(" (%s/%s)", FormatSize(t.current), FormatSize(t.total))))
	b.WriteString("\n")
	return b.String()
}

// TransferUI runs a TransferBar inside a bubbletea program on the caller's
// terminal. Default inline mode, no alt screen, so previous output stays
// visible.
type TransferUI struct {
	bar     *TransferBar
	program *tea.Program
	wg      sync.WaitGroup
}

// RunTransferBar starts the program in a goroutine and returns the handle
// the sender drives.
func RunTransferBar(name string, total int64) *TransferUI {
	ui := &TransferUI{bar: NewTransferBar(name, total)}
	ui.program = tea.NewProgram(ui.bar)

	ui.wg.Add(1)
	go func() {
		defer ui.wg.Done()
		if _, err := ui.program.Run(); err != nil {
			fmt.Printf("UI error: %v\n", err)
		}
	}()
	return ui
}

// Set updates the transferred byte count.
func (ui *TransferUI) Set(current int64) {
	ui.bar.Set(current)
}

// Stop ends the program and waits for it to exit. The program also quits
// on its own once the bar reports complete; Quit is safe either way.
func (ui *TransferUI) Stop() {
	ui.program.Quit()
	ui.wg.Wait()
}
