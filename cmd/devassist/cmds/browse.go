package cmds

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/devassist/pkg/history"
	chatstore "github.com/go-go-golems/devassist/pkg/persistence/chatstore"
)

const listWidth = 40

var (
	listPane = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	historyPane = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	noSelectionStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#888888")).
				Align(lipgloss.Center).
				PaddingTop(2)
)

type sessionItem struct {
	chatstore.SessionSummary
}

func (i sessionItem) Title() string { return i.SessionID }
func (i sessionItem) Description() string {
	return fmt.Sprintf("%d turns, last #%d", i.Turns, i.LastSequence)
}
func (i sessionItem) FilterValue() string { return i.SessionID }

type browseModel struct {
	ctx      context.Context
	store    chatstore.HistoryStore
	list     list.Model
	viewport viewport.Model
	ready    bool
	selected string
	content  string
	width    int
	height   int
}

func newBrowseModel(ctx context.Context, store chatstore.HistoryStore, sessions []chatstore.SessionSummary) browseModel {
	items := make([]list.Item, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, sessionItem{SessionSummary: s})
	}
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Sessions"
	l.SetShowHelp(false)
	m := browseModel{ctx: ctx, store: store, list: l}
	m.loadSelected()
	return m
}

func (m browseModel) Init() tea.Cmd { return nil }

func (m *browseModel) loadSelected() {
	item, ok := m.list.SelectedItem().(sessionItem)
	if !ok {
		m.selected = ""
		m.content = noSelectionStyle.Render("No sessions")
		return
	}
	if item.SessionID == m.selected {
		return
	}
	m.selected = item.SessionID
	stored, err := m.store.ReadAll(m.ctx, item.SessionID)
	if err != nil {
		m.content = "error: " + err.Error()
	} else {
		m.content = renderHistory(history.Format(stored), m.viewport.Width)
	}
	if m.ready {
		m.viewport.SetContent(m.content)
		m.viewport.GotoTop()
	}
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "q", "ctrl+c", "esc":
				return m, tea.Quit
			case "pgup", "pgdown", "ctrl+u", "ctrl+d":
				var cmd tea.Cmd
				m.viewport, cmd = m.viewport.Update(msg)
				return m, cmd
			}
		}
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
		m.loadSelected()

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		hFrame, vFrame := historyPane.GetFrameSize()
		m.list.SetSize(listWidth, msg.Height-vFrame)
		vpWidth := msg.Width - listWidth - listPane.GetHorizontalFrameSize() - hFrame
		if vpWidth < 10 {
			vpWidth = 10
		}
		if !m.ready {
			m.viewport = viewport.New(vpWidth, msg.Height-vFrame)
			m.ready = true
		} else {
			m.viewport.Width = vpWidth
			m.viewport.Height = msg.Height - vFrame
		}
		// re-render wrapped to the new width
		m.selected = ""
		m.loadSelected()

	default:
		var cmd tea.Cmd
		m.list, cmd = m.list.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m browseModel) View() string {
	if !m.ready {
		return "loading..."
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		listPane.Render(m.list.View()),
		historyPane.Render(m.viewport.View()),
	)
}

func renderHistory(view []history.ViewEntry, width int) string {
	if len(view) == 0 {
		return noSelectionStyle.Render("(no history)")
	}
	body := contentStyle
	if width > 4 {
		body = body.Width(width - 2)
	}
	var sb strings.Builder
	for i, e := range view {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(roleStyle(e.Role).Render(e.Role + ":"))
		sb.WriteString("\n")
		sb.WriteString(body.Render(e.Content))
		sb.WriteString("\n")
	}
	return sb.String()
}

func newBrowseCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse stored sessions in a terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.loadSettings(cmd.LocalFlags())
			if err != nil {
				return err
			}
			store, err := openStore(s.DB)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			sessions, err := listSessions(cmd.Context(), store)
			if err != nil {
				return err
			}
			p := tea.NewProgram(newBrowseModel(cmd.Context(), store, sessions), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return errors.Wrap(err, "run browser")
			}
			return nil
		},
	}
	addDBFlag(cmd.Flags())
	return cmd
}

func listSessions(ctx context.Context, store chatstore.HistoryStore) ([]chatstore.SessionSummary, error) {
	lister, ok := store.(chatstore.SessionLister)
	if !ok {
		return nil, errors.New("history store cannot list sessions")
	}
	return lister.ListSessions(ctx)
}
