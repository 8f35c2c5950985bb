package cmds

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/devassist/pkg/history"
	"github.com/go-go-golems/devassist/pkg/turns"
)

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	otherStyle     = lipgloss.NewStyle().Bold(true)
	contentStyle   = lipgloss.NewStyle().PaddingLeft(2)
)

func newHistoryCommand(g *globalFlags) *cobra.Command {
	var (
		format   string
		markdown bool
		copyLast bool
	)
	cmd := &cobra.Command{
		Use:   "history <session-id>",
		Short: "Print the display history of a session",
		Args:  cobra.ExactArgs(1),
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

			stored, err := store.ReadAll(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			view := history.Format(stored)
			if copyLast {
				if last, ok := lastAssistantContent(view); ok {
					if err := clipboard.WriteAll(last); err != nil {
						return errors.Wrap(err, "copy to clipboard")
					}
				}
			}
			if markdown && (format == "text" || format == "") {
				view = renderMarkdown(view)
			}
			return writeHistory(cmd.OutOrStdout(), view, format)
		},
	}
	addDBFlag(cmd.Flags())
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or yaml")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "Render assistant replies as markdown (text format only)")
	cmd.Flags().BoolVar(&copyLast, "copy-last", false, "Copy the last assistant reply to the clipboard")
	return cmd
}

// lastAssistantContent returns the newest assistant text, skipping
// placeholders.
func lastAssistantContent(view []history.ViewEntry) (string, bool) {
	for i := len(view) - 1; i >= 0; i-- {
		if view[i].Role == history.RoleAssistant && view[i].Content != history.NonTextPlaceholder {
			return view[i].Content, true
		}
	}
	return "", false
}

// renderMarkdown styles assistant replies; entries that fail to render are
// left as they are.
func renderMarkdown(view []history.ViewEntry) []history.ViewEntry {
	out := make([]history.ViewEntry, len(view))
	copy(out, view)
	for i, e := range out {
		if e.Role != history.RoleAssistant || e.Content == history.NonTextPlaceholder {
			continue
		}
		styled, err := glamour.Render(e.Content, "dark")
		if err != nil {
			continue
		}
		out[i].Content = strings.TrimRight(styled, "\n")
	}
	return out
}

func writeHistory(w io.Writer, view []history.ViewEntry, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"history": view})
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any{"history": view}); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		return enc.Close()
	case "text", "":
		if len(view) == 0 {
			_, err := fmt.Fprintln(w, "(no history)")
			return err
		}
		for _, e := range view {
			if _, err := fmt.Fprintf(w, "%s\n%s\n", roleStyle(e.Role).Render(e.Role+":"), contentStyle.Render(e.Content)); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

func roleStyle(role string) lipgloss.Style {
	switch role {
	case string(turns.RoleUser):
		return userStyle
	case history.RoleAssistant:
		return assistantStyle
	default:
		return otherStyle
	}
}
