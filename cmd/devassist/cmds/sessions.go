package cmds

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	chatstore "github.com/go-go-golems/devassist/pkg/persistence/chatstore"
)

func newSessionsCommand(g *globalFlags) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List stored sessions, most recent first",
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
			return writeSessions(cmd.OutOrStdout(), sessions, format)
		},
	}
	addDBFlag(cmd.Flags())
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json or yaml")
	return cmd
}

func writeSessions(w io.Writer, sessions []chatstore.SessionSummary, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"sessions": sessions})
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any{"sessions": sessions}); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		return enc.Close()
	case "text", "":
		if len(sessions) == 0 {
			_, err := fmt.Fprintln(w, "(no sessions)")
			return err
		}
		for _, s := range sessions {
			if _, err := fmt.Fprintf(w, "%s\t%d turns\n", userStyle.Render(s.SessionID), s.Turns); err != nil {
				return err
			}
		}
		return nil
	default:
		return errors.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}
