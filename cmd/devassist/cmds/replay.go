package cmds

import (
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-go-golems/devassist/pkg/history"
	"github.com/go-go-golems/devassist/pkg/turns"
)

type replayRecord struct {
	Role         string              `yaml:"role"`
	Text         *string             `yaml:"text,omitempty"`
	FunctionCall *functionCallRecord `yaml:"function_call,omitempty"`
}

type functionCallRecord struct {
	Name string         `yaml:"name"`
	Args map[string]any `yaml:"args"`
}

func newReplayCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <session-id>",
		Short: "Print the context that would be replayed to the model, as YAML",
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

			entries, err := history.BuildReplay(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			return writeReplay(cmd.OutOrStdout(), entries)
		},
	}
	addDBFlag(cmd.Flags())
	return cmd
}

func writeReplay(w io.Writer, entries []history.Entry) error {
	records := make([]replayRecord, 0, len(entries))
	for _, e := range entries {
		rec := replayRecord{Role: string(e.Role)}
		switch p := e.Payload.(type) {
		case turns.TextPayload:
			text := p.Text
			rec.Text = &text
		case turns.FunctionCallPayload:
			rec.FunctionCall = &functionCallRecord{Name: p.Name, Args: p.Args}
		}
		records = append(records, rec)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(records); err != nil {
		return errors.Wrap(err, "encode replay")
	}
	return enc.Close()
}
