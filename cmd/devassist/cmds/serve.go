package cmds

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/devassist/pkg/chat"
	"github.com/go-go-golems/devassist/pkg/config"
	"github.com/go-go-golems/devassist/pkg/filefilter"
	"github.com/go-go-golems/devassist/pkg/inference/gemini"
	"github.com/go-go-golems/devassist/pkg/tools"
	"github.com/go-go-golems/devassist/pkg/webchat"
)

func newServeCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.loadSettings(cmd.LocalFlags())
			if err != nil {
				return err
			}
			if err := s.Validate(); err != nil {
				return err
			}
			return runServe(cmd, s)
		},
	}
	fs := cmd.Flags()
	fs.String("addr", config.DefaultAddr, "HTTP listen address")
	addDBFlag(fs)
	fs.String("allowed-origin", config.DefaultAllowedOrigin, "CORS allowed origin")
	fs.String("model", config.DefaultModel, "Gemini model name")
	fs.Bool("auto-function-calling", true, "Execute tool calls requested by the model")
	fs.Int("max-tool-iterations", config.DefaultMaxToolIterations, "Maximum tool rounds per chat turn")
	fs.String("tools-root", ".", "Directory the file tools are confined to")
	fs.Bool("tools-respect-gitignore", false, "Hide .gitignore'd entries and vendor/build directories from file listings")
	fs.Int64("tools-max-file-size", 0, "Refuse to read files larger than this many bytes (0: unlimited)")
	fs.Bool("tools-skip-binary", true, "Refuse to read binary files")
	fs.String("system-instruction", "", "Optional system instruction for the model")
	return cmd
}

func runServe(cmd *cobra.Command, s config.Settings) error {
	ctx := cmd.Context()

	store, err := openStore(s.DB)
	if err != nil {
		return err
	}
	closeOnErr := func(err error) error {
		_ = store.Close()
		return err
	}

	fsTools, err := newFileSystem(s)
	if err != nil {
		return closeOnErr(err)
	}
	registry := tools.NewRegistry()
	if err := tools.RegisterFileSystemTools(registry, fsTools); err != nil {
		return closeOnErr(err)
	}

	eng, err := gemini.New(ctx, gemini.Settings{
		APIKey:              s.APIKey,
		Model:               s.Model,
		AutoFunctionCalling: s.AutoFunctionCalling,
		MaxToolIterations:   s.MaxToolIterations,
		SystemInstruction:   s.SystemInstruction,
	}, registry)
	if err != nil {
		return closeOnErr(errors.Wrap(err, "create gemini engine"))
	}

	svc, err := chat.NewService(chat.ServiceConfig{Store: store, Engine: eng})
	if err != nil {
		return closeOnErr(err)
	}
	router, err := webchat.NewRouter(svc,
		webchat.WithAllowedOrigin(s.AllowedOrigin),
		webchat.WithLogger(log.With().Str("component", "webchat").Logger()),
	)
	if err != nil {
		return closeOnErr(err)
	}
	srv, err := webchat.NewServer(webchat.ServerConfig{
		Addr:    s.Addr,
		Handler: router.Handler(),
		Store:   store,
	})
	if err != nil {
		return closeOnErr(err)
	}

	log.Info().
		Str("db", s.DB).
		Str("model", eng.Model()).
		Str("tools_root", fsTools.Root()).
		Int("tools", registry.Len()).
		Str("allowed_origin", s.AllowedOrigin).
		Msg("devassist configured")
	return srv.Run(ctx)
}

func newFileSystem(s config.Settings) (*tools.FileSystem, error) {
	plain, err := tools.NewFileSystem(s.ToolsRoot)
	if err != nil {
		return nil, err
	}
	opts := []filefilter.FileFilterOption{
		filefilter.WithMaxFileSize(s.ToolsMaxFileSize),
		filefilter.WithFilterBinaryFiles(s.ToolsSkipBinary),
	}
	if s.ToolsRespectGitignore {
		opts = append(opts, filefilter.WithGitIgnore(plain.Root()), filefilter.WithDefaultExcludedDirs())
	}
	ff, err := filefilter.NewFileFilter(opts...)
	if err != nil {
		return nil, err
	}
	return tools.NewFileSystem(plain.Root(), tools.WithFileFilter(ff))
}
