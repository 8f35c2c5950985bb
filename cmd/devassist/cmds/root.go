// Package cmds holds the devassist cobra commands.
package cmds

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/go-go-golems/devassist/pkg/config"
	"github.com/go-go-golems/devassist/pkg/logging"
	chatstore "github.com/go-go-golems/devassist/pkg/persistence/chatstore"
)

// memoryDB selects the in-memory history store instead of a SQLite file.
const memoryDB = "memory"

type globalFlags struct {
	configFile string
	envFile    string
	logging    *logging.Settings
}

func NewRootCommand() *cobra.Command {
	g := &globalFlags{}
	rootCmd := &cobra.Command{
		Use:           config.AppName,
		Short:         "devassist is a development assistant chat backend backed by Gemini",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// reinitialize the logger now that --log-level and co are parsed
			return logging.InitLogger(*g.logging)
		},
	}
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "Config file (default ./devassist.yaml or $HOME/.devassist/devassist.yaml)")
	pf.StringVar(&g.envFile, "env-file", ".env", "dotenv file providing GOOGLE_API_KEY")
	g.logging = logging.AddFlags(pf)

	rootCmd.AddCommand(
		newServeCommand(g),
		newHistoryCommand(g),
		newReplayCommand(g),
		newSessionsCommand(g),
		newBrowseCommand(g),
		newSetKeyCommand(g),
	)
	return rootCmd
}

// loadSettings resolves settings from the command's local flags, the
// environment, the config file and the dotenv file.
func (g *globalFlags) loadSettings(fs *pflag.FlagSet) (config.Settings, error) {
	v := config.New()
	if err := config.ReadDotEnv(v, g.envFile); err != nil {
		return config.Settings{}, err
	}
	if err := config.ReadConfigFile(v, g.configFile); err != nil {
		return config.Settings{}, err
	}
	if err := config.BindFlags(v, fs); err != nil {
		return config.Settings{}, err
	}
	return config.Load(v)
}

func openStore(db string) (chatstore.HistoryStore, error) {
	if strings.EqualFold(strings.TrimSpace(db), memoryDB) {
		return chatstore.NewInMemoryHistoryStore(), nil
	}
	store, err := chatstore.OpenSQLiteHistoryStoreFile(db)
	if err != nil {
		return nil, errors.Wrapf(err, "open history database %s", db)
	}
	return store, nil
}

func addDBFlag(fs *pflag.FlagSet) {
	fs.String("db", config.DefaultDB, `SQLite history database path ("memory" for a non-persistent store)`)
}
