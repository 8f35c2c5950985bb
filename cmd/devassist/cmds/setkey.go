package cmds

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/go-go-golems/devassist/pkg/config"
)

func newSetKeyCommand(g *globalFlags) *cobra.Command {
	var value string
	cmd := &cobra.Command{
		Use:   "set-key",
		Short: "Store the Gemini API key in the dotenv file",
		Long: "Writes GOOGLE_API_KEY to the file named by --env-file, keeping its other entries.\n" +
			"Prompts for the key when --value is not given and stdin is a terminal.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if value == "" {
				if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
					return errors.New("no --value given and stdin is not a terminal")
				}
				v, err := promptAPIKey(g.envFile)
				if err != nil {
					return err
				}
				value = v
			}
			value = strings.TrimSpace(value)
			if value == "" {
				return errors.New("api key is empty")
			}
			if err := config.WriteDotEnvKey(g.envFile, config.APIKeyEnvVar, value); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s = %s written to %s\n", config.APIKeyEnvVar, config.MaskSecret(value), g.envFile)
			return err
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "API key to store (prompted for when empty)")
	return cmd
}

func promptAPIKey(envFile string) (string, error) {
	var value string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("New value for " + config.APIKeyEnvVar).
				Description("Saved to " + envFile).
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("key must not be empty")
					}
					return nil
				}).
				Value(&value),
		),
	).WithTheme(huh.ThemeCharm())
	if err := form.Run(); err != nil {
		return "", errors.Wrap(err, "prompt for api key")
	}
	return value, nil
}
