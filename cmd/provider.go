package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quocvuong92/ai-shell/internal/config"
	"github.com/quocvuong92/ai-shell/internal/constants"
	"github.com/quocvuong92/ai-shell/internal/display"
	"github.com/quocvuong92/ai-shell/internal/logging"
)

// maxSetupPrompts bounds the first-run questions asked by ensureConfig
const maxSetupPrompts = 4

// ensureConfig validates the configuration and asks for what is missing,
// saving each answer to the user config file.
func (app *App) ensureConfig() error {
	for i := 0; ; i++ {
		err := app.cfg.Validate()
		if err == nil {
			return nil
		}
		if i == maxSetupPrompts {
			return err
		}

		switch {
		case errors.Is(err, config.ErrProviderNotSet), errors.Is(err, config.ErrInvalidProvider):
			p, askErr := app.askProvider()
			if askErr != nil {
				return askErr
			}
			app.cfg.Provider = p
			if err := app.persist(func(fc *config.FileConfig) { config.SetProvider(fc, p) }); err != nil {
				return err
			}

		case errors.Is(err, config.ErrAPIKeyNotFound):
			provider := app.cfg.Provider
			key := app.ask(fmt.Sprintf("Enter your %s API key (or set %s):", provider, config.APIKeyEnv(provider)), "")
			if key == "" {
				return err
			}
			if provider == constants.ProviderOpenAI {
				app.cfg.OpenAIAPIKey = key
			} else {
				app.cfg.GoogleAPIKey = key
			}
			if err := app.persist(func(fc *config.FileConfig) { config.SetAPIKey(fc, provider, key) }); err != nil {
				return err
			}

		case errors.Is(err, config.ErrInvalidTemperature):
			answer := app.ask("Enter a temperature between 0 and 1:", fmt.Sprint(config.DefaultTemperature))
			t, perr := config.ParseTemperature(answer)
			if answer == "" || perr != nil {
				return err
			}
			app.cfg.TemperatureRaw = answer
			if err := app.persist(func(fc *config.FileConfig) { config.SetTemperature(fc, t) }); err != nil {
				return err
			}

		default:
			return err
		}
	}
}

func (app *App) askProvider() (string, error) {
	answer := strings.ToLower(app.ask("Choose a model provider (google or openai):", constants.DefaultProvider))
	switch {
	case answer == "":
		return "", config.ErrProviderNotSet
	case !config.ValidProvider(answer):
		return "", fmt.Errorf("%w: %q", config.ErrInvalidProvider, answer)
	}
	return answer, nil
}

// persist writes a change to the user config file
func (app *App) persist(mutate func(fc *config.FileConfig)) error {
	path, err := app.saveConfig(mutate)
	if err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}
	app.logger.Debug("Configuration saved", logging.Fields{"path": path})
	return nil
}

// newProviderCmd creates the provider command
func (app *App) newProviderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "provider [google|openai]",
		Short: "Choose the model provider",
		Long: `Choose the model provider and save it to the user config file.

Without an argument you are asked interactively.

Examples:
  ai-shell provider google
  ai-shell provider openai`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p string
			if len(args) == 1 {
				p = strings.ToLower(strings.TrimSpace(args[0]))
				if !config.ValidProvider(p) {
					return fmt.Errorf("%w: %q", config.ErrInvalidProvider, p)
				}
			} else {
				var err error
				if p, err = app.askProvider(); err != nil {
					return err
				}
			}
			if err := app.persist(func(fc *config.FileConfig) { config.SetProvider(fc, p) }); err != nil {
				return err
			}
			display.ShowSuccess("Provider set to " + p)
			return nil
		},
	}
}

// newSetAPIKeyCmd creates the set-api-key command
func (app *App) newSetAPIKeyCmd() *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "set-api-key [key]",
		Short: "Save the API key for the model provider",
		Long: `Save the API key for the configured provider, or the one given with
--provider, to the user config file.

Examples:
  ai-shell set-api-key AIza...
  ai-shell set-api-key --provider openai sk-...`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if provider == "" {
				err := app.cfg.Validate()
				if err != nil && !errors.Is(err, config.ErrAPIKeyNotFound) {
					return err
				}
				provider = app.cfg.Provider
			}
			provider = strings.ToLower(provider)
			if !config.ValidProvider(provider) {
				return fmt.Errorf("%w: %q", config.ErrInvalidProvider, provider)
			}

			var key string
			if len(args) == 1 {
				key = strings.TrimSpace(args[0])
			} else {
				key = app.ask(fmt.Sprintf("Enter your %s API key:", provider), "")
			}
			if key == "" {
				return errors.New("no API key given")
			}
			if err := app.persist(func(fc *config.FileConfig) { config.SetAPIKey(fc, provider, key) }); err != nil {
				return err
			}
			display.ShowSuccess("API key saved for " + provider)
			return nil
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "Provider the key belongs to (default: the configured provider)")
	return cmd
}

// newSetTemperatureCmd creates the set-temperature command
func (app *App) newSetTemperatureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-temperature [0..1]",
		Short: "Save the sampling temperature",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var answer string
			if len(args) == 1 {
				answer = args[0]
			} else {
				answer = app.ask("Enter a temperature between 0 and 1:", fmt.Sprint(config.DefaultTemperature))
			}
			t, err := config.ParseTemperature(answer)
			if err != nil {
				return err
			}
			if err := app.persist(func(fc *config.FileConfig) { config.SetTemperature(fc, t) }); err != nil {
				return err
			}
			display.ShowSuccess(fmt.Sprintf("Temperature set to %g", t))
			return nil
		},
	}
}

// newConfigCmd creates the config command group
func (app *App) newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a commented default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfigFile()
			if err != nil {
				return err
			}
			display.ShowSuccess("Config file created at " + path)
			return nil
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.UserConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	})
	return configCmd
}
