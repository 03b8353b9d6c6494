package cmd

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"quran-ai/internal/config"
	"quran-ai/internal/metrics"
	"quran-ai/internal/provider"
	providerfactory "quran-ai/internal/provider/factory"
	"quran-ai/internal/router"
	"quran-ai/internal/scripture"
	"quran-ai/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		cfgPath      string
		envFile      string
		overridePort int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP relay",
		Long: `Start the HTTP relay.

Without --config, defaults are used and API keys are read from
TOGETHER_API_KEY, GROQ_API_KEY and OPENROUTER_API_KEY.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFile(envFile, cmd.Flags().Changed("env-file")); err != nil {
				return err
			}

			cfg := config.Default()
			if cfgPath != "" {
				loaded, err := config.Load(cfgPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			if cmd.Flags().Changed("port") {
				if overridePort <= 0 || overridePort > 65535 {
					return fmt.Errorf("port override %d must be a valid TCP port", overridePort)
				}
				cfg.Server.Port = overridePort
			}

			setupLogging(cfg.Log.Level, cfg.Log.Format)

			collector := metrics.New()
			registry := provider.NewRegistry()
			if err := providerfactory.RegisterConfiguredProviders(cfg, registry, collector); err != nil {
				return err
			}

			rt := router.New(registry, cfg.Providers)
			sc := scripture.New(cfg.Scripture, nil)

			srv, err := server.New(cfg, rt, sc, collector)
			if err != nil {
				return err
			}

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "Dotenv file to load before reading configuration")
	cmd.Flags().IntVarP(&overridePort, "port", "p", 0, "Override server port from configuration")
	return cmd
}

// loadEnvFile loads path into the environment. A missing default file is
// not an error; a missing file named explicitly is.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
