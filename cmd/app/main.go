package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/quire/internal"
	pkgconfig "github.com/starford/quire/pkg/config"
)

var version = "dev"

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Usage:       "Path to config file (optional)",
			DefaultText: "config/config.yaml",
			Value:       "config/config.yaml",
			Sources:     cli.EnvVars("QUIRE_CONFIG_FILE"),
		},
		&cli.StringFlag{
			Name:    "vault",
			Usage:   "Vault directory, overrides vault.path",
			Sources: cli.EnvVars("QUIRE_VAULT"),
		},
	}
}

// loadConfig builds the config from defaults, the optional YAML file and the
// vault override. The override comes from --vault or the first positional argument.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	// Flags win over the file.
	if v := cmd.String("vault"); v != "" {
		cfg.Vault.Path = v
	}
	if arg := cmd.Args().First(); arg != "" {
		cfg.Vault.Path = arg
	}
	if err := pkgconfig.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func action(mode internal.Mode) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		opts := []internal.Option{
			internal.WithConfig(cfg),
			internal.WithMode(mode),
			internal.WithVersion(version),
		}

		if err := internal.Run(ctx, opts...); err != nil {
			return fmt.Errorf("app run error: %w", err)
		}
		return nil
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "quire",
		Usage:   "Markdown vault service: note search, daily notes and checkbox tasks over REST and MCP",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:      "serve",
				Usage:     "Serve the REST API with live change events",
				ArgsUsage: "[vault]",
				Flags:     flags(),
				Action:    action(internal.ModeServe),
			},
			{
				Name:      "mcp",
				Usage:     "Serve MCP tools over stdin/stdout",
				ArgsUsage: "[vault]",
				Flags:     flags(),
				Action:    action(internal.ModeMCP),
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
