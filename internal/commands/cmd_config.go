package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/nhle/recruit-inbox/internal/model"
)

type ConfigCmd struct {
	flags *Flags

	role    string
	userID  string
	baseURL string
}

// NewConfigCmd creates a new config command
func NewConfigCmd(flags *Flags) *ConfigCmd {
	return &ConfigCmd{flags: flags}
}

// Register adds the config command to the application
func (cmd *ConfigCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "config",
		Usage:     "Show or update the configuration",
		UsageText: "inbox config [show|set]",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration as YAML",
				Action: cmd.show,
			},
			{
				Name:  "set",
				Usage: "Update and save configuration values",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "base-url",
						Usage:       "API base URL",
						Destination: &cmd.baseURL,
					},
					&cli.StringFlag{
						Name:        "role",
						Usage:       "viewer role (applicant, recruiter)",
						Destination: &cmd.role,
					},
					&cli.StringFlag{
						Name:        "user-id",
						Usage:       "viewer user id",
						Destination: &cmd.userID,
					},
				},
				Action: cmd.set,
			},
		},
		Action: cmd.show,
	})

	return app
}

func (cmd *ConfigCmd) show(_ context.Context, c *cli.Command) error {
	enc := yaml.NewEncoder(c.Root().Writer)
	enc.SetIndent(2)
	if err := enc.Encode(cmd.flags.Config); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return enc.Close()
}

func (cmd *ConfigCmd) set(_ context.Context, c *cli.Command) error {
	cfg := *cmd.flags.Config
	if cmd.baseURL != "" {
		cfg.API.BaseURL = cmd.baseURL
	}
	if cmd.role != "" {
		cfg.Viewer.Role = model.ParseSenderRole(cmd.role)
	}
	if cmd.userID != "" {
		cfg.Viewer.UserID = cmd.userID
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := model.SaveConfig(cmd.flags.ConfigPath, &cfg); err != nil {
		return err
	}

	cmd.flags.Config = &cfg
	_, _ = fmt.Fprintf(c.Root().Writer, "Saved %s\n", cmd.flags.ConfigPath)
	return nil
}
