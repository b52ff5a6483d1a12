package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"

	"github.com/nhle/recruit-inbox/internal/credential"
)

type LoginCmd struct {
	flags *Flags
	token string
}

// NewLoginCmd creates the login and logout commands
func NewLoginCmd(flags *Flags) *LoginCmd {
	return &LoginCmd{flags: flags}
}

// Register adds the login and logout commands to the application
func (cmd *LoginCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:        "login",
			Usage:       "Store the API token in the system keyring",
			UsageText:   "inbox login [--token <token>]",
			Description: "Prompts for the bearer token unless --token is given.",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:        "token",
					Usage:       "API bearer token",
					Destination: &cmd.token,
				},
			},
			Action: cmd.login,
		},
		&cli.Command{
			Name:   "logout",
			Usage:  "Remove the API token from the system keyring",
			Action: cmd.logout,
		},
	)

	return app
}

func (cmd *LoginCmd) login(ctx context.Context, c *cli.Command) error {
	token := strings.TrimSpace(cmd.token)
	if token == "" {
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("API token").
					Description("Bearer token for " + cmd.flags.Config.API.BaseURL).
					EchoMode(huh.EchoModePassword).
					Value(&token).
					Validate(func(s string) error {
						if strings.TrimSpace(s) == "" {
							return errors.New("token is required")
						}
						return nil
					}),
			),
		)
		if err := form.RunWithContext(ctx); err != nil {
			return fmt.Errorf("prompt: %w", err)
		}
		token = strings.TrimSpace(token)
	}

	if err := credential.Set(credential.TokenKey, token); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.Root().Writer, "Token saved")
	return nil
}

func (cmd *LoginCmd) logout(_ context.Context, c *cli.Command) error {
	if err := credential.Delete(credential.TokenKey); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(c.Root().Writer, "Token removed")
	return nil
}
