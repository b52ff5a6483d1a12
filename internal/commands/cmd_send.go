package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

type SendCmd struct {
	flags *Flags
}

// NewSendCmd creates a new send command
func NewSendCmd(flags *Flags) *SendCmd {
	return &SendCmd{flags: flags}
}

// Register adds the send command to the application
func (cmd *SendCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "send",
		Usage:       "Send a message to a thread",
		UsageText:   "inbox send <thread-id> <message...>",
		Description: "Sends the message once and prints the thread as the server returns it.",
		Action:      cmd.run,
	})

	return app
}

func (cmd *SendCmd) run(ctx context.Context, c *cli.Command) error {
	args := c.Args().Slice()
	if len(args) < 2 {
		return errors.New("usage: inbox send <thread-id> <message...>")
	}
	threadID, content := args[0], strings.Join(args[1:], " ")

	s, err := cmd.flags.attach(ctx, false)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer s.close()

	if err := s.engine.SelectThread(ctx, threadID); err != nil {
		return fmt.Errorf("load thread: %w", err)
	}
	if err := s.engine.SendMessageTo(ctx, threadID, content); err != nil {
		return err
	}

	printMessages(c.Root().Writer, s.engine.Snapshot().Messages)
	return nil
}
