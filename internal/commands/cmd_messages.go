package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/nhle/recruit-inbox/internal/model"
)

type MessagesCmd struct {
	flags *Flags
}

// NewMessagesCmd creates a new messages command
func NewMessagesCmd(flags *Flags) *MessagesCmd {
	return &MessagesCmd{flags: flags}
}

// Register adds the messages command to the application
func (cmd *MessagesCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "messages",
		Usage:     "Print the messages of a thread",
		UsageText: "inbox messages <thread-id>",
		Action:    cmd.run,
	})

	return app
}

func (cmd *MessagesCmd) run(ctx context.Context, c *cli.Command) error {
	threadID := c.Args().First()
	if threadID == "" {
		return errors.New("thread id is required")
	}

	s, err := cmd.flags.attach(ctx, false)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer s.close()

	if err := s.engine.SelectThread(ctx, threadID); err != nil {
		return fmt.Errorf("load messages: %w", err)
	}

	printMessages(c.Root().Writer, s.engine.Snapshot().Messages)
	return nil
}

func printMessages(out io.Writer, msgs []model.Message) {
	if len(msgs) == 0 {
		_, _ = fmt.Fprintln(out, "No messages")
		return
	}

	for _, m := range msgs {
		switch {
		case m.IsSystem():
			_, _ = fmt.Fprintf(out, "  -- %s (%s) --\n", m.Content, formatTime(m.SentAt))
		case m.IsMine:
			_, _ = fmt.Fprintf(out, "%s  you: %s\n", formatTime(m.SentAt), m.Content)
		default:
			_, _ = fmt.Fprintf(out, "%s  %s: %s\n", formatTime(m.SentAt), m.SenderRole, m.Content)
		}
	}
}
