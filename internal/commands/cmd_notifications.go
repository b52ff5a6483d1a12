package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/nhle/recruit-inbox/internal/model"
)

type NotificationsCmd struct {
	flags *Flags
}

// NewNotificationsCmd creates the notifications, read, and read-all commands
func NewNotificationsCmd(flags *Flags) *NotificationsCmd {
	return &NotificationsCmd{flags: flags}
}

// Register adds the notification commands to the application
func (cmd *NotificationsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "notifications",
			Aliases:   []string{"n"},
			Usage:     "List notifications, newest first",
			UsageText: "inbox notifications",
			Action:    cmd.list,
		},
		&cli.Command{
			Name:      "read",
			Usage:     "Mark a notification read",
			UsageText: "inbox read <notification-id>",
			Action:    cmd.read,
		},
		&cli.Command{
			Name:      "read-all",
			Usage:     "Mark every notification read",
			UsageText: "inbox read-all",
			Action:    cmd.readAll,
		},
	)

	return app
}

func (cmd *NotificationsCmd) list(ctx context.Context, c *cli.Command) error {
	s, err := cmd.flags.attach(ctx, false)
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}
	defer s.close()

	printNotifications(c.Root().Writer, s.engine.Snapshot().Notifications)
	return nil
}

func (cmd *NotificationsCmd) read(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return errors.New("notification id is required")
	}

	s, err := cmd.flags.attach(ctx, false)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer s.close()

	if err := s.engine.MarkNotificationRead(ctx, id); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "Marked %s read\n", id)
	return nil
}

func (cmd *NotificationsCmd) readAll(ctx context.Context, c *cli.Command) error {
	s, err := cmd.flags.attach(ctx, false)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer s.close()

	unread := s.engine.Snapshot().UnreadNotificationCount
	if err := s.engine.MarkAllRead(ctx); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(c.Root().Writer, "Marked %d notification(s) read\n", unread)
	return nil
}

func printNotifications(out io.Writer, ns []model.Notification) {
	if len(ns) == 0 {
		_, _ = fmt.Fprintln(out, "No notifications")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tREAD\tTYPE\tTITLE\tCREATED")
	for _, n := range ns {
		read := "no"
		if n.IsRead {
			read = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", n.ID, read, n.Type, n.Title, formatTime(n.CreatedAt))
	}
	_ = w.Flush()
}
