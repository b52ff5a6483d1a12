package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/nhle/recruit-inbox/internal/model"
)

type ThreadsCmd struct {
	flags *Flags
}

// NewThreadsCmd creates a new threads command
func NewThreadsCmd(flags *Flags) *ThreadsCmd {
	return &ThreadsCmd{flags: flags}
}

// Register adds the threads command to the application
func (cmd *ThreadsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "threads",
		Usage:       "List conversation threads",
		UsageText:   "inbox threads",
		Description: "Fetches the thread list once and prints it, most recent activity first.",
		Action:      cmd.run,
	})

	return app
}

func (cmd *ThreadsCmd) run(ctx context.Context, c *cli.Command) error {
	s, err := cmd.flags.attach(ctx, false)
	if err != nil {
		return fmt.Errorf("load threads: %w", err)
	}
	defer s.close()

	printThreads(c.Root().Writer, s.engine.Snapshot().Threads)
	return nil
}

func printThreads(out io.Writer, threads []model.Thread) {
	if len(threads) == 0 {
		_, _ = fmt.Fprintln(out, "No conversations found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tUNREAD\tWITH\tSUBJECT\tLAST MESSAGE")
	for _, t := range threads {
		unread := ""
		if t.HasUnread {
			unread = "*"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			t.ID, unread, t.OtherParty.Name, t.Subject, formatTime(t.LastMessageAt))
	}
	_ = w.Flush()
}
