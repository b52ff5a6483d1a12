package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/nhle/recruit-inbox/internal/store"
)

type CachedCmd struct {
	flags *Flags
}

// NewCachedCmd creates a new cached command
func NewCachedCmd(flags *Flags) *CachedCmd {
	return &CachedCmd{flags: flags}
}

// Register adds the cached command to the application
func (cmd *CachedCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "cached",
		Usage:       "Print the locally cached inbox",
		UsageText:   "inbox cached",
		Description: "Reads the snapshot cache without contacting the API.",
		Action:      cmd.run,
	})

	return app
}

func (cmd *CachedCmd) run(ctx context.Context, c *cli.Command) error {
	st := cmd.flags.openCache()
	if st == nil {
		return errors.New("cache is disabled or unavailable")
	}
	defer st.Close()

	out := c.Root().Writer

	threads, err := st.LoadThreads(ctx)
	if err != nil {
		return err
	}
	savedAt, err := st.SavedAt(ctx, store.ResourceThreads)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "Threads (saved %s)\n", formatTime(savedAt))
	printThreads(out, threads)

	ns, err := st.LoadNotifications(ctx)
	if err != nil {
		return err
	}
	savedAt, err = st.SavedAt(ctx, store.ResourceNotifications)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "\nNotifications (saved %s)\n", formatTime(savedAt))
	printNotifications(out, ns)

	return nil
}
