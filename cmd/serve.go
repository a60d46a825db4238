package cmd

import (
	"context"
	"fmt"

	"github.com/Dyastin-0/lanlink/discovery"
	"github.com/Dyastin-0/lanlink/events"
	"github.com/Dyastin-0/lanlink/identity"
	"github.com/Dyastin-0/lanlink/logger"
	"github.com/Dyastin-0/lanlink/styles"
	"github.com/Dyastin-0/lanlink/transfer"
	"github.com/Dyastin-0/lanlink/types"
	"github.com/charmbracelet/huh"
	"github.com/common-nighthawk/go-figure"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "answer discovery pings and receive incoming transfers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "directory to extract received transfers into",
			},
			&cli.StringFlag{
				Name:    "settings",
				Aliases: []string{"s"},
				Usage:   "path to the settings document",
			},
		},
		Action: serveAction,
	}
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	log := newLog()
	st := settingsStore(cmd.String("settings"))
	root := receivedRoot(cmd.String("dir"))
	em := events.New()

	var srv *transfer.Server

	res := identity.New(VERSION, st, func() int {
		if srv == nil {
			return 0
		}
		return srv.Port()
	})

	coord := transfer.NewCoordinator(transfer.Config{
		Identity:     res,
		ReceivedRoot: func() (string, error) { return root, nil },
		Emitter:      em,
		Log:          log,
	})

	srv = transfer.NewServer(coord, log)
	if err := srv.Start(ctx); err != nil {
		return err
	}

	disc := discovery.New(res, em, log)
	if err := disc.Start(ctx); err != nil {
		return err
	}

	figure.NewFigure("lanlink", "", true).Print()
	fmt.Println()

	info := res.LocalInfo()
	fmt.Println(styles.INFO.Render(
		fmt.Sprintf("serving as %s on port %d, receiving into %s", info.Name, srv.Port(), root)))

	ch, cancel := em.Subscribe(128)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-ch:
			handleServeEvent(coord, ev)
		}
	}
}

func handleServeEvent(coord *transfer.Coordinator, ev types.Event) {
	switch ev.Type {
	case types.EventOfferPrompt:
		go promptOffer(coord, ev)

	case types.EventProgress:
		printProgress(ev.Progress)

	case types.EventReceived:
		fmt.Println(styles.SUCCESS.Render(
			fmt.Sprintf("received %s into %s", ev.Result.ProjectName, ev.Result.DestDir)))
		for _, f := range ev.Result.MainFiles {
			fmt.Println(styles.INFO.Render("  main file: " + f))
		}
	}
}

func promptOffer(coord *transfer.Coordinator, ev types.Event) {
	size := "unknown size"
	if ev.Offer.ApproxSize > 0 {
		size = humanize.Bytes(uint64(ev.Offer.ApproxSize))
	}

	confirm := false
	title := styles.PROMPT.Render(fmt.Sprintf(
		"%s wants to send you %q (%s). Accept?",
		ev.Offer.Sender.Label(), ev.Offer.ProjectName, size))

	huh.NewConfirm().
		Title(title).
		Affirmative("Accept").
		Negative("Decline").
		Value(&confirm).
		Run()

	coord.Decide(ev.OfferID, confirm)
}

func printProgress(p *types.Progress) {
	if p == nil {
		return
	}

	switch p.Phase {
	case transfer.PhaseReceiving, transfer.PhaseUploading:
		// Chunk updates are rendered by bars on the sending side and
		// skipped here; only phase transitions are printed.
		if p.Bytes > 0 {
			return
		}
		fmt.Println(styles.INFO.Render(fmt.Sprintf("%s %s", p.Phase, p.ProjectName)))

	case transfer.PhaseError:
		fmt.Println(styles.ERROR.Render(
			fmt.Sprintf("%s of %s failed: %s", p.Role, p.ProjectName, p.Message)))

	case transfer.PhaseDone:
		fmt.Println(styles.SUCCESS.Render(
			fmt.Sprintf("%s %s done (%s)", p.Role, p.ProjectName, humanize.Bytes(uint64(p.Bytes)))))

	case transfer.PhaseDeclined:
		msg := fmt.Sprintf("%s declined", p.ProjectName)
		if p.Message != "" {
			msg = fmt.Sprintf("%s: %s", msg, p.Message)
		}
		fmt.Println(styles.INFO.Render(msg))

	default:
		fmt.Println(styles.INFO.Render(fmt.Sprintf("%s %s", p.Phase, p.ProjectName)))
	}
}

func newLog() logger.Logger {
	path, err := logger.LogPath("logs")
	if err != nil {
		return logger.Nop()
	}

	return logger.New(path)
}
