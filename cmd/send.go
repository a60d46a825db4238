package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Dyastin-0/lanlink/discovery"
	"github.com/Dyastin-0/lanlink/events"
	"github.com/Dyastin-0/lanlink/identity"
	"github.com/Dyastin-0/lanlink/logger"
	"github.com/Dyastin-0/lanlink/progress"
	"github.com/Dyastin-0/lanlink/styles"
	"github.com/Dyastin-0/lanlink/transfer"
	"github.com/Dyastin-0/lanlink/types"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/urfave/cli/v3"
)

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "offer a file or project folder to a peer",
		ArgsUsage: "<path>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "target peer host (skips discovery)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "target peer transport port",
			},
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "project name, defaults to the path's base name",
			},
			&cli.StringFlag{
				Name:    "settings",
				Aliases: []string{"s"},
				Usage:   "path to the settings document",
			},
		},
		Action: sendAction,
	}
}

func sendAction(ctx context.Context, cmd *cli.Command) error {
	src := cmd.Args().First()
	if src == "" {
		return fmt.Errorf("missing path argument")
	}

	log := newLog()
	st := settingsStore(cmd.String("settings"))
	em := events.New()

	res := identity.New(VERSION, st, nil)
	coord := transfer.NewCoordinator(transfer.Config{
		Identity:     res,
		ReceivedRoot: func() (string, error) { return receivedRoot(""), nil },
		Emitter:      em,
		Log:          log,
	})

	host := cmd.String("host")
	port := int(cmd.Int("port"))

	if host == "" {
		peer, err := pickPeer(ctx, res, em, log)
		if err != nil {
			return err
		}

		if len(peer.Addresses) == 0 {
			return fmt.Errorf("peer %s advertised no addresses", peer.Label())
		}

		host = peer.Addresses[0]
		port = peer.Port
	}

	return share(ctx, coord, em, host, port, src, cmd.String("name"))
}

func share(ctx context.Context, coord *transfer.Coordinator, em *events.Emitter, host string, port int, src, name string) error {
	evCh, cancel := em.Subscribe(256)
	defer cancel()

	type outcome struct {
		result *types.ShareResult
		err    error
	}

	resultCh := make(chan outcome, 1)

	go func() {
		result, err := coord.ShareTo(ctx, host, port, src, name)
		resultCh <- outcome{result, err}
	}()

	// Spinner until the peer's verdict, then a byte bar for the upload leg.
	var verdict outcome
	decided := false

	spinner.New().Title("waiting for the peer to respond...").Action(func() {
		for {
			select {
			case ev := <-evCh:
				p := ev.Progress
				if p == nil {
					continue
				}
				switch p.Phase {
				case transfer.PhaseAccepted, transfer.PhaseDeclined, transfer.PhaseError:
					return
				}
			case out := <-resultCh:
				verdict = out
				decided = true
				return
			}
		}
	}).Run()

	if !decided {
		bars := progress.New()
		tracked := ""

		for {
			select {
			case ev := <-evCh:
				p := ev.Progress
				if p == nil || p.Phase != transfer.PhaseUploading || p.Total == 0 {
					continue
				}
				bars.Track(p.TransferID, "uploading", p.Total)
				bars.Set(p.TransferID, p.Bytes)
				tracked = p.TransferID

			case out := <-resultCh:
				verdict = out
				decided = true
			}

			if decided {
				break
			}
		}

		if tracked != "" {
			bars.Finish(tracked)
		}
		bars.Wait()
	}

	if verdict.err != nil {
		fmt.Println(styles.ERROR.Render(fmt.Sprintf("send failed: %v", verdict.err)))
		return verdict.err
	}

	r := verdict.result
	switch {
	case r.Declined:
		msg := "the peer declined"
		if r.Message != "" {
			msg = fmt.Sprintf("%s: %s", msg, r.Message)
		}
		fmt.Println(styles.INFO.Render(msg))

	case r.OK:
		fmt.Println(styles.SUCCESS.Render(
			fmt.Sprintf("sent ✓ extracted into %s on %s", r.Upload.DestDir, r.Peer.Label())))
	}

	return nil
}

// pickPeer bursts discovery pings, collects responders for a short window
// and asks the user to choose one.
func pickPeer(ctx context.Context, res *identity.Resolver, em *events.Emitter, log logger.Logger) (*types.PeerInfo, error) {
	disc := discovery.New(res, em, log)

	discCtx, cancelDisc := context.WithCancel(ctx)
	defer cancelDisc()

	if err := disc.Start(discCtx); err != nil {
		return nil, err
	}

	evCh, cancel := em.Subscribe(64)
	defer cancel()

	go disc.Burst(discCtx)

	found := make(map[string]*types.PeerInfo)
	deadline := time.After(2 * time.Second)

collect:
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline:
			break collect
		case ev := <-evCh:
			if ev.Type == types.EventPeerDiscovered {
				found[ev.Peer.ID] = ev.Peer
			}
		}
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("no peers found")
	}

	var options []huh.Option[*types.PeerInfo]
	for _, p := range found {
		label := fmt.Sprintf("%s (%s:%d)", p.Label(), firstAddress(p), p.Port)
		options = append(options, huh.NewOption(label, p))
	}

	var selected *types.PeerInfo

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[*types.PeerInfo]().
				Title("Send to").
				Options(options...).
				Value(&selected),
		),
	)

	if err := form.Run(); err != nil {
		return nil, err
	}

	return selected, nil
}

func firstAddress(p *types.PeerInfo) string {
	if len(p.Addresses) == 0 {
		return "?"
	}
	return p.Addresses[0]
}
