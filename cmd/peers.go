package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Dyastin-0/lanlink/discovery"
	"github.com/Dyastin-0/lanlink/events"
	"github.com/Dyastin-0/lanlink/identity"
	"github.com/Dyastin-0/lanlink/styles"
	"github.com/Dyastin-0/lanlink/types"
	"github.com/urfave/cli/v3"
)

func peersCommand() *cli.Command {
	return &cli.Command{
		Name:  "peers",
		Usage: "list peers answering discovery on this network",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "settings",
				Aliases: []string{"s"},
				Usage:   "path to the settings document",
			},
		},
		Action: peersAction,
	}
}

func peersAction(ctx context.Context, cmd *cli.Command) error {
	log := newLog()
	st := settingsStore(cmd.String("settings"))
	em := events.New()

	res := identity.New(VERSION, st, nil)
	disc := discovery.New(res, em, log)

	discCtx, cancelDisc := context.WithCancel(ctx)
	defer cancelDisc()

	if err := disc.Start(discCtx); err != nil {
		return err
	}

	evCh, cancel := em.Subscribe(64)
	defer cancel()

	fmt.Println(styles.INFO.Render("discovering peers..."))
	go disc.Burst(discCtx)

	found := make(map[string]*types.PeerInfo)
	deadline := time.After(2 * time.Second)

collect:
	for {
		select {
		case <-ctx.Done():
			break collect
		case <-deadline:
			break collect
		case ev := <-evCh:
			if ev.Type == types.EventPeerDiscovered {
				found[ev.Peer.ID] = ev.Peer
			}
		}
	}

	if len(found) == 0 {
		fmt.Println(styles.INFO.Render("no peers found"))
		return nil
	}

	fmt.Println(styles.TITLE.Render(fmt.Sprintf("%d peer(s) found", len(found))))
	for _, p := range found {
		fmt.Printf("%-24s %-10s %-16s port %d\n", p.Label(), p.Platform, firstAddress(p), p.Port)
	}

	return nil
}
