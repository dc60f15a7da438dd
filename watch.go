package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/cryptopuck/cryptopuck/ctlsock"
	"github.com/cryptopuck/cryptopuck/internal/ctlsocksrv"
	"github.com/cryptopuck/cryptopuck/internal/exitcodes"
	"github.com/cryptopuck/cryptopuck/internal/indicator"
	"github.com/cryptopuck/cryptopuck/internal/journal"
	"github.com/cryptopuck/cryptopuck/internal/keywrap"
	"github.com/cryptopuck/cryptopuck/internal/opstate"
	"github.com/cryptopuck/cryptopuck/internal/orchestrator"
	"github.com/cryptopuck/cryptopuck/internal/tlog"
	"github.com/cryptopuck/cryptopuck/internal/watcher"
)

// doWatch handles "cryptopuck watch". It runs until SIGINT or SIGTERM.
func doWatch(args *argContainer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return runWatch(ctx, args)
}

// runWatch sets up all units of the daemon and supervises them until ctx is
// cancelled or one of them fails.
func runWatch(ctx context.Context, args *argContainer) error {
	if args.syslog {
		tlog.SwitchAllToSyslog()
	}
	// A missing key would only show up when the first volume arrives.
	// Complain now while somebody is still looking.
	if _, err := keywrap.LoadPublicKey(args.publicKey); err != nil {
		return err
	}
	ind, err := indicator.New(indicator.Config{
		Driver:    args.indicator,
		GPIOChip:  args.gpioChip,
		GPIOPin:   args.gpioPin,
		LEDName:   args.ledName,
		SysfsRoot: args.sysfs,
	})
	if err != nil {
		return exitcodes.Wrap(err, exitcodes.Other)
	}
	defer ind.Close()

	state := opstate.NewCell()
	settle := args.settle
	if settle == 0 {
		settle = -1
	}
	orch := &orchestrator.Orchestrator{
		PublicKey:         args.publicKey,
		Exclude:           args.exclude,
		ExcludeFrom:       args.excludeFrom,
		Settle:            settle,
		State:             state,
		RequireMountPoint: !args.noRequireMountpoint,
	}
	backend := &watchBackend{orch: orch, state: state}
	if args.journal != "" {
		j, err := journal.Open(args.journal)
		if err != nil {
			return err
		}
		defer j.Close()
		if n, err := j.Count(); err == nil {
			tlog.Info.Printf("Journal %s holds %d runs", args.journal, n)
		}
		orch.Journal = j
		backend.journal = j
	}

	w, err := watcher.New(args.mountpoint)
	if err != nil {
		return exitcodes.Wrap(err, exitcodes.MountPoint)
	}
	defer w.Close()

	g, gctx := errgroup.WithContext(ctx)
	if args.ctlsock != "" {
		sock, err := ctlsocksrv.Listen(args.ctlsock)
		if err != nil {
			return exitcodes.Errorf(exitcodes.CtlSock, "ctlsock: %v", err)
		}
		tlog.Info.Printf("Control socket at %s", args.ctlsock)
		g.Go(func() error {
			ctlsocksrv.Serve(sock, backend)
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			return sock.Close()
		})
	}
	g.Go(func() error {
		return runOrchestrator(gctx, orch, w.Events())
	})
	g.Go(func() error {
		return watchErrors(gctx, w)
	})
	ctrl := &indicator.Controller{Indicator: ind, State: state}
	g.Go(func() error {
		return ctrl.Run(gctx)
	})

	tlog.Info.Printf(tlog.ColorGreen+"Watching %s for new volumes"+tlog.ColorReset, args.mountpoint)
	err = g.Wait()
	if err != nil {
		return err
	}
	tlog.Info.Printf("Shutting down")
	return nil
}

// runOrchestrator runs the volume loop. When the loop ends while ctx is still
// live, the watcher is gone and the error stops the other units.
func runOrchestrator(ctx context.Context, orch *orchestrator.Orchestrator, events <-chan watcher.Event) error {
	err := orch.Run(ctx, events)
	if err == nil && ctx.Err() == nil {
		return exitcodes.NewErr("watcher stopped delivering events", exitcodes.MountPoint)
	}
	return err
}

// watchErrors logs queue overflows and turns a dead watcher into an error,
// which stops the other units.
func watchErrors(ctx context.Context, w *watcher.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.Errors():
			if errors.Is(err, watcher.ErrOverflow) {
				tlog.Warn.Printf("watcher: %v, volumes may have been missed", err)
				continue
			}
			return exitcodes.Wrap(err, exitcodes.MountPoint)
		}
	}
}

// watchBackend answers control socket queries.
type watchBackend struct {
	orch  *orchestrator.Orchestrator
	state *opstate.Cell
	// journal is nil without "-journal"
	journal *journal.Journal
}

var _ ctlsocksrv.Interface = &watchBackend{}

func (b *watchBackend) Status() (string, *ctlsock.Run) {
	last := b.orch.Last()
	if last == nil {
		return b.state.Get().String(), nil
	}
	r := toCtlRun(last)
	return b.state.Get().String(), &r
}

// History reads from the journal. Without one, only the runs of this process
// are known, and we only keep the last one.
func (b *watchBackend) History(limit int) ([]ctlsock.Run, error) {
	if b.journal == nil {
		last := b.orch.Last()
		if last == nil || limit < 1 {
			return nil, nil
		}
		return []ctlsock.Run{toCtlRun(last)}, nil
	}
	runs, err := b.journal.Recent(limit)
	if err != nil {
		return nil, err
	}
	out := make([]ctlsock.Run, len(runs))
	for i := range runs {
		out[i] = toCtlRun(&runs[i])
	}
	return out, nil
}

func toCtlRun(r *journal.Run) ctlsock.Run {
	return ctlsock.Run{
		ID:       r.ID,
		Volume:   r.Volume,
		Started:  r.Started,
		Finished: r.Finished,
		Outcome:  r.Outcome,
		Files:    r.Files,
		Bytes:    r.Bytes,
		Skipped:  r.Skipped,
		Error:    r.Error,
	}
}
