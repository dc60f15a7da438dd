package main

import (
	"fmt"
	"time"

	"github.com/cryptopuck/cryptopuck/ctlsock"
	"github.com/cryptopuck/cryptopuck/internal/exitcodes"
	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

// doStatus handles "cryptopuck status": it asks a running watch daemon
// through its control socket.
func doStatus(args *argContainer) error {
	c, err := ctlsock.New(args.ctlsock)
	if err != nil {
		return exitcodes.Wrap(err, exitcodes.CtlSock)
	}
	defer c.Close()
	resp, err := c.Status()
	if err != nil {
		return exitcodes.Wrap(err, exitcodes.CtlSock)
	}
	fmt.Printf("State: %s\n", resp.State)
	if resp.Last != nil {
		fmt.Printf("Last:  %s\n", formatRun(resp.Last))
	}
	if args.history == 0 {
		return nil
	}
	runs, err := c.History(args.history)
	if err != nil {
		return exitcodes.Wrap(err, exitcodes.CtlSock)
	}
	fmt.Printf("History (%d):\n", len(runs))
	for i := range runs {
		fmt.Printf("  %s\n", formatRun(&runs[i]))
	}
	return nil
}

// formatRun returns a one-line summary of "r".
func formatRun(r *ctlsock.Run) string {
	s := fmt.Sprintf("%s %s %s %-7s %d files %dB", tlog.RunTag(r.ID), r.Started.Format(time.DateTime),
		r.Volume, r.Outcome, r.Files, r.Bytes)
	if r.Skipped > 0 {
		s += fmt.Sprintf(" (%d skipped)", r.Skipped)
	}
	if r.Error != "" {
		s += ": " + r.Error
	}
	return s
}
