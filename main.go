package main

import (
	"os"
	"runtime"

	"github.com/cryptopuck/cryptopuck/internal/exitcodes"
	"github.com/cryptopuck/cryptopuck/internal/speed"
	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

func main() {
	os.Exit(realMain(os.Args))
}

// realMain runs the command line "osArgs" and returns the exit code.
// Deferred cleanups (profiles) run before we exit.
func realMain(osArgs []string) int {
	runtime.GOMAXPROCS(4)
	// Parse all command-line options into "args"
	args, err := parseCliOpts(osArgs)
	if args.debug {
		tlog.Debug.Enabled = true
	}
	if err != nil {
		if args.cmd == "" {
			helpShort()
		}
		tlog.Fatal.Println(err)
		return exitcodes.Code(err)
	}
	// "-version"
	if args.version {
		printVersion()
		return 0
	}
	// "-q"
	if args.quiet {
		tlog.Info.Enabled = false
	}
	if args.wpanic {
		tlog.Warn.Wpanic = true
		tlog.Debug.Printf("Panicing on warnings")
	}
	tlog.Debug.Printf("cli args: %s", prettyArgs(osArgs))
	// "-cpuprofile", "-memprofile", "-trace"
	for _, p := range []struct {
		arg   string
		setup func(string) (func(), error)
	}{
		{args.cpuprofile, setupCpuprofile},
		{args.memprofile, setupMemprofile},
		{args.trace, setupTrace},
	} {
		if p.arg == "" {
			continue
		}
		stop, err := p.setup(p.arg)
		if err != nil {
			tlog.Fatal.Println(err)
			return exitcodes.Code(err)
		}
		defer stop()
	}
	switch args.cmd {
	case cmdEncrypt:
		err = doEncrypt(&args)
	case cmdDecrypt:
		err = doDecrypt(&args)
	case cmdWatch:
		err = doWatch(&args)
	case cmdKeygen:
		err = doKeygen(&args)
	case cmdStatus:
		err = doStatus(&args)
	case cmdInfo:
		err = doInfo(&args)
	case cmdSpeed:
		speed.Run()
	}
	if err != nil {
		tlog.Fatal.Println(err)
		return exitcodes.Code(err)
	}
	return 0
}
