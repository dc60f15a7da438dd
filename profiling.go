package main

import (
	"os"
	"runtime/pprof"
	"runtime/trace"
	"sync/atomic"
	"time"

	"github.com/cryptopuck/cryptopuck/internal/exitcodes"
	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

// setupCpuprofile is called to handle a non-empty "-cpuprofile" cli argument
func setupCpuprofile(cpuprofileArg string) (func(), error) {
	tlog.Info.Printf("Writing CPU profile to %s", cpuprofileArg)
	f, err := os.Create(cpuprofileArg)
	if err != nil {
		return nil, exitcodes.Wrap(err, exitcodes.Profiler)
	}
	err = pprof.StartCPUProfile(f)
	if err != nil {
		f.Close()
		return nil, exitcodes.Wrap(err, exitcodes.Profiler)
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

// setupMemprofile is called to handle a non-empty "-memprofile" cli argument
func setupMemprofile(memprofileArg string) (func(), error) {
	tlog.Info.Printf("Will write memory profile to %q", memprofileArg)
	f, err := os.Create(memprofileArg)
	if err != nil {
		return nil, exitcodes.Wrap(err, exitcodes.Profiler)
	}
	var exiting atomic.Bool
	// The watch daemon runs for days. Write the memory profile to disk every
	// 60 seconds to get the in-use memory stats.
	go func() {
		for {
			time.Sleep(60 * time.Second)
			if exiting.Load() {
				return
			}
			if _, err := f.Seek(0, 0); err != nil {
				tlog.Warn.Printf("memprofile: Seek failed: %v", err)
				return
			}
			if err := f.Truncate(0); err != nil {
				tlog.Warn.Printf("memprofile: Truncate failed: %v", err)
				return
			}
			if err := pprof.WriteHeapProfile(f); err != nil {
				tlog.Warn.Printf("memprofile: periodic WriteHeapProfile failed: %v", err)
				return
			}
			tlog.Debug.Printf("memprofile: periodic write to %q succeeded", memprofileArg)
		}
	}()
	// Final write on exit.
	return func() {
		exiting.Store(true)
		if err := pprof.WriteHeapProfile(f); err != nil {
			tlog.Warn.Printf("memprofile: on-exit WriteHeapProfile failed: %v", err)
		}
		f.Close()
	}, nil
}

// setupTrace is called to handle a non-empty "-trace" cli argument
func setupTrace(traceArg string) (func(), error) {
	tlog.Info.Printf("Writing execution trace to %s", traceArg)
	f, err := os.Create(traceArg)
	if err != nil {
		return nil, exitcodes.Wrap(err, exitcodes.Profiler)
	}
	err = trace.Start(f)
	if err != nil {
		f.Close()
		return nil, exitcodes.Wrap(err, exitcodes.Profiler)
	}
	return func() {
		trace.Stop()
		f.Close()
	}, nil
}
