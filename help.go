package main

import (
	"fmt"

	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

const tUsage = "" +
	"Usage: " + tlog.ProgramName + " [GLOBAL OPTIONS] COMMAND [OPTIONS]\n"

// helpShort is what gets displayed when no command was given.
func helpShort() {
	printVersion()
	fmt.Printf("\n")
	fmt.Printf(tUsage)
	fmt.Printf(`
Commands (use "COMMAND -h" to show their options):
  encrypt            Encrypt a directory tree to a public key
  decrypt            Decrypt a directory tree with the private key
  watch              Encrypt and unmount every volume that gets mounted
  keygen             Generate an RSA key pair
  status             Query a running watch daemon
  info               Display information about an encrypted directory
  speed              Run crypto speed test

Global Options:
  -d, -debug         Enable debug output
  -h, -help          This short help text
  -q, -quiet         Silence informational messages
  -version           Print version information
  -wpanic            Panic on warnings
  -cpuprofile, -memprofile, -trace
                     Write profiling data to file
`)
}
