package main

// Should be initialized before anything else.
// This import line MUST be in the alphabitcally first source code file of
// package main!
import (
	_ "github.com/cryptopuck/cryptopuck/internal/ensurefds012"

	"fmt"
	"strings"
	"time"

	"github.com/integrii/flaggy"

	"github.com/cryptopuck/cryptopuck/internal/exitcodes"
	"github.com/cryptopuck/cryptopuck/internal/indicator"
	"github.com/cryptopuck/cryptopuck/internal/keywrap"
	"github.com/cryptopuck/cryptopuck/internal/orchestrator"
	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

// Subcommand names
const (
	cmdEncrypt = "encrypt"
	cmdDecrypt = "decrypt"
	cmdWatch   = "watch"
	cmdKeygen  = "keygen"
	cmdStatus  = "status"
	cmdInfo    = "info"
	cmdSpeed   = "speed"
)

const (
	defaultGPIOPin = 21
	defaultLEDName = "led0"
	scryptMaxLogN  = 28
	scryptMinLogN  = 10
)

// argContainer stores the parsed CLI options and arguments
type argContainer struct {
	// cmd is the subcommand that was selected
	cmd string
	// Global options
	debug, quiet, version, wpanic bool
	cpuprofile, memprofile, trace string
	// encrypt, decrypt, info
	source, destination string
	// Key files
	publicKey, privateKey, secret string
	// For encrypt, several ways to specify exclusions. All can be specified multiple times.
	exclude, excludeFrom []string
	// decrypt. Restoring is the default, "-restore-structure" only states it
	restoreStructure, noRestoreStructure bool
	// -extpass, -passfile can be passed multiple times
	extpass, passfile []string
	// watch
	mountpoint                  string
	settle                      time.Duration
	indicator, ledName, sysfs   string
	gpioChip                    string
	gpioPin                     int
	ctlsock, journal            string
	syslog, noRequireMountpoint bool
	// keygen
	bits, scryptn int
	passphrase    bool
	// status
	history int
}

// parseCliOpts - parse the command line "osArgs" (including the program
// name in osArgs[0]). Invalid combinations are reported as an error carrying
// exitcodes.Usage.
func parseCliOpts(osArgs []string) (args argContainer, err error) {
	p := flaggy.NewParser(tlog.ProgramName)
	p.Description = "Encrypt removable volumes to a public key"
	p.ShowVersionWithVersionFlag = false

	p.Bool(&args.debug, "d", "debug", "Enable debug output")
	p.Bool(&args.quiet, "q", "quiet", "Quiet - silence informational messages")
	p.Bool(&args.version, "", "version", "Print version and exit")
	p.Bool(&args.wpanic, "", "wpanic", "When encountering a warning, panic and exit immediately")
	p.String(&args.cpuprofile, "", "cpuprofile", "Write cpu profile to specified file")
	p.String(&args.memprofile, "", "memprofile", "Write memory profile to specified file")
	p.String(&args.trace, "", "trace", "Write execution trace to file")

	args.publicKey = keywrap.PublicKeyName
	args.privateKey = keywrap.PrivateKeyName
	args.settle = orchestrator.DefaultSettle
	args.indicator = indicator.DriverNone
	args.gpioChip = indicator.DefaultGPIOChip
	args.gpioPin = defaultGPIOPin
	args.ledName = defaultLEDName
	args.sysfs = indicator.DefaultSysfsRoot
	args.bits = keywrap.DefaultBits
	args.scryptn = keywrap.ScryptDefaultLogN

	encrypt := flaggy.NewSubcommand(cmdEncrypt)
	encrypt.Description = "Encrypt a directory tree"
	encrypt.String(&args.source, "s", "source", "Directory to encrypt")
	encrypt.String(&args.destination, "o", "destination", "Where to put the encrypted tree. May equal --source")
	encrypt.String(&args.publicKey, "k", "public-key", "PEM encoded RSA public key")
	encrypt.StringSlice(&args.exclude, "e", "exclude", "Exclude path, supporting gitignore wildcards")
	encrypt.StringSlice(&args.excludeFrom, "", "exclude-from", "File from which to read exclusion patterns")
	p.AttachSubcommand(encrypt, 1)

	decrypt := flaggy.NewSubcommand(cmdDecrypt)
	decrypt.Description = "Decrypt a directory tree"
	decrypt.String(&args.source, "s", "source", "Encrypted directory")
	decrypt.String(&args.destination, "o", "destination", "Where to put the plaintext. May equal --source")
	decrypt.String(&args.privateKey, "k", "private-key", "PEM encoded RSA private key")
	decrypt.String(&args.secret, "", "secret", "Wrapped secret, default SOURCE/"+keywrap.SecretFileName)
	decrypt.Bool(&args.restoreStructure, "", "restore-structure", "Restore file names and directories (default)")
	decrypt.Bool(&args.noRestoreStructure, "", "no-restore-structure", "Do not restore file names, write <id>.clear files")
	decrypt.StringSlice(&args.extpass, "", "extpass", "Use external program for the passphrase prompt")
	decrypt.StringSlice(&args.passfile, "", "passfile", "Read passphrase from file")
	p.AttachSubcommand(decrypt, 1)

	watch := flaggy.NewSubcommand(cmdWatch)
	watch.Description = "Encrypt and unmount every volume mounted below --mountpoint"
	watch.String(&args.mountpoint, "m", "mountpoint", "Directory the automounter mounts volumes in")
	watch.String(&args.publicKey, "k", "public-key", "PEM encoded RSA public key")
	watch.StringSlice(&args.exclude, "e", "exclude", "Exclude path, supporting gitignore wildcards")
	watch.StringSlice(&args.excludeFrom, "", "exclude-from", "File from which to read exclusion patterns")
	watch.Duration(&args.settle, "", "settle", "Wait this long after a volume appeared. 0 disables the delay")
	watch.String(&args.indicator, "", "indicator", "Status light driver: none, gpio or led")
	watch.String(&args.gpioChip, "", "gpio-chip", "GPIO chip for --indicator gpio")
	watch.Int(&args.gpioPin, "", "gpio-pin", "GPIO line offset (BCM pin number) for --indicator gpio")
	watch.String(&args.ledName, "", "led-name", "Entry below /sys/class/leds for --indicator led")
	watch.String(&args.sysfs, "", "sysfs-root", "Alternative sysfs class directory for --indicator led")
	watch.String(&args.ctlsock, "", "ctlsock", "Create control socket at specified path")
	watch.String(&args.journal, "", "journal", "Record runs in this database file")
	watch.Bool(&args.syslog, "", "syslog", "Redirect output to syslog")
	watch.Bool(&args.noRequireMountpoint, "", "no-require-mountpoint", "Also encrypt plain directories that are not mount points")
	p.AttachSubcommand(watch, 1)

	keygen := flaggy.NewSubcommand(cmdKeygen)
	keygen.Description = "Generate an RSA key pair"
	keygen.String(&args.destination, "o", "destination", "Output directory, default is the current directory")
	keygen.Int(&args.bits, "b", "bits", "RSA modulus size")
	keygen.Bool(&args.passphrase, "", "passphrase", "Protect the private key with a passphrase")
	keygen.Int(&args.scryptn, "", "scryptn", "scrypt cost parameter logN. Possible values: 10-28")
	keygen.StringSlice(&args.extpass, "", "extpass", "Use external program for the passphrase prompt")
	keygen.StringSlice(&args.passfile, "", "passfile", "Read passphrase from file")
	p.AttachSubcommand(keygen, 1)

	status := flaggy.NewSubcommand(cmdStatus)
	status.Description = "Query a running watch daemon"
	status.String(&args.ctlsock, "", "ctlsock", "Control socket of the daemon")
	status.Int(&args.history, "n", "history", "Also show the last N runs")
	p.AttachSubcommand(status, 1)

	info := flaggy.NewSubcommand(cmdInfo)
	info.Description = "Display information about an encrypted directory"
	info.String(&args.source, "s", "source", "Encrypted directory")
	p.AttachSubcommand(info, 1)

	speed := flaggy.NewSubcommand(cmdSpeed)
	speed.Description = "Run crypto speed test"
	p.AttachSubcommand(speed, 1)

	var rest []string
	if len(osArgs) > 1 {
		rest = osArgs[1:]
	}
	err = p.ParseArgs(rest)
	if err != nil {
		return args, exitcodes.Errorf(exitcodes.Usage, "Invalid command line: %v. Try '%s -help'.",
			err, tlog.ProgramName)
	}
	for _, sc := range []*flaggy.Subcommand{encrypt, decrypt, watch, keygen, status, info, speed} {
		if sc.Used {
			args.cmd = sc.Name
		}
	}
	if args.version {
		return args, nil
	}
	return args, validateArgs(&args)
}

// validateArgs checks "args" for missing required inputs and conflicting
// options. Nothing has been touched on disk yet when it fails.
func validateArgs(args *argContainer) error {
	usage := func(format string, a ...interface{}) error {
		return exitcodes.Errorf(exitcodes.Usage, format, a...)
	}
	switch args.cmd {
	case "":
		return usage("Missing command. Try '%s -help'.", tlog.ProgramName)
	case cmdEncrypt, cmdDecrypt:
		if args.source == "" || args.destination == "" {
			return usage("Usage: %s %s --source SOURCE --destination DESTINATION", tlog.ProgramName, args.cmd)
		}
		if args.restoreStructure && args.noRestoreStructure {
			return usage("The options -restore-structure and -no-restore-structure cannot be used at the same time")
		}
	case cmdWatch:
		if args.mountpoint == "" {
			return usage("Usage: %s watch --mountpoint MOUNTPOINT", tlog.ProgramName)
		}
		if args.settle < 0 {
			return usage("Settle delay cannot be less than 0")
		}
		switch args.indicator {
		case indicator.DriverNone, indicator.DriverGPIO, indicator.DriverLED:
		default:
			return usage("Invalid -indicator %q, must be one of none, gpio, led", args.indicator)
		}
		if args.gpioPin < 0 {
			return usage("Invalid -gpio-pin %d", args.gpioPin)
		}
		if args.gpioChip == "" {
			return usage("-gpio-chip cannot be empty")
		}
		if strings.ContainsRune(args.ledName, '/') {
			return usage("Invalid -led-name %q", args.ledName)
		}
	case cmdKeygen:
		if args.destination == "" {
			args.destination = "."
		}
		if args.bits < keywrap.MinBits {
			return usage("-bits must be at least %d", keywrap.MinBits)
		}
		if args.scryptn < scryptMinLogN || args.scryptn > scryptMaxLogN {
			return usage("-scryptn: possible values are %d-%d", scryptMinLogN, scryptMaxLogN)
		}
		if !args.passphrase && (len(args.extpass) > 0 || len(args.passfile) > 0) {
			return usage("The options -extpass and -passfile require -passphrase")
		}
	case cmdStatus:
		if args.ctlsock == "" {
			return usage("Usage: %s status --ctlsock PATH", tlog.ProgramName)
		}
		if args.history < 0 {
			return usage("-history cannot be less than 0")
		}
	case cmdInfo:
		if args.source == "" {
			return usage("Usage: %s info --source SOURCE", tlog.ProgramName)
		}
	}
	if len(args.extpass) > 0 && len(args.passfile) != 0 {
		return usage("The options -extpass and -passfile cannot be used at the same time")
	}
	return nil
}

// prettyArgs pretty-prints the command-line arguments.
func prettyArgs(osArgs []string) string {
	pa := fmt.Sprintf("%v", osArgs)
	// Get rid of "[" and "]"
	pa = pa[1 : len(pa)-1]
	return pa
}
