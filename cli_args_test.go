package main

import (
	"reflect"
	"testing"
	"time"

	"github.com/cryptopuck/cryptopuck/internal/exitcodes"
	"github.com/cryptopuck/cryptopuck/internal/keywrap"
	"github.com/cryptopuck/cryptopuck/internal/orchestrator"
)

// TestParseCliOpts checks that defaults are filled in and flags end up in
// the right fields.
func TestParseCliOpts(t *testing.T) {
	var defaults argContainer
	defaults.publicKey = keywrap.PublicKeyName
	defaults.privateKey = keywrap.PrivateKeyName
	defaults.settle = orchestrator.DefaultSettle
	defaults.indicator = "none"
	defaults.gpioChip = "gpiochip0"
	defaults.gpioPin = defaultGPIOPin
	defaults.ledName = defaultLEDName
	defaults.sysfs = "/sys/class"
	defaults.bits = keywrap.DefaultBits
	defaults.scryptn = keywrap.ScryptDefaultLogN

	type testcase struct {
		// i is the input
		i []string
		// o is the expected output
		o argContainer
	}
	var testcases []testcase

	o := defaults
	o.cmd = cmdEncrypt
	o.source = "plain"
	o.destination = "cipher"
	testcases = append(testcases, testcase{
		i: []string{"cryptopuck", "encrypt", "--source", "plain", "--destination", "cipher"},
		o: o,
	})

	o = defaults
	o.cmd = cmdEncrypt
	o.debug = true
	o.source = "a"
	o.destination = "a"
	o.publicKey = "/etc/puck.pem"
	o.exclude = []string{"*.tmp", "cache/"}
	testcases = append(testcases, testcase{
		i: []string{"cryptopuck", "-d", "encrypt", "-s", "a", "-o", "a", "-k", "/etc/puck.pem",
			"-e", "*.tmp", "--exclude", "cache/"},
		o: o,
	})

	o = defaults
	o.cmd = cmdDecrypt
	o.source = "cipher"
	o.destination = "plain"
	o.secret = "/tmp/secret"
	o.noRestoreStructure = true
	o.passfile = []string{"pw.txt"}
	testcases = append(testcases, testcase{
		i: []string{"cryptopuck", "decrypt", "--source", "cipher", "--destination", "plain",
			"--secret", "/tmp/secret", "--no-restore-structure", "--passfile", "pw.txt"},
		o: o,
	})

	o = defaults
	o.cmd = cmdWatch
	o.quiet = true
	o.mountpoint = "/media/usb"
	o.settle = 3 * time.Second
	o.indicator = "gpio"
	o.gpioChip = "gpiochip4"
	o.gpioPin = 17
	o.ctlsock = "/run/cryptopuck.sock"
	o.journal = "/var/lib/cryptopuck/journal.db"
	o.syslog = true
	testcases = append(testcases, testcase{
		i: []string{"cryptopuck", "-q", "watch", "--mountpoint", "/media/usb", "--settle", "3s",
			"--indicator", "gpio", "--gpio-chip", "gpiochip4", "--gpio-pin", "17", "--ctlsock", "/run/cryptopuck.sock",
			"--journal", "/var/lib/cryptopuck/journal.db", "--syslog"},
		o: o,
	})

	o = defaults
	o.cmd = cmdKeygen
	o.destination = "."
	o.bits = 4096
	o.passphrase = true
	o.scryptn = 12
	testcases = append(testcases, testcase{
		i: []string{"cryptopuck", "keygen", "--bits", "4096", "--passphrase", "--scryptn", "12"},
		o: o,
	})

	o = defaults
	o.cmd = cmdStatus
	o.ctlsock = "/run/cryptopuck.sock"
	o.history = 5
	testcases = append(testcases, testcase{
		i: []string{"cryptopuck", "status", "--ctlsock", "/run/cryptopuck.sock", "-n", "5"},
		o: o,
	})

	o = defaults
	o.cmd = cmdInfo
	o.source = "/media/usb/stick"
	testcases = append(testcases, testcase{
		i: []string{"cryptopuck", "info", "--source", "/media/usb/stick"},
		o: o,
	})

	o = defaults
	o.cmd = cmdSpeed
	testcases = append(testcases, testcase{
		i: []string{"cryptopuck", "speed"},
		o: o,
	})

	o = defaults
	o.version = true
	testcases = append(testcases, testcase{
		i: []string{"cryptopuck", "--version"},
		o: o,
	})

	for _, tc := range testcases {
		args, err := parseCliOpts(tc.i)
		if err != nil {
			t.Errorf("in=%q: unexpected error: %v", tc.i, err)
			continue
		}
		if !reflect.DeepEqual(args, tc.o) {
			t.Errorf("\n  in=%q\nwant=%+v\n got=%+v", tc.i, tc.o, args)
		}
	}
}

// TestParseCliOptsUsage checks that missing inputs and conflicting options
// are rejected with exitcodes.Usage.
func TestParseCliOptsUsage(t *testing.T) {
	testcases := [][]string{
		{"cryptopuck"},
		{"cryptopuck", "-d"},
		{"cryptopuck", "encrypt", "--source", "a"},
		{"cryptopuck", "encrypt", "--destination", "a"},
		{"cryptopuck", "decrypt", "--source", "a"},
		{"cryptopuck", "decrypt", "-s", "a", "-o", "b", "--restore-structure", "--no-restore-structure"},
		{"cryptopuck", "decrypt", "-s", "a", "-o", "b", "--passfile", "x", "--extpass", "echo x"},
		{"cryptopuck", "watch"},
		{"cryptopuck", "watch", "--mountpoint", "/media", "--indicator", "buzzer"},
		{"cryptopuck", "watch", "--mountpoint", "/media", "--indicator", "led", "--led-name", "../x"},
		{"cryptopuck", "keygen", "--bits", "512"},
		{"cryptopuck", "keygen", "--scryptn", "5"},
		{"cryptopuck", "keygen", "--passfile", "pw.txt"},
		{"cryptopuck", "status"},
		{"cryptopuck", "info"},
	}
	for _, tc := range testcases {
		_, err := parseCliOpts(tc)
		if err == nil {
			t.Errorf("in=%q: should have failed", tc)
			continue
		}
		if code := exitcodes.Code(err); code != exitcodes.Usage {
			t.Errorf("in=%q: want exit code %d, got %d (%v)", tc, exitcodes.Usage, code, err)
		}
	}
}

func TestValidateArgsEmptyGPIOChip(t *testing.T) {
	args := argContainer{cmd: cmdWatch, mountpoint: "/media", indicator: "gpio"}
	err := validateArgs(&args)
	if code := exitcodes.Code(err); code != exitcodes.Usage {
		t.Errorf("want exit code %d, got %d (%v)", exitcodes.Usage, code, err)
	}
}
