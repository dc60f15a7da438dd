package indicator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cryptopuck/cryptopuck/internal/tlog"
)

// DefaultSysfsRoot is where the kernel exposes LED class devices.
const DefaultSysfsRoot = "/sys/class"

// writeSysfs writes "val" to the attribute file "path", like
// "echo val > path" but without creating missing files.
func writeSysfs(path, val string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	_, err = f.WriteString(val)
	err2 := f.Close()
	if err != nil {
		return err
	}
	return err2
}

// SysfsLED drives an LED class device (/sys/class/leds/<name>), for example
// the activity LED of a Raspberry Pi.
type SysfsLED struct {
	dir string
	// max is written to "brightness" to switch the LED on
	max string
	// trigger is restored on Close
	trigger string
}

// NewSysfsLED takes over the LED "name" by disabling its kernel trigger.
func NewSysfsLED(root, name string) (*SysfsLED, error) {
	if name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("invalid led name %q", name)
	}
	l := &SysfsLED{
		dir: filepath.Join(root, "leds", name),
		max: "1",
	}
	if b, err := os.ReadFile(filepath.Join(l.dir, "max_brightness")); err == nil {
		l.max = strings.TrimSpace(string(b))
	} else {
		return nil, fmt.Errorf("led %q: %w", name, err)
	}
	if b, err := os.ReadFile(filepath.Join(l.dir, "trigger")); err == nil {
		l.trigger = activeTrigger(string(b))
	}
	if err := writeSysfs(filepath.Join(l.dir, "trigger"), "none"); err != nil {
		tlog.Debug.Printf("indicator: disabling trigger of %q: %v", name, err)
	}
	tlog.Debug.Printf("indicator: using led %q, max_brightness=%s, trigger was %q", name, l.max, l.trigger)
	return l, nil
}

// activeTrigger picks the bracketed entry out of a sysfs trigger list like
// "none rc-feedback [mmc0] timer".
func activeTrigger(list string) string {
	for _, t := range strings.Fields(list) {
		if strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]") {
			return strings.Trim(t, "[]")
		}
	}
	return ""
}

func (l *SysfsLED) On() error {
	return writeSysfs(filepath.Join(l.dir, "brightness"), l.max)
}

func (l *SysfsLED) Off() error {
	return writeSysfs(filepath.Join(l.dir, "brightness"), "0")
}

// Close switches the LED off and gives it back to its previous trigger.
func (l *SysfsLED) Close() error {
	err := l.Off()
	if l.trigger != "" && l.trigger != "none" {
		if err2 := writeSysfs(filepath.Join(l.dir, "trigger"), l.trigger); err2 != nil {
			tlog.Debug.Printf("indicator: restoring trigger %q: %v", l.trigger, err2)
		}
	}
	return err
}
