package speed

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// cpuModelName returns the "model name" acc. to /proc/cpuinfo, or ""
// on error.
//
// On a Raspberry Pi there is no "model name":
//
//	$ grep Hardware /proc/cpuinfo
//	Hardware	: BCM2835
//
// --> Returns "BCM2835", and "Model" is appended when present:
// "BCM2835 (Raspberry Pi 3 Model B Rev 1.2)".
func cpuModelName() string {
	if runtime.GOOS != "linux" {
		return ""
	}
	content, err := os.ReadFile("/proc/cpuinfo")
	if err != nil {
		return ""
	}
	return parseCPUInfo(string(content))
}

func parseCPUInfo(content string) string {
	lines := strings.Split(content, "\n")
	field := func(want string) string {
		for _, line := range lines {
			if !strings.HasPrefix(line, want) {
				continue
			}
			parts := strings.SplitN(line, ":", 2)
			if len(parts) != 2 {
				continue
			}
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if m := field("model name"); m != "" {
		return m
	}
	// arm devices don't have "model name"
	hw := field("Hardware")
	if model := field("Model"); model != "" {
		if hw == "" {
			return model
		}
		return fmt.Sprintf("%s (%s)", hw, model)
	}
	return hw
}
