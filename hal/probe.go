package hal

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultIssuePath is the system identity descriptor the prober reads.
	DefaultIssuePath = "/etc/issue"

	// DefaultChipLabelPath is the sysfs label of the GPIO chip that only
	// exists on boards whose controller sits at the shifted base.
	DefaultChipLabelPath = "/sys/class/gpio/gpiochip571/label"

	// pi5GPIOOffset is the sysfs GPIO base of the RP1 controller on the
	// Raspberry Pi 5; earlier boards use base 0.
	pi5GPIOOffset = 571

	rp1ChipLabel = "pinctrl-rp1"
)

// recognizedSystems are the OS identity prefixes the board is expected to
// run. Anything else is only worth a warning.
var recognizedSystems = []string{"Raspbian", "Debian", "Raspberry"}

// probeEnvironment reads the system identity descriptor and returns the
// token preceding the first whitespace. A file that can't be opened or read
// is the only failure; an unfamiliar identity is not.
func probeEnvironment(path string, logger *logrus.Logger) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("unable to read %s: %w", path, err)
	}

	line := string(raw)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	logger.Infof("current environment: %s", strings.TrimSpace(line))

	fingerprint := line
	if i := strings.IndexAny(line, " \t"); i >= 0 {
		fingerprint = line[:i]
	}
	return fingerprint, nil
}

// fingerprintRecognized reports whether the identity token matches one of
// the expected system prefixes.
func fingerprintRecognized(fingerprint string) bool {
	for _, prefix := range recognizedSystems {
		if strings.HasPrefix(fingerprint, prefix) {
			return true
		}
	}
	return false
}

// detectBoardOffset inspects the sysfs label of the shifted GPIO chip and
// returns the pin offset to apply on the fallback path: the Pi 5 base if
// the RP1 signature is present, 0 otherwise. It never fails the caller;
// any read problem is treated the same as an absent signature.
func detectBoardOffset(labelPath string, logger *logrus.Logger) int {
	raw, err := os.ReadFile(labelPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Debugf("board offset probe failed: %s", err)
		}
		return 0
	}
	if strings.Contains(string(raw), rp1ChipLabel) {
		return pi5GPIOOffset
	}
	return 0
}
