package backend

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// fakeGPIOTree builds a sysfs-shaped directory with the given pins already
// exported, the way the kernel presents them.
func fakeGPIOTree(t *testing.T, pins ...int) string {
	t.Helper()
	root := t.TempDir()
	for _, name := range []string{"export", "unexport"} {
		if err := os.WriteFile(filepath.Join(root, name), nil, 0644); err != nil {
			t.Fatalf("unable to seed %s: %s", name, err)
		}
	}
	for _, pin := range pins {
		dir := filepath.Join(root, fmt.Sprintf("gpio%d", pin))
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("unable to create %s: %s", dir, err)
		}
		for _, name := range []string{"direction", "value"} {
			if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
				t.Fatalf("unable to seed gpio%d/%s: %s", pin, name, err)
			}
		}
	}
	return root
}

func readTreeFile(t *testing.T, root string, parts ...string) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(root, filepath.Join(parts...)))
	if err != nil {
		t.Fatalf("unable to read %s: %s", filepath.Join(parts...), err)
	}
	return string(raw)
}

func TestSysfsKind(t *testing.T) {
	if got := NewSysfs().Kind(); got != SysfsFallback {
		t.Errorf("got kind %s, want %s", got, SysfsFallback)
	}
	if got := NewSpidevDirect().Kind(); got != SpidevDirect {
		t.Errorf("got kind %s, want %s", got, SpidevDirect)
	}
	if !NewSysfs().SysfsNumbered() {
		t.Error("sysfs backend should report sysfs numbering")
	}
}

func TestSysfsSetPinMode(t *testing.T) {
	root := fakeGPIOTree(t, 589, 588)
	s := &Sysfs{GPIORoot: root}

	if err := s.SetPinMode(589, Output); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got := readTreeFile(t, root, "gpio589", "direction"); got != "out" {
		t.Errorf("got direction %q, want %q", got, "out")
	}

	if err := s.SetPinMode(588, Input); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got := readTreeFile(t, root, "gpio588", "direction"); got != "in" {
		t.Errorf("got direction %q, want %q", got, "in")
	}
}

func TestSysfsDigitalWriteRead(t *testing.T) {
	root := fakeGPIOTree(t, 593)
	s := &Sysfs{GPIORoot: root}

	if err := s.DigitalWrite(593, High); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if got := readTreeFile(t, root, "gpio593", "value"); got != "1" {
		t.Errorf("got value %q, want %q", got, "1")
	}
	level, err := s.DigitalRead(593)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if level != High {
		t.Error("read Low after writing High")
	}

	if err := s.DigitalWrite(593, Low); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	level, err = s.DigitalRead(593)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if level != Low {
		t.Error("read High after writing Low")
	}
}

func TestSysfsDigitalReadTrailingNewline(t *testing.T) {
	root := fakeGPIOTree(t, 17)
	s := &Sysfs{GPIORoot: root}

	path := filepath.Join(root, "gpio17", "value")
	if err := os.WriteFile(path, []byte("1\n"), 0644); err != nil {
		t.Fatalf("unable to seed value: %s", err)
	}

	level, err := s.DigitalRead(17)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if level != High {
		t.Error("a value of \"1\\n\" should read as High")
	}
}

func TestSysfsDigitalReadUnexportedPin(t *testing.T) {
	s := &Sysfs{GPIORoot: fakeGPIOTree(t)}

	if _, err := s.DigitalRead(42); err == nil {
		t.Fatal("expected an error reading an unexported pin")
	}
}

func TestSysfsCloseUnexportsPins(t *testing.T) {
	root := fakeGPIOTree(t, 18, 22)
	s := &Sysfs{GPIORoot: root}

	if err := s.SetPinMode(18, Output); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := s.SetPinMode(22, Output); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}

	// Only the last unexport write survives in a plain file, which is
	// enough to show Close walked the exported pins.
	if got := readTreeFile(t, root, "unexport"); got != "22" {
		t.Errorf("got unexport %q, want %q", got, "22")
	}

	if err := s.Close(); err != nil {
		t.Fatalf("second close should be a no-op, got: %s", err)
	}
}

func TestSysfsTransferByteNotOpen(t *testing.T) {
	s := &Sysfs{GPIORoot: fakeGPIOTree(t)}

	if _, err := s.TransferByte(0xAA); err == nil {
		t.Fatal("expected an error when the spi device is not open")
	}
}

func TestPinsShift(t *testing.T) {
	base := DefaultPins()
	shifted := base.Shift(571)

	want := Pins{Reset: 589, ChipSelect: 593, DataReady: 588}
	if shifted != want {
		t.Errorf("got %+v, want %+v", shifted, want)
	}
	if base.Shift(0) != base {
		t.Error("a zero offset should leave pins unchanged")
	}
}
