//go:build linux

package input

import (
	"encoding/binary"
	"strings"
	"testing"
)

const procDevicesSample = `I: Bus=0019 Vendor=0000 Product=0001 Version=0000
N: Name="Power Button"
P: Phys=PNP0C0C/button/input0
H: Handlers=kbd event0
B: PROP=0
B: EV=3
B: KEY=10000000000000 0

I: Bus=0011 Vendor=0001 Product=0001 Version=ab41
N: Name="AT Translated Set 2 keyboard"
P: Phys=isa0060/serio0/input0
H: Handlers=sysrq kbd event3 leds
B: PROP=0
B: EV=120013
B: KEY=402000000 3803078f800d001 feffffdfffefffff fffffffffffffffe
B: MSC=10
B: LED=7

I: Bus=0003 Vendor=046d Product=c52b Version=0111
N: Name="Logitech USB Receiver Mouse"
P: Phys=usb-0000:00:14.0-2/input1
H: Handlers=mouse0 event4
B: PROP=0
B: EV=17
B: KEY=ffff0000 0 0 0 0
B: REL=1943
B: MSC=10
`

func TestParseDeviceList(t *testing.T) {
	devices := parseDeviceList(strings.NewReader(procDevicesSample))

	if len(devices) != 2 {
		t.Fatalf("expected 2 keyboard-capable devices, got %d: %v", len(devices), devices)
	}
	if devices[0] != "/dev/input/event3" {
		t.Errorf("expected event3 first, got %s", devices[0])
	}
	// The mouse block has key bits too (buttons); its bitmap is long enough
	// to pass the heuristic, which errs on the side of listening. The power
	// button's short bitmap must be excluded.
	for _, d := range devices {
		if d == "/dev/input/event0" {
			t.Error("power button must not be classified as a keyboard")
		}
	}
}

func TestParseDeviceListTrailingBlock(t *testing.T) {
	// No trailing blank line after the last block.
	sample := "H: Handlers=kbd event7\nB: KEY=fffffffffffffffe fffffffffffffffe fffffffffffffffe\n"
	devices := parseDeviceList(strings.NewReader(sample))

	if len(devices) != 1 || devices[0] != "/dev/input/event7" {
		t.Fatalf("expected [/dev/input/event7], got %v", devices)
	}
}

func makeRawEvent(typ, code uint16, value int32) []byte {
	buf := make([]byte, inputEventSize)
	binary.LittleEndian.PutUint16(buf[16:18], typ)
	binary.LittleEndian.PutUint16(buf[18:20], code)
	binary.LittleEndian.PutUint32(buf[20:24], uint32(value))
	return buf
}

func TestDecodeEventShiftPress(t *testing.T) {
	ev, ok := decodeEvent(makeRawEvent(evKey, codeLeftShift, keyDown))
	if !ok {
		t.Fatal("expected event to decode")
	}
	if ev.Key != KeyShiftLeft {
		t.Errorf("expected KeyShiftLeft, got %v", ev.Key)
	}
	if ev.Action != Press {
		t.Errorf("expected Press, got %v", ev.Action)
	}
	if ev.Time.IsZero() {
		t.Error("expected a timestamp")
	}
}

func TestDecodeEventRightShiftRelease(t *testing.T) {
	ev, ok := decodeEvent(makeRawEvent(evKey, codeRightShift, keyUp))
	if !ok {
		t.Fatal("expected event to decode")
	}
	if ev.Key != KeyShiftRight {
		t.Errorf("expected KeyShiftRight, got %v", ev.Key)
	}
	if ev.Action != Release {
		t.Errorf("expected Release, got %v", ev.Action)
	}
}

func TestDecodeEventFiltersAutorepeat(t *testing.T) {
	if _, ok := decodeEvent(makeRawEvent(evKey, codeLeftShift, keyHold)); ok {
		t.Error("autorepeat events must be dropped")
	}
}

func TestDecodeEventFiltersNonKey(t *testing.T) {
	if _, ok := decodeEvent(makeRawEvent(evSyn, 0, 0)); ok {
		t.Error("non-key events must be dropped")
	}
}

func TestDecodeEventOtherKey(t *testing.T) {
	const keyA = 30
	ev, ok := decodeEvent(makeRawEvent(evKey, keyA, keyDown))
	if !ok {
		t.Fatal("expected event to decode")
	}
	if ev.Key != KeyOther {
		t.Errorf("expected KeyOther for 'a', got %v", ev.Key)
	}
	if ev.Code != keyA {
		t.Errorf("expected code %d, got %d", keyA, ev.Code)
	}
}
