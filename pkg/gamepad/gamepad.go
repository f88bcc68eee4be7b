// Package gamepad models the GameCube controller buttons and the Xbox 360
// report they are translated into.
package gamepad

import (
	"math"
	"strings"
)

// Button is one digital input of the GameCube controller.
type Button string

const (
	A          Button = "a"
	B          Button = "b"
	X          Button = "x"
	Y          Button = "y"
	Z          Button = "z"
	ZL         Button = "zl"
	Start      Button = "start"
	Home       Button = "home"
	Screenshot Button = "screenshot"
	Chat       Button = "chat"
	DpadUp     Button = "dpad_up"
	DpadDown   Button = "dpad_down"
	DpadLeft   Button = "dpad_left"
	DpadRight  Button = "dpad_right"
	LClick     Button = "l_click"
	RClick     Button = "r_click"
)

// AllButtons lists every button in bitmask order.
var AllButtons = []Button{
	A, B, X, Y, Z, ZL, Start, Home, Screenshot, Chat,
	DpadUp, DpadDown, DpadLeft, DpadRight, LClick, RClick,
}

func (b Button) bit() Buttons {
	for i, v := range AllButtons {
		if v == b {
			return 1 << uint(i)
		}
	}
	return 0
}

// Buttons is a bitmask of pressed buttons.
type Buttons uint32

func (bs Buttons) Has(b Button) bool {
	bit := b.bit()
	return bit != 0 && bs&bit != 0
}

func (bs Buttons) With(b Button, pressed bool) Buttons {
	if pressed {
		return bs | b.bit()
	}
	return bs &^ b.bit()
}

// List returns the pressed buttons in bitmask order.
func (bs Buttons) List() []Button {
	var out []Button
	for _, b := range AllButtons {
		if bs.Has(b) {
			out = append(out, b)
		}
	}
	return out
}

func (bs Buttons) String() string {
	l := bs.List()
	s := make([]string, len(l))
	for i, b := range l {
		s[i] = string(b)
	}
	return strings.Join(s, "+")
}

// XUSB button flags as defined by XINPUT_GAMEPAD.
const (
	XUSBDpadUp    uint16 = 0x0001
	XUSBDpadDown  uint16 = 0x0002
	XUSBDpadLeft  uint16 = 0x0004
	XUSBDpadRight uint16 = 0x0008
	XUSBStart     uint16 = 0x0010
	XUSBBack      uint16 = 0x0020
	XUSBLThumb    uint16 = 0x0040
	XUSBRThumb    uint16 = 0x0080
	XUSBLShoulder uint16 = 0x0100
	XUSBRShoulder uint16 = 0x0200
	XUSBGuide     uint16 = 0x0400
	XUSBA         uint16 = 0x1000
	XUSBB         uint16 = 0x2000
	XUSBX         uint16 = 0x4000
	XUSBY         uint16 = 0x8000
)

// xusbMap translates GameCube buttons. Chat has no Xbox counterpart.
var xusbMap = map[Button]uint16{
	A:          XUSBA,
	B:          XUSBB,
	X:          XUSBX,
	Y:          XUSBY,
	Z:          XUSBRShoulder,
	ZL:         XUSBLShoulder,
	Start:      XUSBStart,
	Home:       XUSBGuide,
	Screenshot: XUSBBack,
	DpadUp:     XUSBDpadUp,
	DpadDown:   XUSBDpadDown,
	DpadLeft:   XUSBDpadLeft,
	DpadRight:  XUSBDpadRight,
	LClick:     XUSBLThumb,
	RClick:     XUSBRThumb,
}

// State is one mapped controller frame. Sticks are in [-1, 1] with +Y up,
// triggers in [0, 1].
type State struct {
	LeftX    float64 `json:"leftX"`
	LeftY    float64 `json:"leftY"`
	RightX   float64 `json:"rightX"`
	RightY   float64 `json:"rightY"`
	LTrigger float64 `json:"lTrigger"`
	RTrigger float64 `json:"rTrigger"`
	Buttons  Buttons `json:"buttons"`
}

// XUSBReport mirrors XUSB_REPORT from ViGEmClient.
type XUSBReport struct {
	Buttons      uint16
	LeftTrigger  uint8
	RightTrigger uint8
	ThumbLX      int16
	ThumbLY      int16
	ThumbRX      int16
	ThumbRY      int16
}

// Report converts s into an XUSB report.
func (s State) Report() XUSBReport {
	var btn uint16
	for b, flag := range xusbMap {
		if s.Buttons.Has(b) {
			btn |= flag
		}
	}
	return XUSBReport{
		Buttons:      btn,
		LeftTrigger:  triggerByte(s.LTrigger),
		RightTrigger: triggerByte(s.RTrigger),
		ThumbLX:      thumbWord(s.LeftX),
		ThumbLY:      thumbWord(s.LeftY),
		ThumbRX:      thumbWord(s.RightX),
		ThumbRY:      thumbWord(s.RightY),
	}
}

func thumbWord(v float64) int16 {
	v = math.Max(-1, math.Min(1, v))
	return int16(math.Round(v * 32767))
}

func triggerByte(v float64) uint8 {
	v = math.Max(0, math.Min(1, v))
	return uint8(math.Round(v * 255))
}
