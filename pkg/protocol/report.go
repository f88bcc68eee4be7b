// Package protocol decodes the input reports sent by the NSO GameCube
// controller over BLE.
package protocol

import (
	"fmt"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/gamepad"
)

// InputCharacteristic is the GATT characteristic that notifies input reports.
const InputCharacteristic = "ab7de9be-89fe-49ad-828f-118f09df7fd2"

// DeviceNameFilter is matched against advertised names when scanning.
const DeviceNameFilter = "Nintendo"

// ReportSize is the minimum length of a valid input report.
const ReportSize = 62

type buttonBit struct {
	offset int
	mask   byte
	button gamepad.Button
}

// Byte 4 holds the face buttons, byte 5 the system buttons and byte 6 the
// d-pad and left shoulder.
var buttonBits = []buttonBit{
	{4, 0x01, gamepad.Y},
	{4, 0x02, gamepad.X},
	{4, 0x04, gamepad.B},
	{4, 0x08, gamepad.A},
	{4, 0x40, gamepad.RClick},
	{4, 0x80, gamepad.Z},

	{5, 0x02, gamepad.Start},
	{5, 0x10, gamepad.Home},
	{5, 0x20, gamepad.Screenshot},
	{5, 0x40, gamepad.Chat},

	{6, 0x01, gamepad.DpadDown},
	{6, 0x02, gamepad.DpadUp},
	{6, 0x04, gamepad.DpadRight},
	{6, 0x08, gamepad.DpadLeft},
	{6, 0x40, gamepad.LClick},
	{6, 0x80, gamepad.ZL},
}

// Report is one decoded input report.
type Report struct {
	Buttons gamepad.Buttons
	Axes    map[axis.ID]int
}

// ShortReportError is returned for reports below ReportSize.
type ShortReportError struct {
	Len int
}

func (e *ShortReportError) Error() string {
	return fmt.Sprintf("input report too short: %d bytes, need %d", e.Len, ReportSize)
}

// Decode parses an input report. The stick X axes are 12 bit, the Y axes
// and triggers are 8 bit.
func Decode(data []byte) (Report, error) {
	if len(data) < ReportSize {
		return Report{}, &ShortReportError{Len: len(data)}
	}

	var bs gamepad.Buttons
	for _, b := range buttonBits {
		bs = bs.With(b.button, data[b.offset]&b.mask != 0)
	}

	return Report{
		Buttons: bs,
		Axes: map[axis.ID]int{
			axis.LeftX:    int(data[10]) | int(data[11]&0x0F)<<8,
			axis.LeftY:    int(data[12]),
			axis.CX:       int(data[13]) | int(data[14]&0x0F)<<8,
			axis.CY:       int(data[15]),
			axis.LTrigger: int(data[60]),
			axis.RTrigger: int(data[61]),
		},
	}, nil
}
