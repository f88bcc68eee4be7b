package gui

import (
	"errors"
	"fmt"
	"math"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/client"
	"github.com/nsogc/gcbridge/pkg/types"
)

// view is what the tray shows for one daemon status.
type view struct {
	title      string
	tooltip    string
	connection string
	emulation  string
	wizard     string

	online       bool
	connected    bool
	emulating    bool
	wizardActive bool
}

func describe(st *types.Status, err error) view {
	if err != nil {
		v := view{
			title:      "🚫 gcbridge",
			connection: "Daemon: not reachable",
			emulation:  "Emulation: -",
			wizard:     "Calibration: -",
			tooltip:    err.Error(),
		}
		if errors.Is(err, client.ErrDaemonNotRunning) {
			v.connection = "Daemon: not running"
			v.tooltip = "Start the daemon with 'gcbridge daemon'."
		}
		return v
	}

	v := view{
		online:     true,
		connected:  st.Connected,
		emulating:  st.Emulating,
		tooltip:    tooltipIdle,
		connection: "Controller: disconnected",
		emulation:  "Emulation: stopped",
		wizard:     "Calibration: idle",
	}

	switch {
	case st.Emulating:
		v.title = "🎮 ON"
	case st.Connected:
		v.title = "🎮"
	default:
		v.title = "🎮 -"
	}

	if st.Connected {
		v.connection = fmt.Sprintf("Controller: %s (%d reports)", st.Address, st.Packets)
	}
	if st.Emulating {
		v.emulation = fmt.Sprintf("Emulation: running (%d frames)", st.Forwarded)
	}

	w := st.Wizard
	if w.Step.Active() {
		v.wizardActive = true
		v.wizard = fmt.Sprintf("Calibration: %s", w.Instruction)
	} else if w.Axis != "" {
		v.wizard = fmt.Sprintf("Calibration of %s: %s", w.Axis, w.Step)
	}

	if st.LastError != "" {
		v.tooltip = "Last error: " + st.LastError
	}
	return v
}

// Dead zone groups and presets offered in the tray, in menu order.
var (
	deadZoneGroups = []struct {
		name  string
		title string
	}{
		{"left_stick", "Left Stick"},
		{"c_stick", "C-Stick"},
		{"triggers", "Triggers"},
	}
	deadZonePresets = []int{0, 2, 5, 10, 15, 20}
)

// deadZonePercents returns the dead zone of every group in whole percent.
// A group whose axes disagree or are missing is reported as -1.
func deadZonePercents(dzs []axis.DeadZone) map[string]int {
	byAxis := make(map[axis.ID]float64, len(dzs))
	for _, dz := range dzs {
		byAxis[dz.Axis] = dz.Threshold
	}

	ret := make(map[string]int, len(deadZoneGroups))
	for _, g := range deadZoneGroups {
		pct := -1
		for i, id := range axis.Groups[g.name] {
			th, ok := byAxis[id]
			if !ok {
				pct = -1
				break
			}
			p := int(math.Round(th * 100))
			if i > 0 && p != pct {
				pct = -1
				break
			}
			pct = p
		}
		ret[g.name] = pct
	}
	return ret
}

func deadZoneTitle(title string, pct int) string {
	if pct < 0 {
		return title + ": mixed"
	}
	return fmt.Sprintf("%s: %d%%", title, pct)
}
