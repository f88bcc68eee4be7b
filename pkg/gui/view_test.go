package gui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/calibration"
	"github.com/nsogc/gcbridge/pkg/client"
	"github.com/nsogc/gcbridge/pkg/types"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name    string
		st      *types.Status
		err     error
		check   func(v view) bool
		explain string
	}{
		{
			name:    "daemon not running",
			err:     fmt.Errorf("failed to get status: %w", client.ErrDaemonNotRunning),
			check:   func(v view) bool { return !v.online && strings.Contains(v.connection, "not running") },
			explain: "offline with a not running hint",
		},
		{
			name:    "other error",
			err:     errors.New("boom"),
			check:   func(v view) bool { return !v.online && v.tooltip == "boom" },
			explain: "offline with the error as tooltip",
		},
		{
			name:    "disconnected",
			st:      &types.Status{},
			check:   func(v view) bool { return v.online && !v.connected && v.title == "🎮 -" },
			explain: "online but disconnected",
		},
		{
			name: "emulating",
			st:   &types.Status{Connected: true, Address: "AA:BB", Emulating: true, Forwarded: 7},
			check: func(v view) bool {
				return v.emulating && v.title == "🎮 ON" && strings.Contains(v.connection, "AA:BB") && strings.Contains(v.emulation, "7 frames")
			},
			explain: "emulating with counters",
		},
		{
			name: "wizard running",
			st: &types.Status{Connected: true, Wizard: calibration.Status{
				Axis:        axis.LeftX,
				Step:        calibration.StepAwaitMin,
				Instruction: calibration.Instruction(axis.LeftX, calibration.StepAwaitMin),
			}},
			check:   func(v view) bool { return v.wizardActive && strings.Contains(v.wizard, "LEFT") },
			explain: "active wizard showing its instruction",
		},
		{
			name: "wizard done",
			st: &types.Status{Wizard: calibration.Status{
				Axis: axis.CY,
				Step: calibration.StepDone,
			}},
			check:   func(v view) bool { return !v.wizardActive && strings.Contains(v.wizard, "Done") },
			explain: "finished wizard",
		},
		{
			name:    "last error",
			st:      &types.Status{LastError: "controller transport lost"},
			check:   func(v view) bool { return strings.Contains(v.tooltip, "transport lost") },
			explain: "last error in tooltip",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if v := describe(tt.st, tt.err); !tt.check(v) {
				t.Errorf("want %s, got %+v", tt.explain, v)
			}
		})
	}
}

func TestDeadZonePercents(t *testing.T) {
	tests := []struct {
		name string
		dzs  []axis.DeadZone
		want map[string]int
	}{
		{
			name: "defaults",
			dzs: []axis.DeadZone{
				axis.DefaultDeadZone(axis.LeftX), axis.DefaultDeadZone(axis.LeftY),
				axis.DefaultDeadZone(axis.CX), axis.DefaultDeadZone(axis.CY),
				axis.DefaultDeadZone(axis.LTrigger), axis.DefaultDeadZone(axis.RTrigger),
			},
			want: map[string]int{"left_stick": 5, "c_stick": 5, "triggers": 2},
		},
		{
			name: "axes of a group disagree",
			dzs: []axis.DeadZone{
				{Axis: axis.LeftX, Threshold: 0.1}, {Axis: axis.LeftY, Threshold: 0.15},
				{Axis: axis.CX, Threshold: 0.2}, {Axis: axis.CY, Threshold: 0.2},
				{Axis: axis.LTrigger, Threshold: 0}, {Axis: axis.RTrigger, Threshold: 0},
			},
			want: map[string]int{"left_stick": -1, "c_stick": 20, "triggers": 0},
		},
		{
			name: "missing axes",
			dzs:  []axis.DeadZone{{Axis: axis.LeftX, Threshold: 0.05}},
			want: map[string]int{"left_stick": -1, "c_stick": -1, "triggers": -1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deadZonePercents(tt.dzs)
			for group, want := range tt.want {
				if got[group] != want {
					t.Errorf("%s = %d, want %d", group, got[group], want)
				}
			}
		})
	}
}

func TestDeadZoneTitle(t *testing.T) {
	if got := deadZoneTitle("Triggers", 2); got != "Triggers: 2%" {
		t.Errorf("got %q", got)
	}
	if got := deadZoneTitle("C-Stick", -1); got != "C-Stick: mixed" {
		t.Errorf("got %q", got)
	}
}
