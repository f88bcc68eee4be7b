package gui

import (
	"errors"
	"fmt"
	"time"

	"github.com/getlantern/systray"
	"github.com/sirupsen/logrus"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/client"
)

const refreshInterval = 2 * time.Second

// menuController owns the tray items and keeps them in sync with the daemon.
type menuController struct {
	api *client.Client

	// Status
	connectionItem *systray.MenuItem
	emulationItem  *systray.MenuItem
	wizardItem     *systray.MenuItem

	// Actions
	connectItem    *systray.MenuItem
	disconnectItem *systray.MenuItem
	startEmuItem   *systray.MenuItem
	stopEmuItem    *systray.MenuItem

	// Calibration
	calibrateItem *systray.MenuItem
	axisItems     map[axis.ID]*systray.MenuItem
	captureItem   *systray.MenuItem
	retakeItem    *systray.MenuItem
	cancelItem    *systray.MenuItem
	resetItem     *systray.MenuItem

	// Dead zones
	deadZoneItem   *systray.MenuItem
	deadZoneGroups map[string]*systray.MenuItem
	deadZoneItems  map[string]map[int]*systray.MenuItem

	quitItem *systray.MenuItem

	refreshCh chan struct{}
}

func newMenuController(api *client.Client) *menuController {
	systray.SetTitle("🎮 ...")
	systray.SetTooltip(tooltipIdle)

	c := &menuController{
		api:       api,
		axisItems: make(map[axis.ID]*systray.MenuItem, len(axis.All)),

		deadZoneGroups: make(map[string]*systray.MenuItem, len(deadZoneGroups)),
		deadZoneItems:  make(map[string]map[int]*systray.MenuItem, len(deadZoneGroups)),
		refreshCh: make(chan struct{}, 1),
	}

	c.connectionItem = systray.AddMenuItem("Loading...", "Controller connection")
	c.connectionItem.Disable()
	c.emulationItem = systray.AddMenuItem("Loading...", "Virtual Xbox 360 controller")
	c.emulationItem.Disable()
	c.wizardItem = systray.AddMenuItem("Loading...", "Calibration wizard")
	c.wizardItem.Disable()

	systray.AddSeparator()

	c.connectItem = systray.AddMenuItem("Connect", "Connect the saved controller, or the first one found")
	c.disconnectItem = systray.AddMenuItem("Disconnect", "Disconnect the controller")
	c.startEmuItem = systray.AddMenuItem("Start Emulation", "Plug in the virtual Xbox 360 controller")
	c.stopEmuItem = systray.AddMenuItem("Stop Emulation", "Unplug the virtual Xbox 360 controller")

	systray.AddSeparator()

	c.calibrateItem = systray.AddMenuItem("Calibrate", "Run the calibration wizard for one axis")
	for _, id := range axis.All {
		c.axisItems[id] = c.calibrateItem.AddSubMenuItem(string(id), "Calibrate "+string(id))
	}
	c.captureItem = systray.AddMenuItem("Capture", tooltipCapture)
	c.retakeItem = systray.AddMenuItem("Retake", "Step back and capture the previous value again")
	c.cancelItem = systray.AddMenuItem("Cancel Calibration", "Discard the running calibration")
	c.resetItem = systray.AddMenuItem("Reset Calibration", tooltipReset)

	systray.AddSeparator()

	c.deadZoneItem = systray.AddMenuItem("Dead Zones", tooltipDeadZone)
	for _, g := range deadZoneGroups {
		groupItem := c.deadZoneItem.AddSubMenuItem(g.title, "Dead zone of "+g.title)
		c.deadZoneGroups[g.name] = groupItem
		c.deadZoneItems[g.name] = make(map[int]*systray.MenuItem, len(deadZonePresets))
		for _, pct := range deadZonePresets {
			c.deadZoneItems[g.name][pct] = groupItem.AddSubMenuItemCheckbox(fmt.Sprintf("%d%%", pct), "", false)
		}
	}

	systray.AddSeparator()
	c.quitItem = systray.AddMenuItem("Quit", tooltipQuit)

	return c
}

// run handles clicks and refreshes until Quit is clicked.
func (c *menuController) run() {
	for id, item := range c.axisItems {
		id, item := id, item
		go func() {
			for range item.ClickedCh {
				_, err := c.api.StartWizard(id)
				c.report("start calibration", err)
			}
		}()
	}

	for group, items := range c.deadZoneItems {
		for pct, item := range items {
			group, pct, item := group, pct, item
			go func() {
				for range item.ClickedCh {
					_, err := c.api.SetDeadZone(group, float64(pct)/100)
					c.report("set dead zone", err)
				}
			}()
		}
	}

	go c.refreshLoop()

	for {
		select {
		case <-c.connectItem.ClickedCh:
			systray.SetTitle("🎮 connecting...")
			_, err := c.api.Connect("")
			c.report("connect", err)
		case <-c.disconnectItem.ClickedCh:
			_, err := c.api.Disconnect()
			c.report("disconnect", err)
		case <-c.startEmuItem.ClickedCh:
			_, err := c.api.StartEmulation()
			if errors.Is(err, client.ErrDriverUnavailable) {
				systray.SetTooltip("ViGEmBus is not installed. Install it from https://github.com/nefarius/ViGEmBus/releases and try again.")
			}
			c.report("start emulation", err)
		case <-c.stopEmuItem.ClickedCh:
			_, err := c.api.StopEmulation()
			c.report("stop emulation", err)
		case <-c.captureItem.ClickedCh:
			_, err := c.api.Capture(nil)
			c.report("capture", err)
		case <-c.retakeItem.ClickedCh:
			_, err := c.api.Retake()
			c.report("retake", err)
		case <-c.cancelItem.ClickedCh:
			_, err := c.api.CancelWizard()
			c.report("cancel calibration", err)
		case <-c.resetItem.ClickedCh:
			_, err := c.api.ResetCalibration()
			c.report("reset calibration", err)
		case <-c.quitItem.ClickedCh:
			systray.Quit()
			return
		}
	}
}

func (c *menuController) report(action string, err error) {
	if err != nil {
		logrus.WithError(err).Errorf("failed to %s", action)
		systray.SetTooltip("Failed to " + action + ": " + err.Error())
	}
	c.requestRefresh()
}

// requestRefresh schedules a refresh without blocking.
func (c *menuController) requestRefresh() {
	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
}

func (c *menuController) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	c.refresh()
	for {
		select {
		case <-ticker.C:
		case <-c.refreshCh:
		}
		c.refresh()
	}
}

func (c *menuController) refresh() {
	st, err := c.api.GetStatus()
	if err != nil {
		logrus.WithError(err).Debug("failed to get daemon status")
	}
	c.apply(describe(st, err))
	if err != nil {
		return
	}

	dzs, err := c.api.GetDeadZones()
	if err != nil {
		logrus.WithError(err).Debug("failed to get dead zones")
		return
	}
	c.applyDeadZones(deadZonePercents(dzs))
}

func (c *menuController) applyDeadZones(percents map[string]int) {
	for _, g := range deadZoneGroups {
		pct := percents[g.name]
		c.deadZoneGroups[g.name].SetTitle(deadZoneTitle(g.title, pct))
		for preset, item := range c.deadZoneItems[g.name] {
			setCheckboxItem(item, preset == pct)
		}
	}
}

func (c *menuController) apply(v view) {
	systray.SetTitle(v.title)
	systray.SetTooltip(v.tooltip)
	c.connectionItem.SetTitle(v.connection)
	c.emulationItem.SetTitle(v.emulation)
	c.wizardItem.SetTitle(v.wizard)

	setEnabled(c.connectItem, v.online && !v.connected)
	setEnabled(c.disconnectItem, v.connected)
	setEnabled(c.startEmuItem, v.connected && !v.emulating)
	setEnabled(c.stopEmuItem, v.emulating)

	setEnabled(c.calibrateItem, v.online && !v.wizardActive)
	setEnabled(c.captureItem, v.wizardActive && v.connected)
	setEnabled(c.retakeItem, v.wizardActive)
	setEnabled(c.cancelItem, v.wizardActive)
	setEnabled(c.resetItem, v.online && !v.wizardActive)
	setEnabled(c.deadZoneItem, v.online)
}

func setEnabled(item *systray.MenuItem, enabled bool) {
	if enabled {
		item.Enable()
	} else {
		item.Disable()
	}
}

func setCheckboxItem(item *systray.MenuItem, checked bool) {
	if checked {
		item.Check()
	} else {
		item.Uncheck()
	}
}
