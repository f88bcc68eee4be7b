package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"

	"github.com/nsogc/gcbridge/pkg/axis"
	"github.com/nsogc/gcbridge/pkg/client"
)

func handleCmdError(err error) {
	switch {
	case errors.Is(err, client.ErrDaemonNotRunning):
		fmt.Fprintln(os.Stderr, "\nError: gcbridge daemon is not running")
		fmt.Fprintln(os.Stderr, "Start it with 'gcbridge daemon', or pass '--daemon-socket' if it listens elsewhere.")
	case errors.Is(err, client.ErrPermissionDenied):
		fmt.Fprintln(os.Stderr, "\nError: Permission Denied")
		fmt.Fprintln(os.Stderr, "  - Run the command as the user that started the daemon")
		fmt.Fprintln(os.Stderr, "  - Or restart the daemon with the '--allow-other-users' flag")
	case errors.Is(err, client.ErrDriverUnavailable):
		fmt.Fprintln(os.Stderr, "\nError: the ViGEmBus driver is not available")
		fmt.Fprintln(os.Stderr, "  - Install ViGEmBus from https://github.com/nefarius/ViGEmBus/releases")
		fmt.Fprintln(os.Stderr, "  - Make sure ViGEmClient.dll is next to gcbridge or on the PATH")
		fmt.Fprintln(os.Stderr, "  - Virtual controllers are only supported on Windows")
	}
}

func parseIntArg(args []string, valueName string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("invalid number of arguments")
	}

	value, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %v", valueName, err)
	}

	return value, nil
}

func parseAxisArg(args []string) (axis.ID, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("missing axis, one of %v", axis.All)
	}
	return axis.Parse(args[0])
}

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("✔")
	}
	return color.New(color.Bold, color.FgRed).Sprint("✘")
}

func bold(format string, a ...interface{}) string {
	return color.New(color.Bold).Sprintf(format, a...)
}
