package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
)

// CurrentUnit returns the autostart entry for this OS and user that runs
// the current executable with args.
func CurrentUnit(args []string) (Unit, error) {
	// Get the path to the current executable
	exePath, err := os.Executable()
	if err != nil {
		return Unit{}, fmt.Errorf("failed to get the path to the current executable: %w", err)
	}
	exePath, err = filepath.Abs(exePath)
	if err != nil {
		return Unit{}, fmt.Errorf("failed to get the absolute path to the current executable: %w", err)
	}

	home, _ := os.UserHomeDir()
	conf, _ := os.UserConfigDir()
	dirs := Dirs{
		Home:    home,
		Config:  conf,
		AppData: os.Getenv("APPDATA"),
	}

	return NewUnit(runtime.GOOS, dirs, exePath, args)
}

// Install writes u and loads it.
func Install(u Unit) error {
	logrus.Infof("writing autostart entry to %s", u.Path)

	// mkdir -p
	err := os.MkdirAll(filepath.Dir(u.Path), 0755)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(u.Path), err)
	}

	// warn if the file already exists
	_, err = os.Stat(u.Path)
	if err == nil {
		logrus.Warnf("%s already exists, overwriting", u.Path)
	}

	err = os.WriteFile(u.Path, []byte(u.Content), 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", u.Path, err)
	}

	logrus.Infof("starting gcbridge daemon")

	return run(u.Load)
}

func run(cmds [][]string) error {
	for _, c := range cmds {
		out, err := exec.Command(c[0], c[1:]...).CombinedOutput()
		if err != nil {
			return fmt.Errorf("failed to run %v: %w: %s", c, err, out)
		}
	}
	return nil
}
