package daemon

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// Uninstall unloads u and removes it.
func Uninstall(u Unit) error {
	logrus.Infof("stopping gcbridge daemon")

	if err := run(u.Unload); err != nil {
		logrus.WithError(err).Warn("failed to unload autostart entry")
	}

	logrus.Infof("removing autostart entry")

	// if the file doesn't exist, we don't need to remove it
	_, err := os.Stat(u.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to stat %s: %w", u.Path, err)
	}

	err = os.Remove(u.Path)
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", u.Path, err)
	}

	return nil
}
