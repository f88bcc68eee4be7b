package daemon

import (
	"fmt"
	"path/filepath"
	"strings"
)

const unitName = "gcbridge"

const systemdTemplate = `[Unit]
Description=gcbridge GameCube controller bridge
After=bluetooth.target

[Service]
ExecStart={{exec}}
Restart=on-failure
RestartSec=5

[Install]
WantedBy=default.target
`

const launchdTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>io.github.nsogc.gcbridge</string>
    <key>ProgramArguments</key>
    <array>
{{args}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
</dict>
</plist>
`

const startupTemplate = "@echo off\r\nstart \"gcbridge\" /min {{exec}}\r\n"

// Unit is an autostart entry that runs the daemon at login.
type Unit struct {
	Path    string
	Content string
	// Load and Unload are run after writing and before removing the entry.
	Load   [][]string
	Unload [][]string
}

// Dirs are the per-user directories the autostart entry is placed under.
type Dirs struct {
	Home    string
	Config  string
	AppData string
}

// NewUnit renders the autostart entry of goos that runs exePath with args.
func NewUnit(goos string, dirs Dirs, exePath string, args []string) (Unit, error) {
	argv := append([]string{exePath}, args...)

	switch goos {
	case "linux":
		path := filepath.Join(dirs.Config, "systemd", "user", unitName+".service")
		return Unit{
			Path:    path,
			Content: strings.ReplaceAll(systemdTemplate, "{{exec}}", quoteAll(argv, `"`)),
			Load: [][]string{
				{"systemctl", "--user", "daemon-reload"},
				{"systemctl", "--user", "enable", "--now", unitName + ".service"},
			},
			Unload: [][]string{
				{"systemctl", "--user", "disable", "--now", unitName + ".service"},
			},
		}, nil
	case "darwin":
		path := filepath.Join(dirs.Home, "Library", "LaunchAgents", "io.github.nsogc.gcbridge.plist")
		var lines []string
		for _, a := range argv {
			lines = append(lines, "        <string>"+xmlEscape(a)+"</string>")
		}
		return Unit{
			Path:    path,
			Content: strings.ReplaceAll(launchdTemplate, "{{args}}", strings.Join(lines, "\n")),
			Load:    [][]string{{"/bin/launchctl", "load", path}},
			Unload:  [][]string{{"/bin/launchctl", "unload", path}},
		}, nil
	case "windows":
		path := filepath.Join(dirs.AppData, "Microsoft", "Windows", "Start Menu", "Programs", "Startup", unitName+".cmd")
		return Unit{
			Path:    path,
			Content: strings.ReplaceAll(startupTemplate, "{{exec}}", quoteAll(argv, `"`)),
		}, nil
	default:
		return Unit{}, fmt.Errorf("autostart is not supported on %s", goos)
	}
}

func quoteAll(args []string, q string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if strings.ContainsAny(a, " \t") {
			a = q + a + q
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}

func xmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
