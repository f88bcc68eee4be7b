package daemon

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewUnit(t *testing.T) {
	dirs := Dirs{Home: "/home/u", Config: "/home/u/.config", AppData: `C:\Users\u\AppData\Roaming`}
	args := []string{"daemon", "--config", "/my settings/s.json"}

	tests := []struct {
		goos     string
		path     string
		contains []string
		loads    int
	}{
		{
			goos:     "linux",
			path:     filepath.Join("/home/u/.config", "systemd", "user", "gcbridge.service"),
			contains: []string{`ExecStart=/bin/gcbridge daemon --config "/my settings/s.json"`, "WantedBy=default.target"},
			loads:    2,
		},
		{
			goos:     "darwin",
			path:     filepath.Join("/home/u", "Library", "LaunchAgents", "io.github.nsogc.gcbridge.plist"),
			contains: []string{"<string>/bin/gcbridge</string>", "<string>/my settings/s.json</string>"},
			loads:    1,
		},
		{
			goos:     "windows",
			contains: []string{`start "gcbridge" /min /bin/gcbridge daemon`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			u, err := NewUnit(tt.goos, dirs, "/bin/gcbridge", args)
			if err != nil {
				t.Fatal(err)
			}
			if tt.path != "" && u.Path != tt.path {
				t.Errorf("path = %q, want %q", u.Path, tt.path)
			}
			for _, s := range tt.contains {
				if !strings.Contains(u.Content, s) {
					t.Errorf("content lacks %q:\n%s", s, u.Content)
				}
			}
			if len(u.Load) != tt.loads {
				t.Errorf("%d load commands, want %d", len(u.Load), tt.loads)
			}
		})
	}

	if _, err := NewUnit("plan9", dirs, "/bin/gcbridge", nil); err == nil {
		t.Error("expected an error for an unsupported OS")
	}
}

func TestInstallUninstall(t *testing.T) {
	u := Unit{
		Path:    filepath.Join(t.TempDir(), "a", "b", "gcbridge.service"),
		Content: "unit",
	}

	if err := Install(u); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(u.Path)
	if err != nil || string(b) != "unit" {
		t.Fatalf("read back %q, %v", b, err)
	}

	if err := Uninstall(u); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(u.Path); !os.IsNotExist(err) {
		t.Errorf("unit still present: %v", err)
	}
	if err := Uninstall(u); err != nil {
		t.Errorf("second uninstall: %v", err)
	}
}
