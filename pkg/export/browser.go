package export

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
)

// browserCommand is replaced in tests.
var browserCommand = func(goos, target string) *exec.Cmd {
	switch goos {
	case "darwin":
		return exec.Command("open", target)
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		return exec.Command("xdg-open", target)
	}
}

// OpenInBrowser opens target with the platform's default handler. Only
// http and https links are accepted.
func OpenInBrowser(target string) error {
	u, err := url.Parse(target)
	if err != nil {
		return fmt.Errorf("parse link: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("refusing to open %q: not an http link", target)
	}
	cmd := browserCommand(runtime.GOOS, u.String())
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	// Reap the launcher without blocking the caller.
	go func() { _ = cmd.Wait() }()
	return nil
}
