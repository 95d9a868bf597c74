// Package cdp connects dom_tail to Chrome: it launches and discovers the
// browser, tracks page targets and runs one DOM monitor per tab.
package cdp

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// ChromeProcess represents a launched Chrome instance.
type ChromeProcess struct {
	Cmd         *exec.Cmd
	Port        string
	UserDataDir string
}

// chromeArgs are the flags every launched instance gets. Background
// networking and sync are off so the only DOM traffic is the user's.
func chromeArgs(port, userDataDir string, extra []string) []string {
	args := []string{
		"--remote-debugging-port=" + port,
		"--user-data-dir=" + userDataDir,
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-features=TranslateUI",
		"--disable-background-networking",
		"--disable-sync",
	}
	return append(args, extra...)
}

// LaunchChrome starts Chrome with remote debugging on port and a throwaway
// profile.
func LaunchChrome(port string, extraArgs ...string) (*ChromeProcess, error) {
	chromePath := findChrome()
	if chromePath == "" {
		return nil, errors.New("chrome executable not found")
	}

	userDataDir, err := os.MkdirTemp("", "dom_tail_chrome_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	cmd := exec.Command(chromePath, chromeArgs(port, userDataDir, extraArgs)...)
	if err := cmd.Start(); err != nil {
		_ = os.RemoveAll(userDataDir)
		return nil, fmt.Errorf("failed to start chrome: %w", err)
	}

	return &ChromeProcess{
		Cmd:         cmd,
		Port:        port,
		UserDataDir: userDataDir,
	}, nil
}

// Stop kills Chrome and removes its profile directory.
func (cp *ChromeProcess) Stop() error {
	if cp.Cmd != nil && cp.Cmd.Process != nil {
		if err := cp.Cmd.Process.Kill(); err != nil {
			return fmt.Errorf("failed to kill chrome: %w", err)
		}
		_ = cp.Cmd.Wait()
	}

	if cp.UserDataDir != "" {
		_ = os.RemoveAll(cp.UserDataDir)
	}
	return nil
}

// PID returns the process ID of the Chrome instance, or 0.
func (cp *ChromeProcess) PID() int {
	if cp.Cmd != nil && cp.Cmd.Process != nil {
		return cp.Cmd.Process.Pid
	}
	return 0
}

// chromeCandidates lists well-known install locations for goos.
func chromeCandidates(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			filepath.Join(os.Getenv("HOME"), "Applications/Google Chrome.app/Contents/MacOS/Google Chrome"),
		}
	case "linux":
		return []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
		}
	case "windows":
		var paths []string
		for _, env := range []string{"LOCALAPPDATA", "PROGRAMFILES", "PROGRAMFILES(X86)"} {
			paths = append(paths, filepath.Join(os.Getenv(env), "Google", "Chrome", "Application", "chrome.exe"))
		}
		return paths
	}
	return nil
}

// chromeBinaries are looked up in PATH when no candidate exists.
var chromeBinaries = []string{"google-chrome", "chrome", "chromium"}

// findChrome locates the Chrome executable, or returns "".
func findChrome() string {
	for _, path := range chromeCandidates(runtime.GOOS) {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	for _, name := range chromeBinaries {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
