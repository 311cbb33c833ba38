package ctl

import (
	"fmt"
	"strings"
	"time"
)

// Build-time variables set via -ldflags.
var (
	Version   = "dev"
	GoVersion = "unknown"
)

type daemonVersion struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	BuiltAt   string `json:"built_at"`

	// Filled from /api/status so a version report pins down which
	// recording session answered.
	Session       string `json:"session,omitempty"`
	State         string `json:"state,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds,omitempty"`
}

func fetchDaemonVersion(baseURL string) (daemonVersion, error) {
	var v daemonVersion
	if err := getJSON(baseURL, "/api/version", &v); err != nil {
		return v, err
	}
	var s StatusResponse
	if err := getJSON(baseURL, "/api/status", &s); err == nil {
		v.Session, v.State, v.UptimeSeconds = s.Session, s.State, s.UptimeSeconds
	}
	return v, nil
}

// VersionInfo prints the wavctl build next to the build and session of the
// daemon it talks to.
func VersionInfo(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")
	daemon, err := fetchDaemonVersion(baseURL)

	if jsonOutput {
		resp := map[string]any{
			"cli": map[string]any{"version": Version, "go_version": GoVersion},
		}
		if err != nil {
			resp["daemon_error"] = err.Error()
		} else {
			resp["daemon"] = daemon
		}
		return printJSON(resp)
	}

	field := func(key, val string) {
		fmt.Printf("  %-12s %s\n", colorize(dim, key+":"), val)
	}

	fmt.Println()
	fmt.Println(header("  WAV RECORDER VERSION"))
	fmt.Println(rule(38))
	field("wavctl", fmt.Sprintf("%s (%s)", Version, GoVersion))
	if err != nil {
		field("wavrecd", colorize(red, "unreachable: "+err.Error()))
		fmt.Println()
		return nil
	}
	field("wavrecd", fmt.Sprintf("%s (%s)", daemon.Version, daemon.GoVersion))
	field("Built", daemon.BuiltAt)
	if daemon.Session != "" {
		field("Session", daemon.Session)
		field("State", fmt.Sprintf("%s, up %s",
			colorize(stateColor(daemon.State), daemon.State),
			formatDuration(time.Duration(daemon.UptimeSeconds)*time.Second)))
	}
	if daemon.Version != Version {
		field("Note", colorize(yellow, "wavctl and wavrecd versions differ"))
	}
	fmt.Println()
	return nil
}
