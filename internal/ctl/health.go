package ctl

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Health checks daemon liveness via GET /healthz, asking for the
// component-level report.
func Health(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	status, body, err := getRaw(baseURL, "/healthz", "application/json")
	if err != nil {
		if jsonOutput {
			return printJSON(map[string]any{"healthy": false, "url": baseURL, "error": err.Error()})
		}
		return err
	}

	var report struct {
		Healthy bool                      `json:"healthy"`
		Checks  map[string]map[string]any `json:"checks"`
	}
	if err := json.Unmarshal(body, &report); err != nil {
		report.Healthy = status == 200
	}

	if jsonOutput {
		return printJSON(map[string]any{"healthy": report.Healthy, "url": baseURL, "checks": report.Checks})
	}

	fmt.Println()
	if report.Healthy {
		fmt.Printf("  %s  wavrecd is reachable at %s\n", colorize(green, "HEALTHY"), colorize(dim, baseURL))
	} else {
		fmt.Printf("  %s  wavrecd returned HTTP %d at %s\n", colorize(red, "UNHEALTHY"), status, colorize(dim, baseURL))
	}
	for _, name := range []string{"data_dir", "recorder", "queue"} {
		c, ok := report.Checks[name]
		if !ok {
			continue
		}
		mark := colorize(green, "ok")
		if okv, _ := c["ok"].(bool); !okv {
			mark = colorize(red, "fail")
		}
		detail := ""
		switch name {
		case "data_dir":
			if p, ok := c["path"].(string); ok {
				detail = p
			} else if e, ok := c["error"].(string); ok {
				detail = e
			}
		case "recorder":
			detail, _ = c["state"].(string)
		case "queue":
			dropped, _ := c["dropped"].(float64)
			detail = fmt.Sprintf("%.0f ticks dropped", dropped)
		}
		fmt.Printf("    %-12s %-6s %s\n", colorize(dim, name+":"), mark, colorize(dim, detail))
	}
	fmt.Println()

	return nil
}
