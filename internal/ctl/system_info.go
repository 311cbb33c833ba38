package ctl

import (
	"fmt"
	"strings"
)

// SystemInfo shows runtime and storage information from the daemon.
func SystemInfo(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp struct {
		GoVersion  string `json:"go_version"`
		OS         string `json:"os"`
		Arch       string `json:"arch"`
		DataRoot   string `json:"data_root"`
		ConfigPath string `json:"config_path"`
		Source     string `json:"source"`
		Keyboard   bool   `json:"keyboard"`
		MQTT       bool   `json:"mqtt"`
		Metrics    bool   `json:"metrics"`
		Disk       *struct {
			TotalBytes       uint64  `json:"total_bytes"`
			UsedBytes        uint64  `json:"used_bytes"`
			AvailableBytes   uint64  `json:"available_bytes"`
			RemainingSeconds float64 `json:"remaining_seconds"`
		} `json:"disk"`
	}
	if err := getJSON(baseURL, "/api/system", &resp); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	onOff := func(b bool) string {
		if b {
			return colorize(green, "on")
		}
		return colorize(dim, "off")
	}
	configPath := resp.ConfigPath
	if configPath == "" {
		configPath = colorize(dim, "(defaults)")
	}

	fmt.Println()
	fmt.Println(header("  SYSTEM INFO"))
	fmt.Println(rule(50))
	fmt.Printf("  Go version:  %s\n", resp.GoVersion)
	fmt.Printf("  OS/Arch:     %s/%s\n", resp.OS, resp.Arch)
	fmt.Printf("  Data root:   %s\n", resp.DataRoot)
	fmt.Printf("  Config:      %s\n", configPath)
	fmt.Printf("  Source:      %s\n", resp.Source)
	fmt.Printf("  Keyboard:    %s\n", onOff(resp.Keyboard))
	fmt.Printf("  MQTT:        %s\n", onOff(resp.MQTT))
	fmt.Printf("  Metrics:     %s\n", onOff(resp.Metrics))

	if resp.Disk != nil {
		fmt.Printf("  Disk total:  %s\n", formatBytes(int64(resp.Disk.TotalBytes)))
		fmt.Printf("  Disk used:   %s\n", formatBytes(int64(resp.Disk.UsedBytes)))
		fmt.Printf("  Disk avail:  %s (%s of audio)\n",
			formatBytes(int64(resp.Disk.AvailableBytes)),
			formatSeconds(resp.Disk.RemainingSeconds))
	}
	fmt.Println()
	return nil
}
