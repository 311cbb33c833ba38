package ctl

import (
	"fmt"
	"strings"
)

// StatsResponse mirrors GET /api/stats. Min and Max are nil until the first
// sample.
type StatsResponse struct {
	Session   string  `json:"session"`
	SampleMin *uint32 `json:"sample_min"`
	SampleMax *uint32 `json:"sample_max"`
	Samples   uint64  `json:"samples"`
	Dropped   uint64  `json:"dropped"`
}

// Stats shows the live min/max readings of the current recording.
func Stats(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var resp StatsResponse
	if err := getJSON(baseURL, "/api/stats", &resp); err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  RECORDING STATISTICS"))
	fmt.Println(rule(42))
	if resp.SampleMin == nil || resp.SampleMax == nil {
		fmt.Println("  No samples yet.")
		fmt.Println()
		return nil
	}
	fmt.Printf("  Min:      %4d\n", *resp.SampleMin)
	fmt.Printf("  Max:      %4d\n", *resp.SampleMax)
	fmt.Printf("  Range:    [%s]\n", levelBar(*resp.SampleMin, *resp.SampleMax, 32))
	fmt.Printf("  Samples:  %d\n", resp.Samples)
	fmt.Printf("  Dropped:  %d\n", resp.Dropped)
	fmt.Println()
	return nil
}
