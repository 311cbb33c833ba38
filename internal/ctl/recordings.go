package ctl

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// RecordingsOptions configures the recordings command.
type RecordingsOptions struct {
	Delete string
	Repair string
	JSON   bool
}

type recording struct {
	Name            string    `json:"name"`
	Size            int64     `json:"size"`
	ModTime         time.Time `json:"mod_time"`
	SampleRate      uint32    `json:"sample_rate"`
	Samples         uint32    `json:"samples"`
	DurationSeconds float64   `json:"duration_seconds"`
	Valid           bool      `json:"valid"`
}

type commandResult struct {
	OK       bool   `json:"ok"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Name     string `json:"name,omitempty"`
	DataSize uint32 `json:"data_size,omitempty"`
}

// Recordings lists, deletes or repairs recordings on the daemon.
func Recordings(baseURL string, opts RecordingsOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	if opts.Delete != "" {
		var result commandResult
		if err := deleteJSON(baseURL, "/api/recordings?name="+url.QueryEscape(opts.Delete), &result); err != nil {
			return err
		}
		return printResult(result, "DELETED", opts.JSON)
	}

	if opts.Repair != "" {
		var result commandResult
		if err := postJSON(baseURL, "/api/recordings/repair?name="+url.QueryEscape(opts.Repair), nil, &result); err != nil {
			return err
		}
		if result.Message == "" {
			result.Message = fmt.Sprintf("%s now declares %s of audio data", result.Name, formatBytes(int64(result.DataSize)))
		}
		return printResult(result, "REPAIRED", opts.JSON)
	}

	var resp struct {
		Dir        string      `json:"dir"`
		Active     string      `json:"active"`
		Recordings []recording `json:"recordings"`
	}
	if err := getJSON(baseURL, "/api/recordings", &resp); err != nil {
		return err
	}
	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  RECORDINGS"))
	fmt.Printf("  %s\n", colorize(dim, resp.Dir))

	if len(resp.Recordings) == 0 {
		fmt.Println(rule(24))
		fmt.Println("  No recordings found.")
		fmt.Println()
		return nil
	}

	t := newTable("  ", "Name", "Length", "Rate", "Size", "")
	t.alignRight(1)
	t.alignRight(3)
	for _, r := range resp.Recordings {
		length, rate, note := "?", "?", ""
		if r.Valid {
			length = formatSeconds(r.DurationSeconds)
			rate = fmt.Sprintf("%d Hz", r.SampleRate)
		} else {
			note = colorize(yellow, "unreadable header")
		}
		if r.Name == resp.Active {
			note = colorize(red, "recording")
		}
		t.row(r.Name, length, rate, formatBytes(r.Size), note)
	}
	t.flush()
	fmt.Println()
	return nil
}

func printResult(result commandResult, label string, jsonOutput bool) error {
	if jsonOutput {
		return printJSON(result)
	}
	if result.OK {
		fmt.Printf("\n  %s  %s\n\n", colorize(green, label), result.Message)
	} else {
		fmt.Printf("\n  %s  %s\n\n", colorize(red, "ERROR"), result.Error)
	}
	return nil
}
