package ctl

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// LogsOptions configures the logs command.
type LogsOptions struct {
	Level string
	Limit int
	Tail  bool
	JSON  bool
}

type logEntry struct {
	TS        string `json:"ts"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Component string `json:"component"`
}

// Logs shows recent daemon log messages, or streams them live with --tail.
func Logs(baseURL string, opts LogsOptions) error {
	baseURL = strings.TrimRight(baseURL, "/")

	if opts.Tail {
		return Watch(baseURL, WatchOptions{
			Filter: []string{"log"},
			JSON:   opts.JSON,
		})
	}

	q := url.Values{}
	if opts.Level != "" {
		q.Set("level", opts.Level)
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	path := "/api/logs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp struct {
		Logs []logEntry `json:"logs"`
	}
	if err := getJSON(baseURL, path, &resp); err != nil {
		return err
	}
	if opts.JSON {
		return printJSON(resp)
	}

	fmt.Println()
	fmt.Println(header("  DAEMON LOGS"))
	fmt.Println(rule(70))

	if len(resp.Logs) == 0 {
		fmt.Println("  No log entries found.")
	}
	for _, e := range resp.Logs {
		ts := e.TS
		if t, err := time.Parse(time.RFC3339Nano, e.TS); err == nil {
			ts = t.Local().Format("15:04:05")
		}
		src := ""
		if e.Component != "" {
			src = colorize(dim, "["+e.Component+"] ")
		}
		fmt.Printf("  %s %s  %s%s\n", ts, formatLogLevel(e.Level), src, e.Message)
	}
	fmt.Println()
	return nil
}
