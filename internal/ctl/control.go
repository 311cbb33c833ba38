package ctl

import "strings"

// Cancel asks the daemon to stop the recording. Buffered samples are flushed
// and the file is closed before the daemon exits.
func Cancel(baseURL string, jsonOutput bool) error {
	baseURL = strings.TrimRight(baseURL, "/")

	var result commandResult
	if err := postJSON(baseURL, "/api/cancel", nil, &result); err != nil {
		return err
	}
	return printResult(result, "CANCELLED", jsonOutput)
}
