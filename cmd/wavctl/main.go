// Wavctl is the command-line client for monitoring and controlling a running
// wavrecd instance. It connects over HTTP and WebSocket to query status,
// manage recordings and stream live events from the daemon.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/large-farva/wav-recorder/internal/ctl"
)

func main() {
	var (
		host    = pflag.StringP("host", "H", "http://127.0.0.1:8080", "wavrecd URL (e.g. http://192.168.8.1:8080)")
		jsonOut = pflag.Bool("json", false, "Output raw JSON instead of formatted text")
		filter  = pflag.StringSlice("filter", nil, "Event types to show in watch (e.g. --filter state,flush)")
	)

	// Stop parsing global flags at the command name so command flags like
	// --delete are not rejected.
	pflag.CommandLine.SetInterspersed(false)
	pflag.Parse()

	if pflag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	cmd := pflag.Arg(0)
	subArgs := pflag.Args()[1:]

	var err error
	switch cmd {
	// ── Query commands ────────────────────────────────────────────
	case "status":
		err = ctl.Status(*host, *jsonOut)

	case "health":
		err = ctl.Health(*host, *jsonOut)

	case "version":
		err = ctl.VersionInfo(*host, *jsonOut)

	case "config":
		err = ctl.Config(*host, *jsonOut)

	case "stats":
		err = ctl.Stats(*host, *jsonOut)

	case "recordings":
		opts := ctl.RecordingsOptions{JSON: *jsonOut}
		recFlags := pflag.NewFlagSet("recordings", pflag.ContinueOnError)
		recFlags.StringVar(&opts.Delete, "delete", "", "Delete a recording by file name")
		recFlags.StringVar(&opts.Repair, "repair", "", "Fix the header sizes of a recording")
		if err := recFlags.Parse(subArgs); err != nil {
			os.Exit(2)
		}
		if opts.Delete != "" && opts.Repair != "" {
			fmt.Fprintln(os.Stderr, "error: --delete and --repair are exclusive")
			os.Exit(2)
		}
		err = ctl.Recordings(*host, opts)

	case "logs":
		opts := ctl.LogsOptions{JSON: *jsonOut}
		logFlags := pflag.NewFlagSet("logs", pflag.ContinueOnError)
		logFlags.StringVar(&opts.Level, "level", "", "Minimum log level (debug, info, warn, error)")
		logFlags.IntVar(&opts.Limit, "limit", 0, "Limit number of log entries shown")
		logFlags.BoolVar(&opts.Tail, "tail", false, "Stream live log events (like watch --filter log)")
		_ = logFlags.Parse(subArgs)
		err = ctl.Logs(*host, opts)

	case "system-info":
		err = ctl.SystemInfo(*host, *jsonOut)

	// ── Control commands ──────────────────────────────────────────
	case "cancel":
		err = ctl.Cancel(*host, *jsonOut)

	// ── Live streaming ────────────────────────────────────────────
	case "watch":
		err = ctl.Watch(*host, ctl.WatchOptions{
			Filter: *filter,
			JSON:   *jsonOut,
		})

	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Print(`
  wavctl: WAV recorder control CLI

  USAGE
    wavctl [flags] <command> [command-flags]

  COMMANDS (query)
    status          Show recorder state, file, and progress
    health          Check daemon and component health
    version         Show CLI and daemon version information
    config          Show the daemon's running configuration
    stats           Show the live sample min/max
    recordings      List recorded WAV files
    logs            Show recent daemon log messages
    system-info     Show runtime and disk information

  COMMANDS (control)
    cancel          Stop recording; buffered samples are flushed first

  COMMANDS (live)
    watch           Stream live events from the daemon (Ctrl-C to stop)

  GLOBAL FLAGS
    -H, --host URL      Daemon base URL (default: http://127.0.0.1:8080)
        --json          Output raw JSON instead of formatted text
        --filter TYPE   Event types to show in watch (comma-separated)

  COMMAND FLAGS
    recordings:
        --delete NAME       Delete a recording by file name
        --repair NAME       Fix the header sizes of a recording

    logs:
        --level LEVEL       Minimum log level (debug, info, warn, error)
        --limit N           Limit number of log entries shown
        --tail              Stream live log events

  EXAMPLES
    wavctl status
    wavctl --json stats
    wavctl --host http://192.168.8.1:8080 watch
    wavctl recordings
    wavctl recordings --repair 2026_03_07_09_05_02.wav
    wavctl recordings --delete 2026_03_07_09_05_02.wav
    wavctl logs --level warn --limit 20
    wavctl cancel
    wavctl watch --filter state,flush

`)
}
