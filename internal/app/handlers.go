package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/large-farva/wav-recorder/internal/event"
	"github.com/large-farva/wav-recorder/internal/logging"
	"github.com/large-farva/wav-recorder/internal/storage"
)

const cancelTimeout = time.Second

func (a *App) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealthz)
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/stats", a.handleStats)
	mux.HandleFunc("/api/config", a.handleConfig)
	mux.HandleFunc("/api/version", a.handleVersion)
	mux.HandleFunc("/api/system", a.handleSystem)
	mux.HandleFunc("/api/logs", a.handleLogs)
	mux.HandleFunc("/api/recordings", a.handleRecordings)
	mux.HandleFunc("/api/recordings/repair", a.handleRepair)
	mux.HandleFunc("/api/cancel", a.handleCancel)
	mux.Handle("/ws", a.hub.Handler())
	if a.metrics != nil {
		mux.Handle("/metrics", a.metrics.Handler())
	}
	return mux
}

func (a *App) handleHealthz(w http.ResponseWriter, r *http.Request) {
	// If the client asks for JSON, return component-level health checks.
	if r.Header.Get("Accept") == "application/json" {
		a.handleHealthDetailed(w, r)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (a *App) handleHealthDetailed(w http.ResponseWriter, _ *http.Request) {
	checks := map[string]any{}
	allOK := true

	if a.store != nil {
		tmp := filepath.Join(a.store.Dir(), ".healthcheck")
		if err := os.WriteFile(tmp, []byte("ok"), 0o644); err != nil {
			checks["data_dir"] = map[string]any{"ok": false, "error": err.Error()}
			allOK = false
		} else {
			_ = os.Remove(tmp)
			checks["data_dir"] = map[string]any{"ok": true, "path": a.store.Dir()}
		}
	}

	state := a.State()
	stateOK := state != "FAILED"
	checks["recorder"] = map[string]any{"ok": stateOK, "state": state}
	allOK = allOK && stateOK

	// Drops are expected under load; report them without failing the check.
	checks["queue"] = map[string]any{
		"ok":       true,
		"capacity": a.queue.Cap(),
		"pending":  a.queue.Len(),
		"dropped":  a.queue.Dropped(),
	}

	status := http.StatusOK
	if !allOK {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"healthy": allOK,
		"checks":  checks,
	})
}

func (a *App) handleStatus(w http.ResponseWriter, _ *http.Request) {
	rate := uint32(a.cfg.Recorder.SampleRate)
	dataSize := a.dataSize.Load()

	resp := map[string]any{
		"name":             "wav-recorder",
		"session":          a.session.String(),
		"state":            a.State(),
		"uptime_seconds":   int64(time.Since(a.startedAt).Seconds()),
		"file":             a.fileName,
		"sample_rate":      rate,
		"data_size":        dataSize,
		"samples":          dataSize / 2,
		"duration_seconds": float64(dataSize/2) / float64(rate),
		"queue_dropped":    a.queue.Dropped(),
		"ws_clients":       a.hub.Clients(),
		"mqtt":             a.mqtt != nil,
	}
	if a.rec != nil {
		resp["ticks"] = a.rec.Ticks()
		resp["flushes"] = a.rec.Flushes()
	}
	if a.store != nil {
		resp["recordings_dir"] = a.store.Dir()
		if du := diskUsage(a.store.Dir(), rate*2); du != nil {
			resp["disk"] = du
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleStats(w http.ResponseWriter, _ *http.Request) {
	snap := a.stats.Snapshot()
	resp := map[string]any{
		"session":    a.session.String(),
		"sample_min": snap.Min,
		"sample_max": snap.Max,
		"samples":    snap.Samples,
		"dropped":    a.queue.Dropped(),
	}
	if snap.Samples == 0 {
		resp["sample_min"] = nil
		resp["sample_max"] = nil
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"path":   a.configPath,
		"config": a.cfg,
	})
}

func (a *App) handleVersion(w http.ResponseWriter, _ *http.Request) {
	goVersion := GoVersion
	if goVersion == "unknown" {
		goVersion = runtime.Version()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"version":    Version,
		"go_version": goVersion,
		"built_at":   BuiltAt,
	})
}

func (a *App) handleSystem(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"go_version":  runtime.Version(),
		"os":          runtime.GOOS,
		"arch":        runtime.GOARCH,
		"data_root":   a.cfg.Data.Root,
		"config_path": a.configPath,
		"source":      a.cfg.Source.Kind,
		"keyboard":    a.keyboard,
		"mqtt":        a.mqtt != nil,
		"metrics":     a.metrics != nil,
	}
	if a.store != nil {
		if du := diskUsage(a.store.Dir(), uint32(a.cfg.Recorder.SampleRate)*2); du != nil {
			resp["disk"] = du
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) handleLogs(w http.ResponseWriter, r *http.Request) {
	if a.logs == nil {
		writeJSON(w, http.StatusOK, map[string]any{"logs": []logging.Entry{}})
		return
	}
	floor := zerolog.TraceLevel
	if s := r.URL.Query().Get("level"); s != "" {
		lvl, err := zerolog.ParseLevel(s)
		if err != nil {
			jsonError(w, "invalid level", http.StatusBadRequest)
			return
		}
		floor = lvl
	}
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": a.logs.Entries(floor, limit)})
}

func (a *App) handleRecordings(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		jsonError(w, "recordings folder not open", http.StatusServiceUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
		recs, err := a.store.List()
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"dir":        a.store.Dir(),
			"active":     a.fileName,
			"recordings": recs,
		})

	case http.MethodDelete:
		name := r.URL.Query().Get("name")
		if name == "" {
			jsonError(w, "name parameter required", http.StatusBadRequest)
			return
		}
		if name == a.fileName && a.State() != "STOPPED" {
			jsonError(w, "recording in progress", http.StatusConflict)
			return
		}
		if err := a.store.Delete(name); err != nil {
			writeStorageError(w, err)
			return
		}
		a.log.Info().Str("file", name).Msg("recording deleted")
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "deleted " + name})

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *App) handleRepair(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if a.store == nil {
		jsonError(w, "recordings folder not open", http.StatusServiceUnavailable)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		jsonError(w, "name parameter required", http.StatusBadRequest)
		return
	}
	if name == a.fileName && a.State() != "STOPPED" {
		jsonError(w, "recording in progress", http.StatusConflict)
		return
	}
	size, err := a.store.Repair(name)
	if err != nil {
		writeStorageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "name": name, "data_size": size})
}

func (a *App) handleCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), cancelTimeout)
	defer cancel()
	if err := a.queue.Put(ctx, event.Cancel); err != nil {
		jsonError(w, "cancel not accepted: "+err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "message": "cancel requested"})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]any{
		"ok":    false,
		"error": msg,
	})
}

func writeStorageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidName):
		jsonError(w, "invalid filename", http.StatusBadRequest)
	case errors.Is(err, storage.ErrNotFound):
		jsonError(w, "file not found", http.StatusNotFound)
	case errors.Is(err, storage.ErrNotRecording):
		jsonError(w, "not a recording this daemon can repair", http.StatusUnprocessableEntity)
	default:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}
