package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyStage      = "stage"
	KeyCategory   = "category"
	KeyPath       = "path"
	KeyFile       = "file"
	KeyTool       = "tool"
	KeyMode       = "mode"
	KeyRunID      = "run_id"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Stage(name string) slog.Attr     { return slog.String(KeyStage, name) }
func Category(c string) slog.Attr     { return slog.String(KeyCategory, c) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func File(f string) slog.Attr         { return slog.String(KeyFile, f) }
func Tool(t string) slog.Attr         { return slog.String(KeyTool, t) }
func Mode(m string) slog.Attr         { return slog.String(KeyMode, m) }
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
