package sl

import "log/slog"

// Module tags log records with the emitting module name.
func Module(name string) slog.Attr {
	return slog.String("module", name)
}

// Err wraps an error into a slog attribute.
func Err(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// Secret logs only the tail of a sensitive value.
func Secret(key, value string) slog.Attr {
	masked := "****"
	if len(value) > 4 {
		masked = "****" + value[len(value)-4:]
	}
	return slog.String(key, masked)
}
