package logger

import (
	"log/slog"
	"os"

	"github.com/grafana/loki-client-go/loki"
	slogloki "github.com/samber/slog-loki/v3"
	slogmulti "github.com/samber/slog-multi"
)

const application = "flow-engine"

// SetupLogger builds the root logger for the given environment. When lokiURL
// is set, records are fanned out to a Loki push client in addition to the
// console handler.
func SetupLogger(env, lokiURL, orgID string, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if env == "local" || debug {
		level = slog.LevelDebug
	}

	var console slog.Handler
	switch env {
	case "local":
		console = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	default:
		console = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	handler := console
	if lokiURL != "" {
		if lokiHandler := newLokiHandler(lokiURL, level); lokiHandler != nil {
			handler = slogmulti.Fanout(console, lokiHandler)
		}
	}

	lg := slog.New(handler).With(
		slog.String("application", application),
		slog.String("environment", env),
	)
	if orgID != "" {
		lg = lg.With(slog.String("org_id", orgID))
	}
	return lg
}

func newLokiHandler(url string, level slog.Level) slog.Handler {
	conf, err := loki.NewDefaultConfig(url)
	if err != nil {
		return nil
	}
	client, err := loki.New(conf)
	if err != nil {
		return nil
	}
	return slogloki.Option{Level: level, Client: client}.NewLokiHandler()
}
