package main

import (
	"context"
	"flag"
	"log/slog"

	"flowengine/impl/core"
	"flowengine/internal/config"
	repository "flowengine/internal/database"
	"flowengine/internal/http-server/api"
	"flowengine/internal/lib/logger"
	"flowengine/internal/lib/sl"
	"flowengine/internal/outbound"
	"flowengine/internal/outbound/gmail"
	"flowengine/internal/outbound/telegram"
	"flowengine/internal/outbound/whatsapp"
	"flowengine/internal/service/adapter"
	"flowengine/internal/service/flows"
	"flowengine/internal/service/internalnode"
	"flowengine/internal/service/nodeident"
	"flowengine/internal/service/scheduler"
	"flowengine/internal/service/trigger"
	"flowengine/internal/service/userstate"
	"flowengine/internal/service/validation"
	"flowengine/internal/service/variables"
	"flowengine/internal/ws"
)

func main() {

	configPath := flag.String("conf", "config.yml", "path to config file")
	flag.Parse()

	conf := config.MustLoad(*configPath)
	lg := logger.SetupLogger(conf.Env, conf.Loki.URL, conf.OrgID, conf.Debug)

	lg.Info("starting flow engine", slog.String("env", conf.Env))
	lg.Debug("debug messages enabled")

	db, err := repository.NewMongoClient(conf, lg)
	if err != nil {
		lg.Error("mongo client", sl.Err(err))
		return
	}
	lg.With(
		slog.String("host", conf.Mongo.Host),
		slog.String("port", conf.Mongo.Port),
		slog.String("database", conf.Mongo.Database),
	).Info("mongo client initialized")

	hub := ws.NewHub(lg)
	go hub.Run()

	dispatcher := outbound.NewDispatcher(lg)
	dispatcher.SetBroadcaster(hub)

	if conf.Telegram.Enabled && conf.Telegram.ApiKey != "" {
		tg, err := telegram.New(conf.Telegram.ApiKey, lg)
		if err != nil {
			lg.Error("telegram renderer", sl.Err(err))
		} else {
			dispatcher.Register("telegram", tg)
		}
	}
	if conf.WhatsApp.ConnectorURL != "" {
		dispatcher.Register("whatsapp", whatsapp.New(conf.WhatsApp.ConnectorURL, conf.WhatsApp.ApiKey, lg))
	}
	if conf.Gmail.CredentialsFile != "" {
		gm, err := gmail.New(context.Background(), conf.Gmail.CredentialsFile, conf.Gmail.TokenFile, conf.Gmail.Sender, lg)
		if err != nil {
			lg.Error("gmail renderer", sl.Err(err))
		} else {
			dispatcher.Register("email", gm)
		}
	}

	vars := variables.New(db, lg)
	processor := internalnode.New(vars, lg)
	identifier := nodeident.New(db, processor, dispatcher, lg)
	matcher := trigger.New(db, lg)
	validator := validation.New(lg)
	engine := userstate.New(db, matcher, validator, identifier, vars, lg)

	handler := core.New(lg)
	handler.SetRepository(db)
	handler.SetFlowService(flows.New(db, lg))
	handler.SetAdapter(adapter.New(lg))
	handler.SetEngine(engine)
	if err = handler.Init(context.Background()); err != nil {
		lg.Error("core init", sl.Err(err))
		return
	}

	sched := scheduler.New(db, engine, conf.Scheduler.TickSeconds, lg)
	if err = sched.Start(); err != nil {
		lg.Error("scheduler start", sl.Err(err))
		return
	}
	defer sched.Stop()

	// *** blocking start with http server ***
	err = api.New(conf, lg, handler, hub)
	if err != nil {
		lg.Error("server start", sl.Err(err))
		return
	}
	lg.Error("service stopped")
}
