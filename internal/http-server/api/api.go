package api

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"flowengine/internal/config"
	"flowengine/internal/http-server/handlers/errors"
	"flowengine/internal/http-server/handlers/flow"
	"flowengine/internal/http-server/handlers/health"
	"flowengine/internal/http-server/handlers/nodedetail"
	"flowengine/internal/http-server/handlers/webhook"
	"flowengine/internal/http-server/middleware/timeout"
	"flowengine/internal/http-server/middleware/userid"
	"flowengine/internal/lib/sl"
	"flowengine/internal/ws"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	log        *slog.Logger
}

type Handler interface {
	flow.Core
	nodedetail.Core
	webhook.Core
}

func New(conf *config.Config, log *slog.Logger, handler Handler, hub *ws.Hub) error {

	server := Server{
		conf: conf,
		log:  log.With(sl.Module("api.server")),
	}

	router := chi.NewRouter()
	router.Use(timeout.Timeout(30))
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.NotFound(errors.NotFound(log))
	router.MethodNotAllowed(errors.NotAllowed(log))

	router.Get("/health", health.Check())
	router.Post("/webhook/message", webhook.Handle(log, handler))
	router.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(hub, log, w, r)
	})

	router.Group(func(authed chi.Router) {
		authed.Use(userid.New(log))

		authed.Route("/flow", func(r chi.Router) {
			r.Post("/create", flow.Create(log, handler))
			r.Get("/list", flow.List(log, handler))
			r.Get("/detail/{flow_id}", flow.Detail(log, handler))
			r.Put("/update/{flow_id}", flow.Update(log, handler))
			r.Post("/status/{flow_id}", flow.Status(log, handler))
		})

		authed.Route("/node-details", func(r chi.Router) {
			r.Get("/list", nodedetail.List(log, handler))
			r.Get("/category/{category}", nodedetail.ByCategory(log, handler))
			r.Get("/{node_id}", nodedetail.Get(log, handler))
		})
	})

	httpLog := slog.NewLogLogger(log.Handler(), slog.LevelError)
	server.httpServer = &http.Server{
		Handler:  router,
		ErrorLog: httpLog,
	}

	serverAddress := fmt.Sprintf("%s:%s", conf.Listen.Host, conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	server.log.Info("starting api server", slog.String("address", serverAddress))

	return server.httpServer.Serve(listener)
}
