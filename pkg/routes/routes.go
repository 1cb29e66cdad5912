// Package routes defines the read-only admin API of the socket faults server.
package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"go.faultline.dev/socketfaults/pkg/service/faults"
	"go.faultline.dev/socketfaults/pkg/socket"
)

type Admin struct {
	logger *zap.Logger
	svc    faults.Service
}

type errorResponse struct {
	Error string `json:"error"`
}

func New(r chi.Router, svc faults.Service, logger *zap.Logger) {
	a := &Admin{
		logger: logger,
		svc:    svc,
	}

	r.Get("/healthz", a.Health)
	r.Get("/catalog", a.Catalog)
	r.Route("/scenarios", func(r chi.Router) {
		r.Get("/", a.Scenarios)
		r.Get("/{name}", a.Scenario)
	})
}

func NewRouter(svc faults.Service, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	New(r, svc, logger)
	return r
}

func (a *Admin) Health(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, "OK")
}

func (a *Admin) Catalog(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, a.svc.Catalog())
}

func (a *Admin) Scenarios(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, a.svc.Status())
}

func (a *Admin) Scenario(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := socket.Get(name); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{Error: err.Error()})
		return
	}
	for _, s := range a.svc.Status() {
		if s.Name == name {
			render.JSON(w, r, s)
			return
		}
	}
	a.logger.Debug("scenario is not active", zap.String("scenario", name))
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, errorResponse{Error: "scenario is not active: " + name})
}
