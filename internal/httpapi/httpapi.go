// Package httpapi exposes the conglomerado workflow over HTTP. Handlers stay
// thin: decode, call the service, map the domain error to a status code. All
// authorization decisions beyond token verification and role gates live in
// the engine.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/ifn-colombia/conglomerados/internal/clima"
	"github.com/ifn-colombia/conglomerados/internal/identity"
	"github.com/ifn-colombia/conglomerados/pkg/api"
)

// Server bundles the collaborators of the HTTP surface.
type Server struct {
	svc         api.Service
	verificador identity.Verificador
	roles       identity.Roles
	clima       clima.Proveedor
	log         *logrus.Logger
}

// NewServer builds the HTTP surface. clima may be nil, in which case the
// weather endpoint answers 503.
func NewServer(svc api.Service, verificador identity.Verificador, roles identity.Roles, prov clima.Proveedor, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.New()
	}
	return &Server{svc: svc, verificador: verificador, roles: roles, clima: prov, log: log}
}

// Router assembles the route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.health)
	r.Get("/health/simple", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.autenticar)

		r.Route("/conglomerados", func(r chi.Router) {
			r.Get("/", s.listar)
			r.Get("/estadisticas", s.estadisticas)
			r.Get("/mis-asignados", s.misAsignados)
			r.Get("/mis-revisiones", s.misRevisiones)
			r.Get("/estado/{estado}", s.porEstado)
			r.Get("/codigo/{codigo}", s.porCodigo)
			r.Get("/municipio/{municipioId}", s.porMunicipio)
			r.Get("/departamento/{departamentoId}", s.porDepartamento)

			r.Group(func(r chi.Router) {
				r.Use(s.requiereRol(identity.RolCoordinadorIFN))
				r.Get("/vencidos", s.vencidos)
				r.Post("/generar-lote", s.generarLote)
				r.Post("/asignar-lote", s.asignarLote)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.get)
				r.Get("/subparcelas", s.subparcelas)
				r.Get("/clima", s.climaDe)
				r.Put("/marcar-con-brigada", s.marcarConBrigada)

				r.Group(func(r chi.Router) {
					r.Use(s.requiereRol(identity.RolCoordinadorIFN))
					r.Post("/asignar", s.asignarAJefe)
					r.Put("/aprobar", s.aprobar)
					r.Put("/rechazar", s.rechazar)
					r.Patch("/estado", s.cambiarEstado)
					r.Put("/no-establecido", s.marcarNoEstablecido)
					r.Put("/desactivar", s.desactivar)
					r.Put("/reactivar", s.reactivar)
					r.Delete("/", s.eliminar)
				})
			})
		})

		r.With(s.requiereRol(identity.RolJefeBrigada)).
			Patch("/subparcelas/{id}/establecimiento", s.registrarEstablecimiento)
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	escribirJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"servicio": "conglomerados",
		"hora":     time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		inicio := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.WithFields(logrus.Fields{
			"metodo":   r.Method,
			"ruta":     r.URL.Path,
			"status":   ww.Status(),
			"duracion": time.Since(inicio).String(),
		}).Debug("petición atendida")
	})
}
