package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ifn-colombia/conglomerados/internal/geo"
	"github.com/ifn-colombia/conglomerados/pkg/api"
)

// parsePagina reconciles page and offset query parameters. Page wins; when
// both are present they must agree, otherwise the request is rejected rather
// than silently picking one.
func parsePagina(r *http.Request) (api.ListOptions, error) {
	q := r.URL.Query()
	opts := api.ListOptions{Busqueda: q.Get("busqueda")}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			return opts, api.Validationf("limit inválido: %q", raw)
		}
		limit = v
	}
	opts.Limit = limit

	var page, offset int
	hayPage, hayOffset := q.Get("page") != "", q.Get("offset") != ""
	if hayPage {
		v, err := strconv.Atoi(q.Get("page"))
		if err != nil || v < 1 {
			return opts, api.Validationf("page inválido: %q", q.Get("page"))
		}
		page = v
	}
	if hayOffset {
		v, err := strconv.Atoi(q.Get("offset"))
		if err != nil || v < 0 {
			return opts, api.Validationf("offset inválido: %q", q.Get("offset"))
		}
		offset = v
	}

	switch {
	case hayPage && hayOffset:
		l := limit
		if l == 0 {
			l = 20
		}
		if offset != (page-1)*l {
			return opts, api.Validationf("page y offset son inconsistentes").
				Con("page", page).Con("offset", offset)
		}
		opts.Page = page
	case hayPage:
		opts.Page = page
	case hayOffset:
		l := limit
		if l == 0 {
			l = 20
		}
		opts.Page = offset/l + 1
	}
	return opts, nil
}

func (s *Server) listar(w http.ResponseWriter, r *http.Request) {
	opts, err := parsePagina(r)
	if err != nil {
		s.escribirError(w, err)
		return
	}
	pagina, err := s.svc.Listar(r.Context(), opts)
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, pagina)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, c)
}

func (s *Server) porCodigo(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.GetPorCodigo(r.Context(), chi.URLParam(r, "codigo"))
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, c)
}

func (s *Server) porEstado(w http.ResponseWriter, r *http.Request) {
	estado, err := api.ParseEstado(chi.URLParam(r, "estado"))
	if err != nil {
		s.escribirError(w, err)
		return
	}
	lista, err := s.svc.PorEstado(r.Context(), estado)
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, map[string]any{"data": lista, "total": len(lista)})
}

func (s *Server) porMunicipio(w http.ResponseWriter, r *http.Request) {
	lista, err := s.svc.PorMunicipio(r.Context(), chi.URLParam(r, "municipioId"))
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, map[string]any{"data": lista, "total": len(lista)})
}

func (s *Server) porDepartamento(w http.ResponseWriter, r *http.Request) {
	lista, err := s.svc.PorDepartamento(r.Context(), chi.URLParam(r, "departamentoId"))
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, map[string]any{"data": lista, "total": len(lista)})
}

// misAsignados lists the conglomerados dispatched to the caller as brigade
// chief, oldest assignment first.
func (s *Server) misAsignados(w http.ResponseWriter, r *http.Request) {
	u := usuarioDe(r.Context())
	lista, err := s.svc.PorJefeBrigada(r.Context(), u.ID)
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, map[string]any{"data": lista, "total": len(lista)})
}

// misRevisiones lists the conglomerados the caller currently has under
// review.
func (s *Server) misRevisiones(w http.ResponseWriter, r *http.Request) {
	u := usuarioDe(r.Context())
	lista, err := s.svc.PorRevisor(r.Context(), u.ID)
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, map[string]any{"data": lista, "total": len(lista)})
}

func (s *Server) vencidos(w http.ResponseWriter, r *http.Request) {
	lista, err := s.svc.Vencidos(r.Context(), time.Now())
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, map[string]any{"data": lista, "total": len(lista)})
}

func (s *Server) estadisticas(w http.ResponseWriter, r *http.Request) {
	est, err := s.svc.Estadisticas(r.Context())
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, est)
}

func (s *Server) generarLote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cantidad int `json:"cantidad"`
	}
	if err := leerJSON(r, &req); err != nil {
		s.escribirError(w, err)
		return
	}
	u := usuarioDe(r.Context())
	lote, err := s.svc.GenerarLote(r.Context(), u.ID, req.Cantidad)
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusCreated, lote)
}

func (s *Server) asignarLote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CoordinadorID string `json:"coordinador_id"`
		Cantidad      int    `json:"cantidad"`
		PlazoDias     int    `json:"plazo_dias"`
	}
	if err := leerJSON(r, &req); err != nil {
		s.escribirError(w, err)
		return
	}
	u := usuarioDe(r.Context())
	lote, err := s.svc.AsignarLote(r.Context(), u.ID, req.CoordinadorID, req.Cantidad, req.PlazoDias)
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, lote)
}

func (s *Server) aprobar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MunicipioID string `json:"municipio_id"`
	}
	if err := leerJSON(r, &req); err != nil {
		s.escribirError(w, err)
		return
	}
	u := usuarioDe(r.Context())
	c, err := s.svc.Aprobar(r.Context(), chi.URLParam(r, "id"), u.ID, req.MunicipioID)
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, c)
}

func (s *Server) rechazar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Razon string `json:"razon"`
	}
	if err := leerJSON(r, &req); err != nil {
		s.escribirError(w, err)
		return
	}
	u := usuarioDe(r.Context())
	c, err := s.svc.Rechazar(r.Context(), chi.URLParam(r, "id"), u.ID, req.Razon)
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, c)
}

func (s *Server) cambiarEstado(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Estado string `json:"estado"`
	}
	if err := leerJSON(r, &req); err != nil {
		s.escribirError(w, err)
		return
	}
	c, err := s.svc.CambiarEstado(r.Context(), chi.URLParam(r, "id"), api.Estado(req.Estado))
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, c)
}

func (s *Server) asignarAJefe(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JefeBrigadaID string `json:"jefe_brigada_id"`
	}
	if err := leerJSON(r, &req); err != nil {
		s.escribirError(w, err)
		return
	}
	c, err := s.svc.AsignarAJefe(r.Context(), chi.URLParam(r, "id"), req.JefeBrigadaID)
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, c)
}

func (s *Server) marcarConBrigada(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.MarcarConBrigada(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, c)
}

func (s *Server) marcarNoEstablecido(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Razon string `json:"razon"`
	}
	if err := leerJSON(r, &req); err != nil {
		s.escribirError(w, err)
		return
	}
	c, err := s.svc.MarcarNoEstablecido(r.Context(), chi.URLParam(r, "id"), req.Razon)
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, c)
}

func (s *Server) desactivar(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Motivo string `json:"motivo"`
	}
	// Body is optional here.
	_ = leerJSON(r, &req)

	c, err := s.svc.Desactivar(r.Context(), chi.URLParam(r, "id"), req.Motivo)
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, c)
}

func (s *Server) reactivar(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Reactivar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, c)
}

func (s *Server) eliminar(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Eliminar(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, map[string]any{"eliminado": true})
}

func (s *Server) subparcelas(w http.ResponseWriter, r *http.Request) {
	subs, err := s.svc.Subparcelas(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, map[string]any{"data": subs, "total": len(subs)})
}

// coordenada accepts a JSON number in decimal degrees or a DMS string
// (`4°34'15.2"N`) taken straight from a field GPS unit.
type coordenada struct {
	valor *float64
}

func (c *coordenada) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := geo.ParseCoordenada(s)
		if err != nil {
			return err
		}
		c.valor = &v
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	c.valor = &v
	return nil
}

func (s *Server) registrarEstablecimiento(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SeEstablecio       bool       `json:"se_establecio"`
		Latitud            coordenada `json:"latitud_establecida"`
		Longitud           coordenada `json:"longitud_establecida"`
		ErrorGPS           *float64   `json:"error_gps_establecido"`
		RazonNoEstablecida string     `json:"razon_no_establecida"`
		Observaciones      string     `json:"observaciones"`
	}
	if err := leerJSON(r, &req); err != nil {
		s.escribirError(w, err)
		return
	}
	datos := api.EstablecimientoDatos{
		SeEstablecio:        req.SeEstablecio,
		LatitudEstablecida:  req.Latitud.valor,
		LongitudEstablecida: req.Longitud.valor,
		ErrorGPS:            req.ErrorGPS,
		RazonNoEstablecida:  req.RazonNoEstablecida,
		Observaciones:       req.Observaciones,
	}
	sp, err := s.svc.RegistrarEstablecimiento(r.Context(), chi.URLParam(r, "id"), datos)
	if err != nil {
		s.escribirError(w, err)
		return
	}
	escribirJSON(w, http.StatusOK, sp)
}

// climaDe proxies the weather provider for the conglomerado's coordinates.
func (s *Server) climaDe(w http.ResponseWriter, r *http.Request) {
	if s.clima == nil {
		s.escribirError(w, api.Dependency(nil, "servicio de clima no configurado"))
		return
	}
	c, err := s.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.escribirError(w, err)
		return
	}
	reporte, err := s.clima.Reporte(r.Context(), c.Latitud, c.Longitud)
	if err != nil {
		s.escribirError(w, api.Dependency(err, "consultando el clima"))
		return
	}
	escribirJSON(w, http.StatusOK, reporte)
}
