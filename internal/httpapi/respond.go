package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ifn-colombia/conglomerados/pkg/api"
)

func escribirJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// escribirError maps a domain error to its HTTP status and writes the error
// envelope. Diagnostic fields from the domain error ride alongside "error".
func (s *Server) escribirError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch api.KindOf(err) {
	case api.KindValidation:
		status = http.StatusBadRequest
	case api.KindUnauthorized:
		status = http.StatusUnauthorized
	case api.KindForbidden, api.KindCapacity:
		status = http.StatusForbidden
	case api.KindNotFound:
		status = http.StatusNotFound
	case api.KindConflict:
		status = http.StatusConflict
	case api.KindDependency:
		status = http.StatusServiceUnavailable
	}

	cuerpo := map[string]any{"error": err.Error()}
	var domErr *api.Error
	if errors.As(err, &domErr) {
		for k, v := range domErr.Detalles {
			cuerpo[k] = v
		}
	}

	switch {
	case status == http.StatusInternalServerError:
		s.log.WithError(err).Error("error interno atendiendo petición")
		cuerpo["error"] = "error interno del servidor"
	case status == http.StatusServiceUnavailable:
		s.log.WithError(err).Warn("colaborador externo no disponible")
	}
	escribirJSON(w, status, cuerpo)
}

func leerJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return api.Validationf("cuerpo JSON inválido: %v", err)
	}
	return nil
}
