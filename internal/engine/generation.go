package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ifn-colombia/conglomerados/internal/geo"
	"github.com/ifn-colombia/conglomerados/pkg/api"
)

// intentosCodigo bounds the collision-retry loop per code. With a 36^6
// keyspace and at most a few thousand rows, hitting it means something is
// deeply wrong with the store.
const intentosCodigo = 10

// GenerarLote creates cantidad new conglomerados with unique codes, random
// in-envelope coordinates and 5 pre-filled subparcelas each, inserting in
// batches. The request is clamped to the headroom left under the live-item
// ceiling; at zero headroom it fails with a capacity error before touching
// the store.
func (s *Servicio) GenerarLote(ctx context.Context, coordID string, cantidad int) (*api.LoteGenerado, error) {
	if coordID == "" {
		return nil, api.Validationf("coordinador requerido")
	}
	if cantidad < 1 || cantidad > MaxGeneracionPorSolicitud {
		return nil, api.Validationf("cantidad debe estar entre 1 y %d", MaxGeneracionPorSolicitud).
			Con("cantidad", cantidad)
	}

	vivos, err := s.store.ContarVivos(ctx)
	if err != nil {
		return nil, api.Dependency(err, "contando conglomerados vivos")
	}
	headroom := s.cfg.maxConglomerados() - vivos
	if headroom <= 0 {
		return nil, api.Capacityf("límite de %d conglomerados alcanzado", s.cfg.maxConglomerados()).
			Con("maximo", s.cfg.maxConglomerados()).
			Con("vivos", vivos)
	}
	if cantidad > headroom {
		s.log.WithFields(logrus.Fields{
			"solicitados": cantidad,
			"headroom":    headroom,
		}).Warn("generación recortada al headroom disponible")
		cantidad = headroom
	}

	resultado := &api.LoteGenerado{}
	for cantidad > 0 {
		n := cantidad
		if n > LoteGeneracion {
			n = LoteGeneracion
		}

		lote, subs, err := s.construirLote(ctx, coordID, n)
		if err != nil {
			return nil, err
		}
		if err := s.store.CrearConglomerados(ctx, lote); err != nil {
			return nil, api.Dependency(err, "insertando conglomerados")
		}
		if err := s.store.CrearSubparcelas(ctx, subs); err != nil {
			return nil, api.Dependency(err, "insertando subparcelas")
		}

		resultado.Conglomerados = append(resultado.Conglomerados, lote...)
		resultado.Creados += len(lote)
		cantidad -= n
	}

	resultado.HeadroomRestante = headroom - resultado.Creados
	s.log.WithFields(logrus.Fields{
		"creados":  resultado.Creados,
		"headroom": resultado.HeadroomRestante,
		"coord":    coordID,
	}).Info("lote de conglomerados generado")
	return resultado, nil
}

// construirLote materializes n fresh conglomerados plus their sub-plots,
// verifying each candidate code against the store before accepting it.
func (s *Servicio) construirLote(ctx context.Context, coordID string, n int) ([]*api.Conglomerado, []*api.Subparcela, error) {
	ahora := s.ahora().UTC()
	vistos := make(map[string]bool, n)

	lote := make([]*api.Conglomerado, 0, n)
	subs := make([]*api.Subparcela, 0, n*api.SubparcelasPorConglomerado)
	for i := 0; i < n; i++ {
		codigo, err := s.codigoLibre(ctx, vistos)
		if err != nil {
			return nil, nil, err
		}
		vistos[codigo] = true

		punto := geo.GenerarCoordenadas()
		c := &api.Conglomerado{
			ID:            uuid.NewString(),
			Codigo:        codigo,
			Latitud:       punto.Latitud,
			Longitud:      punto.Longitud,
			Estado:        api.EstadoSinAsignar,
			Activo:        true,
			CoordinadorID: coordID,
			CreatedAt:     ahora,
			UpdatedAt:     ahora,
		}
		lote = append(lote, c)

		for num, sp := range geo.CoordenadasSubparcelas(punto.Latitud, punto.Longitud) {
			subs = append(subs, &api.Subparcela{
				ID:                      uuid.NewString(),
				ConglomeradoID:          c.ID,
				Num:                     num + 1,
				LatitudPrediligenciada:  sp.Latitud,
				LongitudPrediligenciada: sp.Longitud,
				CreatedAt:               ahora,
				UpdatedAt:               ahora,
			})
		}
	}
	return lote, subs, nil
}

func (s *Servicio) codigoLibre(ctx context.Context, vistos map[string]bool) (string, error) {
	for i := 0; i < intentosCodigo; i++ {
		codigo := geo.GenerarCodigo()
		if vistos[codigo] {
			continue
		}
		existe, err := s.store.ExisteCodigo(ctx, codigo)
		if err != nil {
			return "", api.Dependency(err, "verificando código")
		}
		if !existe {
			return codigo, nil
		}
	}
	return "", api.Dependency(nil, "no se pudo generar un código único tras %d intentos", intentosCodigo)
}
