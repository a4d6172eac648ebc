package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ifn-colombia/conglomerados/pkg/api"
)

func sembrarDisponibles(t *testing.T, store *SQLiteStore, n int) []*api.Conglomerado {
	t.Helper()

	base := time.Now().UTC().Add(-time.Duration(n) * time.Minute)
	var lote []*api.Conglomerado
	for i := 0; i < n; i++ {
		c := nuevoConglomerado(codigoSecuencial(i), api.EstadoSinAsignar, base.Add(time.Duration(i)*time.Minute))
		lote = append(lote, c)
	}
	if err := store.CrearConglomerados(context.Background(), lote); err != nil {
		t.Fatalf("sembrar: %v", err)
	}
	return lote
}

func codigoSecuencial(i int) string {
	const digitos = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	return "CONG-SEQ00" + string(digitos[i%len(digitos)])
}

func TestClaimDisponibles_OrdenYEstampado(t *testing.T) {
	store := abrirStore(t)
	ctx := context.Background()
	sembrados := sembrarDisponibles(t, store, 5)

	ahora := time.Now().UTC()
	limite := ahora.Add(15 * 24 * time.Hour)

	claimed, err := store.ClaimDisponibles(ctx, 3, "coord-1", limite, ahora)
	if err != nil {
		t.Fatalf("ClaimDisponibles: %v", err)
	}
	if len(claimed) != 3 {
		t.Fatalf("esperaba 3 asignados, hubo %d", len(claimed))
	}

	// Oldest rows first.
	for i, c := range claimed {
		if c.Codigo != sembrados[i].Codigo {
			t.Fatalf("orden de claim: posición %d fue %s, esperaba %s", i, c.Codigo, sembrados[i].Codigo)
		}
		if c.Estado != api.EstadoEnRevision {
			t.Fatalf("estado tras claim: %s", c.Estado)
		}
		if c.RevisadoPorCoordID != "coord-1" {
			t.Fatalf("revisor no estampado: %q", c.RevisadoPorCoordID)
		}
		if c.FechaLimiteRevision == nil || !c.FechaLimiteRevision.Equal(limite.Truncate(time.Nanosecond)) {
			t.Fatalf("fecha límite no estampada: %v", c.FechaLimiteRevision)
		}
		if c.FechaAsignacionRevision == nil {
			t.Fatalf("fecha de asignación no estampada")
		}
	}

	n, err := store.ContarPorEstado(ctx, api.EstadoSinAsignar)
	if err != nil || n != 2 {
		t.Fatalf("restantes sin_asignar: %d, %v", n, err)
	}
}

func TestClaimDisponibles_MenosQueSolicitado(t *testing.T) {
	store := abrirStore(t)
	ctx := context.Background()
	sembrarDisponibles(t, store, 4)

	ahora := time.Now().UTC()
	claimed, err := store.ClaimDisponibles(ctx, 10, "coord-a", ahora.Add(24*time.Hour), ahora)
	if err != nil {
		t.Fatalf("ClaimDisponibles: %v", err)
	}
	if len(claimed) != 4 {
		t.Fatalf("esperaba drenar los 4 disponibles, hubo %d", len(claimed))
	}

	// A second claim finds an empty pool and succeeds with zero rows.
	vacio, err := store.ClaimDisponibles(ctx, 10, "coord-b", ahora.Add(24*time.Hour), ahora.Add(time.Second))
	if err != nil {
		t.Fatalf("claim sobre pool vacío: %v", err)
	}
	if len(vacio) != 0 {
		t.Fatalf("esperaba 0 asignados, hubo %d", len(vacio))
	}
}

// Two batches claimed for the same coordinator in the same instant must stay
// disjoint: each call returns only the rows it stamped itself.
func TestClaimDisponibles_MismoInstanteSinSolape(t *testing.T) {
	store := abrirStore(t)
	ctx := context.Background()
	sembrarDisponibles(t, store, 4)

	ahora := time.Now().UTC()
	limite := ahora.Add(24 * time.Hour)

	primero, err := store.ClaimDisponibles(ctx, 2, "coord-1", limite, ahora)
	if err != nil {
		t.Fatalf("primer claim: %v", err)
	}
	segundo, err := store.ClaimDisponibles(ctx, 2, "coord-1", limite, ahora)
	if err != nil {
		t.Fatalf("segundo claim: %v", err)
	}
	if len(primero) != 2 || len(segundo) != 2 {
		t.Fatalf("esperaba lotes de 2 y 2, hubo %d y %d", len(primero), len(segundo))
	}

	vistos := map[string]bool{}
	for _, c := range primero {
		vistos[c.ID] = true
	}
	for _, c := range segundo {
		if vistos[c.ID] {
			t.Fatalf("conglomerado %s devuelto en ambos lotes", c.Codigo)
		}
	}
}

func TestClaimDisponibles_IgnoraInactivosYOcupados(t *testing.T) {
	store := abrirStore(t)
	ctx := context.Background()
	ahora := time.Now().UTC()

	disponible := nuevoConglomerado("CONG-LIBRE1", api.EstadoListoParaAsignacion, ahora)
	ocupado := nuevoConglomerado("CONG-OCUPA1", api.EstadoEnRevision, ahora)
	inactivo := nuevoConglomerado("CONG-INACT1", api.EstadoSinAsignar, ahora)
	inactivo.Activo = false
	if err := store.CrearConglomerados(ctx, []*api.Conglomerado{disponible, ocupado, inactivo}); err != nil {
		t.Fatalf("CrearConglomerados: %v", err)
	}

	claimed, err := store.ClaimDisponibles(ctx, 10, "coord-1", ahora.Add(24*time.Hour), ahora)
	if err != nil {
		t.Fatalf("ClaimDisponibles: %v", err)
	}
	if len(claimed) != 1 || claimed[0].Codigo != "CONG-LIBRE1" {
		t.Fatalf("solo el disponible debería asignarse: %d filas", len(claimed))
	}
}

// Two coordinators racing for an undersized pool must end with disjoint
// batches whose union is exactly the pool.
func TestClaimDisponibles_ConcurrentesSinSolape(t *testing.T) {
	store := abrirStore(t)
	sembrarDisponibles(t, store, 6)

	ctx := context.Background()
	ahora := time.Now().UTC()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		porCoord  = map[string][]string{}
		conErrors []error
	)

	for i, coord := range []string{"coord-a", "coord-b"} {
		wg.Add(1)
		go func(coord string, desfase int) {
			defer wg.Done()
			claimed, err := store.ClaimDisponibles(ctx, 5, coord,
				ahora.Add(24*time.Hour), ahora.Add(time.Duration(desfase)*time.Nanosecond))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				conErrors = append(conErrors, err)
				return
			}
			for _, c := range claimed {
				porCoord[coord] = append(porCoord[coord], c.ID)
			}
		}(coord, i)
	}
	wg.Wait()

	if len(conErrors) > 0 {
		t.Fatalf("errores de claim concurrente: %v", conErrors)
	}

	vistos := map[string]string{}
	totalAsignados := 0
	for coord, ids := range porCoord {
		totalAsignados += len(ids)
		for _, id := range ids {
			if otro, ya := vistos[id]; ya {
				t.Fatalf("conglomerado %s asignado a %s y %s", id, otro, coord)
			}
			vistos[id] = coord
		}
	}
	if totalAsignados > 6 {
		t.Fatalf("se asignaron %d sobre un pool de 6", totalAsignados)
	}

	restantes, err := store.ContarPorEstado(ctx, api.EstadoSinAsignar)
	if err != nil {
		t.Fatalf("ContarPorEstado: %v", err)
	}
	if restantes+totalAsignados != 6 {
		t.Fatalf("inconsistencia: %d restantes + %d asignados != 6", restantes, totalAsignados)
	}
}
