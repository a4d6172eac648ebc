package identity

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// RolesConCache wraps a Roles port with a short-lived in-process cache so a
// burst of requests from the same coordinator does not hammer the usuarios
// service. The cache is an optimization only; correctness never depends on
// it.
type RolesConCache struct {
	inner Roles
	cache *gocache.Cache
}

var _ Roles = (*RolesConCache)(nil)

// NewRolesConCache caches role lookups for ttl.
func NewRolesConCache(inner Roles, ttl time.Duration) *RolesConCache {
	return &RolesConCache{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (r *RolesConCache) RolesDe(ctx context.Context, userID, regionID string) ([]CuentaRol, error) {
	clave := "u:" + userID + ":" + regionID
	if v, ok := r.cache.Get(clave); ok {
		return v.([]CuentaRol), nil
	}

	cuentas, err := r.inner.RolesDe(ctx, userID, regionID)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(clave, cuentas)
	return cuentas, nil
}

func (r *RolesConCache) UsuariosConRol(ctx context.Context, codigo, regionID string) ([]string, error) {
	clave := "r:" + codigo + ":" + regionID
	if v, ok := r.cache.Get(clave); ok {
		return v.([]string), nil
	}

	ids, err := r.inner.UsuariosConRol(ctx, codigo, regionID)
	if err != nil {
		return nil, err
	}
	r.cache.SetDefault(clave, ids)
	return ids, nil
}
