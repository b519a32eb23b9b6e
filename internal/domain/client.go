package domain

import "time"

// ClientRecord is the customer/vehicle data exposed by the bridge lookup
// for one service order. Consumed read-only by template assembly.
type ClientRecord struct {
	OrderNumber  string `json:"orden_numero"`
	ClientID     string `json:"cliente_id,omitempty"`
	Name         string `json:"cliente_nombre"`
	Phone        string `json:"cliente_telefono"`
	Email        string `json:"cliente_email"`
	VehicleModel string `json:"vehiculo_modelo"`
	VehiclePlate string `json:"vehiculo_placas,omitempty"`
	OrderDate    string `json:"fecha_orden,omitempty"`
}

// ClientCacheEntry wraps a cached bridge lookup. Entries are never served
// past ExpiresAt.
type ClientCacheEntry struct {
	Client    ClientRecord `json:"client"`
	CachedAt  time.Time    `json:"cached_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Expired reports whether the entry is stale at the given instant.
func (e *ClientCacheEntry) Expired(now time.Time) bool {
	return !e.ExpiresAt.After(now)
}
