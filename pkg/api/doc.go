// Package api defines the public domain model of the conglomerados service:
// the Conglomerado and Subparcela types, the estado enumeration, the error
// taxonomy, and the Service interface implemented by internal/engine.
//
// Consumers normally import the root conglomerados package, which re-exports
// everything here.
package api
