// Package domain defines the poll model and the contracts around it.
//
// Poll and Response are plain in-memory records with no locking and no I/O.
// Repositories, the results archive and the event publisher are declared here
// as interfaces so adapters depend on the domain and not the other way round.
package domain
