// Package storage holds the types shared by every persistence backend:
// pagination, list envelopes and connection configuration.
//
// Concrete stores live next to their domain (catalog, reviews, users) and
// share the PostgreSQL plumbing in pkg/storage/postgres.
//
// # Pagination
//
//	page := storage.NewPage(limit, offset) // limit defaults to 20, capped at 100
//	rows, total, err := store.ListTitles(ctx, filter, page)
//	return storage.NewList(total, rows), nil
//
// # Related Packages
//
//   - pkg/storage/postgres: Connections, migrations and error mapping
package storage
