// Package postgres provides the PostgreSQL plumbing shared by the domain
// stores: connection management with read replicas, schema migrations, and
// translation of driver errors into the apperrors taxonomy.
//
// # Usage Example
//
//	cm, err := postgres.Open(cfg.Storage, logger)
//	if err := postgres.RunMigrations(ctx, cm.Primary(), logger); err != nil { ... }
//	titles := catalog.NewPostgresStore(cm)
//
// # Error Mapping
//
//	sql.ErrNoRows  -> apperrors.ErrNotFound
//	23505 unique   -> apperrors.ErrConflict
//	23503 FK       -> apperrors.ErrNotFound
//	23514 check    -> apperrors.ErrValidation
package postgres
