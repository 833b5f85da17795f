// Package cloud implements the remote Store collaborator. A Backend persists
// backend-neutral records per kind; Store adapts a Backend and a Codec to
// the typed types.Store interface the entity managers use.
//
// Backends: memory (tests and offline use), sqlite (modernc.org/sqlite),
// postgres (pgx through database/sql) and s3 (aws-sdk-go-v2). Every backend
// upserts by id, so saving the same record twice is harmless.
package cloud
