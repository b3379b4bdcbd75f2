// Package checkpoint persists the progress of deployment executions.
//
// A [Record] is written before every workflow state runs and once more after
// the terminal state, so an interrupted or suspended execution can be resumed
// at the state it had reached. The payload is opaque to this package.
//
// Four [Store] backends exist: [MemoryStore] for tests and single-process
// runs, [FileStore] (one JSON file per execution), [S3Store] (one object per
// execution) and [PostgresStore] (one row per execution).
package checkpoint
