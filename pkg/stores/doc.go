// Package stores persists ppactl run history in SQLite.
//
// Every command invocation becomes a Run, and every engine event published
// during it is appended as an Event. The history is an audit log: nothing in
// the copy, promote or wait flows reads it back, so a missing or broken
// database never changes what ppactl does to the archives.
//
// The schema is managed by golang-migrate from migrations embedded in the
// binary. The database uses the pure Go modernc.org/sqlite driver with WAL
// journaling and foreign keys enabled:
//
//	store, err := stores.NewSQLiteStore(stores.Config{Path: "~/.local/share/ppactl/history.db"})
//	if err != nil {
//		return err
//	}
//	if err := store.Init(ctx); err != nil {
//		return err
//	}
//	defer store.Close()
//	if err := store.Migrate(ctx); err != nil {
//		return err
//	}
//
//	publisher.Subscribe(stores.Recorder(ctx, store, logger), nil)
package stores
