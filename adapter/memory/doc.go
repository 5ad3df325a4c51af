// Package memory provides an in-memory persistence adapter for factories.
//
// The store keeps one table per model tag and assigns UUID identifiers on
// save. It is the adapter to reach for in unit tests: no external process,
// and inspection helpers to assert on what was persisted:
//
//	store := memory.New()
//	factory.SetAdapter(store)
//
//	user, err := users.Create(ctx)
//	// ...
//	if store.Count("user") != 1 {
//	    t.Fatal("expected exactly one persisted user")
//	}
//
// Saving an instance that already carries an identifier overwrites its row,
// which is how after-create hooks persist their mutations.
//
// The store is safe for concurrent use.
package memory
