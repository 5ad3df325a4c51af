// Package surreal provides a SurrealDB-backed persistence adapter for
// factories.
//
// Instances persist as records in the table named after the model tag:
//
//	adapter := surreal.New(surreal.Config{
//	    Host:      "localhost",
//	    Port:      "8000",
//	    User:      "root",
//	    Password:  "root",
//	    Namespace: "test",
//	    Database:  "fixtures",
//	})
//	if err := adapter.Connect(ctx); err != nil {
//	    // SurrealDB not reachable
//	}
//	defer adapter.Close()
//
//	factory.SetAdapter(adapter)
//
// Save issues CREATE type::table($tb) CONTENT $data for new instances and
// UPDATE type::record($id) CONTENT $data for instances that already carry
// an identifier (hook re-saves). The returned instance carries the
// record's "table:id" identifier.
//
// # Error Types
//
//   - ErrConnection: connection or authentication failure
//   - ErrQuery: query execution failure
//
// Use errors.Is() to check error types.
package surreal
