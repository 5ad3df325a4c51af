// Package gormstore provides a GORM-backed persistence adapter for
// factories.
//
// The adapter needs to know which struct backs each model tag; register a
// prototype per tag before creating:
//
//	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
//	// ...
//	adapter := gormstore.New(db)
//	adapter.RegisterModel("user", User{})
//
//	users := factory.Define[User]("user", userDefaults).WithAdapter(adapter)
//	u, err := users.Create(ctx)
//
// Instantiate decodes resolved attributes into a fresh copy of the
// registered prototype; Save persists it with gorm's Save, so instances
// that already carry a primary key are updated rather than re-inserted
// (which is what after-create hooks rely on).
package gormstore
