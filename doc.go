// Package factory provides declarative test-data factories.
//
// A factory binds a model tag to a producer of default attributes. Tests
// then build in-memory instances or create persisted ones, overriding only
// the attributes they care about:
//
//	users := factory.Define[factory.Attrs]("user", func() factory.Attrs {
//	    return factory.Attrs{
//	        "email":   "a@mail.com",
//	        "name":    "N",
//	        "address": nil,
//	        "phone":   nil,
//	    }
//	})
//
//	factory.SetAdapter(memory.New())
//
//	u, err := users.Create(ctx)                               // defaults
//	u, err = users.Create(ctx, factory.Attrs{"name": "Ada"})  // selective override
//
// # Associations
//
// Factories reference each other lazily through association references.
// A reference resolves at most once per top-level Build/Create call, no
// matter how many attributes read from it:
//
//	posts := factory.Define[factory.Attrs]("post", func() factory.Attrs {
//	    author := users.Associate()
//	    return factory.Attrs{
//	        "title":       "Hello",
//	        "authorEmail": author.Get("email"),
//	        "authorId":    author.Get("id"),
//	    }
//	})
//
// Both projections above observe the same created user; exactly one user
// row exists in the backing store afterwards. Associations mirror the
// caller's operation: inside Build they are only built, inside Create they
// are created through their own factory. Ref.Persist forces creation even
// in build mode.
//
// # Composition
//
// Factories compose without mutating their parents:
//
//	admins := users.Extend(func() factory.Attrs {
//	    return factory.Attrs{"role": "admin"}
//	})
//
//	named := users.AfterCreate(func(ctx context.Context, u factory.Attrs, a factory.Adapter) (factory.Attrs, error) {
//	    u["name"] = "After Hook"
//	    _, err := a.Save(ctx, "user", u)
//	    return u, err
//	})
//
//	contacts := factory.Transform(users, func(u factory.Attrs) (Contact, error) {
//	    return Contact{ID: u["id"].(string), Phone: u["phone"].(string)}, nil
//	})
//
// # Persistence
//
// Create paths persist through an Adapter. One process-wide default adapter
// is installed with SetAdapter; individual factories may carry their own via
// WithAdapter. Build never saves the top-level entity. See the adapter
// subpackages for in-memory, SurrealDB and GORM implementations.
//
// # Errors
//
// Failures surface as wrapped sentinel errors checked with errors.Is:
// ErrNoAdapter, ErrOverrideCount, ErrShape, ErrNoIdentifier,
// ErrUnknownField. A failed hook or save does not roll back persistence
// that already happened earlier in the same call.
package factory
