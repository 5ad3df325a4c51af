package surreal

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/surrealdb/surrealdb.go"

	"github.com/forgo/factory"
)

// Standard errors for SurrealDB operations.
// Use errors.Is() to check these error types in calling code.
var (
	// ErrConnection indicates a failure to connect to or communicate with
	// the database.
	ErrConnection = errors.New("database connection error")

	// ErrQuery indicates a query execution failure.
	ErrQuery = errors.New("query error")
)

// Config holds SurrealDB connection configuration.
type Config struct {
	Host      string
	Port      string
	User      string
	Password  string
	Namespace string
	Database  string
}

// Adapter implements factory.Adapter against a SurrealDB instance.
type Adapter struct {
	db     *surrealdb.DB
	config Config
}

// New creates an adapter for the given configuration. Call Connect before
// handing it to factories.
func New(cfg Config) *Adapter {
	return &Adapter{config: cfg}
}

// Connect establishes the connection, signs in and selects the configured
// namespace and database.
func (a *Adapter) Connect(ctx context.Context) error {
	endpoint := fmt.Sprintf("ws://%s:%s", a.config.Host, a.config.Port)

	db, err := surrealdb.Connect(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}

	_, err = db.SignIn(ctx, &surrealdb.Auth{
		Username: a.config.User,
		Password: a.config.Password,
	})
	if err != nil {
		_ = db.Close(ctx)
		return fmt.Errorf("%w: signin failed: %v", ErrConnection, err)
	}

	if err := db.Use(ctx, a.config.Namespace, a.config.Database); err != nil {
		_ = db.Close(ctx)
		return fmt.Errorf("%w: use failed: %v", ErrConnection, err)
	}

	a.db = db
	return nil
}

// Close closes the database connection.
func (a *Adapter) Close() error {
	if a.db != nil {
		return a.db.Close(context.Background())
	}
	return nil
}

// Ping checks the database connection.
func (a *Adapter) Ping(ctx context.Context) error {
	if a.db == nil {
		return ErrConnection
	}
	if _, err := a.db.Version(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	return nil
}

// Instantiate returns a copy of the resolved attributes. SurrealDB is
// schemaless for our purposes; the record shape is the attribute mapping.
func (a *Adapter) Instantiate(tag string, attrs factory.Attrs) (any, error) {
	return maps.Clone(attrs), nil
}

// Save persists the instance as a record in the table named after tag.
// Instances already carrying an identifier are updated in place.
func (a *Adapter) Save(ctx context.Context, tag string, instance any) (any, error) {
	if a.db == nil {
		return nil, ErrConnection
	}

	content, ok := asAttrs(instance)
	if !ok {
		return nil, fmt.Errorf("%w: surreal adapter persists attribute mappings, got %T",
			factory.ErrShape, instance)
	}

	var query string
	vars := map[string]any{}
	if id, identified := factory.Identifier(content); identified {
		data := maps.Clone(content)
		delete(data, "id")
		query = `UPDATE type::record($id) CONTENT $data`
		vars["id"] = id
		vars["data"] = map[string]any(data)
	} else {
		query = `CREATE type::table($tb) CONTENT $data`
		vars["tb"] = tag
		vars["data"] = map[string]any(content)
	}

	results, err := surrealdb.Query[any](ctx, a.db, query, vars)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuery, err)
	}

	record, err := firstRecord(results)
	if err != nil {
		return nil, err
	}

	saved := maps.Clone(content)
	saved["id"] = recordID(record["id"])
	return saved, nil
}

func asAttrs(instance any) (factory.Attrs, bool) {
	switch v := instance.(type) {
	case factory.Attrs:
		return v, true
	case map[string]any:
		return factory.Attrs(v), true
	default:
		return nil, false
	}
}

// firstRecord unwraps the first record from a query response.
func firstRecord(results *[]surrealdb.QueryResult[any]) (map[string]any, error) {
	if results == nil || len(*results) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrQuery)
	}

	r := (*results)[0]
	if r.Status != "OK" {
		if r.Error != nil {
			return nil, fmt.Errorf("%w: %s", ErrQuery, r.Error.Message)
		}
		return nil, ErrQuery
	}

	result := any(r.Result)
	if arr, isArr := result.([]any); isArr {
		if len(arr) == 0 {
			return nil, fmt.Errorf("%w: empty result", ErrQuery)
		}
		result = arr[0]
	}

	record, isMap := result.(map[string]any)
	if !isMap {
		return nil, fmt.Errorf("%w: unexpected result type %T", ErrQuery, result)
	}
	return record, nil
}

// recordID renders a SurrealDB record identifier as the canonical
// "table:id" string, whatever shape the driver returned it in.
func recordID(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	if m, ok := v.(map[string]any); ok {
		if tb, ok := m["tb"].(string); ok {
			if id := m["id"]; id != nil {
				return fmt.Sprintf("%s:%v", tb, id)
			}
		}
	}
	// Stringified record IDs print as "{table id}".
	s := fmt.Sprintf("%v", v)
	if len(s) > 2 && s[0] == '{' && s[len(s)-1] == '}' {
		inner := s[1 : len(s)-1]
		for i, c := range inner {
			if c == ' ' {
				return inner[:i] + ":" + inner[i+1:]
			}
		}
	}
	return s
}
