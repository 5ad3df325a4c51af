package gormstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"gorm.io/gorm"

	"github.com/forgo/factory"
)

// ErrUnknownModel indicates a create against a tag with no registered
// prototype.
var ErrUnknownModel = errors.New("no model registered for tag")

// Adapter implements factory.Adapter on top of a *gorm.DB handle.
type Adapter struct {
	db *gorm.DB

	mu     sync.RWMutex
	models map[string]reflect.Type
}

// New creates an adapter persisting through db.
func New(db *gorm.DB) *Adapter {
	return &Adapter{db: db, models: make(map[string]reflect.Type)}
}

// RegisterModel binds tag to the struct type of prototype. Pointer
// prototypes are unwrapped; the zero value is never retained.
func (a *Adapter) RegisterModel(tag string, prototype any) error {
	t := reflect.TypeOf(prototype)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return fmt.Errorf("%w: prototype for %q must be a struct, got %T",
			factory.ErrShape, tag, prototype)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.models[tag] = t
	return nil
}

// Instantiate decodes attrs into a fresh instance of the tag's registered
// model struct.
func (a *Adapter) Instantiate(tag string, attrs factory.Attrs) (any, error) {
	a.mu.RLock()
	t, ok := a.models[tag]
	a.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownModel, tag)
	}

	instance := reflect.New(t).Interface()
	if err := factory.Decode(attrs, instance); err != nil {
		return nil, fmt.Errorf("gormstore: instantiate %q: %w", tag, err)
	}
	return instance, nil
}

// Save persists the instance. gorm assigns the primary key on insert and
// updates in place when one is already set.
func (a *Adapter) Save(ctx context.Context, tag string, instance any) (any, error) {
	ptr := instance
	if rv := reflect.ValueOf(instance); rv.Kind() != reflect.Pointer {
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)
		ptr = p.Interface()
	}

	if err := a.db.WithContext(ctx).Save(ptr).Error; err != nil {
		return nil, fmt.Errorf("gormstore: save %q: %w", tag, err)
	}
	return ptr, nil
}
