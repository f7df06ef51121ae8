// Package jsonstore provides a typed, file-backed record store. Each
// collection is persisted as a single JSON document holding an ordered array
// of records. Mutations rewrite the whole file atomically (write to a temp
// file in the same directory, then rename), so a crash mid-write never leaves
// a partially written collection behind.
package jsonstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound is returned when a record id is absent from a collection.
var ErrNotFound = errors.New("record not found")

// StorageError indicates the backing file could not be read, parsed, or
// written. A missing file is not a StorageError; it reads as an empty
// collection.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("jsonstore: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// ValidationError indicates a malformed input record, rejected before it
// reaches the backing file.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Record is implemented by every stored entity. Identifiers are assigned by
// the store on create and are unique within a collection.
type Record interface {
	GetID() int64
	SetID(int64)
}

// Ref constrains PT to be a pointer to T that satisfies Record, so the store
// can work with value slices while still assigning identifiers in place.
type Ref[T any] interface {
	*T
	Record
}

// Collection is a durable mapping from identifier to record, backed by one
// JSON file. All operations serialize on an internal mutex; the store assumes
// a single process and does no cross-process locking.
type Collection[T any, PT Ref[T]] struct {
	path string
	mu   sync.Mutex
}

// NewCollection binds a collection to its backing file. The file is created
// lazily on the first mutation.
func NewCollection[T any, PT Ref[T]](path string) *Collection[T, PT] {
	return &Collection[T, PT]{path: path}
}

// Path returns the backing file path.
func (c *Collection[T, PT]) Path() string { return c.path }

// Load returns all records in insertion order. A missing backing file yields
// an empty collection.
func (c *Collection[T, PT]) Load(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.read()
}

// Get returns the record with the given id.
func (c *Collection[T, PT]) Get(ctx context.Context, id int64) (T, error) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.read()
	if err != nil {
		return zero, err
	}
	for i := range records {
		if PT(&records[i]).GetID() == id {
			return records[i], nil
		}
	}
	return zero, ErrNotFound
}

// Create assigns the next free identifier, appends the record, and persists
// the collection. The stored record is returned.
func (c *Collection[T, PT]) Create(ctx context.Context, rec T) (T, error) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.read()
	if err != nil {
		return zero, err
	}

	var next int64 = 1
	for i := range records {
		if id := PT(&records[i]).GetID(); id >= next {
			next = id + 1
		}
	}
	PT(&rec).SetID(next)

	records = append(records, rec)
	if err := c.write(records); err != nil {
		return zero, err
	}
	return rec, nil
}

// Update replaces the record with the given id, preserving its identifier and
// position in the collection.
func (c *Collection[T, PT]) Update(ctx context.Context, id int64, rec T) (T, error) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.read()
	if err != nil {
		return zero, err
	}
	for i := range records {
		if PT(&records[i]).GetID() != id {
			continue
		}
		PT(&rec).SetID(id)
		records[i] = rec
		if err := c.write(records); err != nil {
			return zero, err
		}
		return rec, nil
	}
	return zero, ErrNotFound
}

// Patch merges the given fields into the stored record at the JSON level and
// persists the result. Unknown fields are rejected, and the id field cannot
// be changed.
func (c *Collection[T, PT]) Patch(ctx context.Context, id int64, fields map[string]any) (T, error) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.read()
	if err != nil {
		return zero, err
	}
	for i := range records {
		if PT(&records[i]).GetID() != id {
			continue
		}
		merged, err := Merge[T, PT](records[i], fields)
		if err != nil {
			return zero, err
		}
		PT(&merged).SetID(id)
		records[i] = merged
		if err := c.write(records); err != nil {
			return zero, err
		}
		return merged, nil
	}
	return zero, ErrNotFound
}

// Delete removes the record with the given id and persists the collection.
func (c *Collection[T, PT]) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, err := c.read()
	if err != nil {
		return err
	}
	for i := range records {
		if PT(&records[i]).GetID() != id {
			continue
		}
		records = append(records[:i], records[i+1:]...)
		return c.write(records)
	}
	return ErrNotFound
}

// read loads the backing file without taking the mutex; callers hold it.
func (c *Collection[T, PT]) read() ([]T, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &StorageError{Op: "read", Path: c.path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &StorageError{Op: "parse", Path: c.path, Err: err}
	}
	return records, nil
}

// write persists the full collection with temp-then-rename semantics.
func (c *Collection[T, PT]) write(records []T) error {
	if records == nil {
		records = []T{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode", Path: c.path, Err: err}
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &StorageError{Op: "mkdir", Path: dir, Err: err}
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(c.path)+".*")
	if err != nil {
		return &StorageError{Op: "create temp", Path: dir, Err: err}
	}
	tmpName := tmp.Name()

	_, werr := tmp.Write(data)
	if werr == nil {
		werr = tmp.Sync()
	}
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(tmpName)
		return &StorageError{Op: "write", Path: tmpName, Err: werr}
	}

	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return &StorageError{Op: "rename", Path: c.path, Err: err}
	}
	return nil
}

// Merge applies fields over the JSON form of rec and decodes the result back
// into a fresh record, rejecting unknown fields. Services use it to build a
// merged record they can validate before persisting.
func Merge[T any, PT Ref[T]](rec T, fields map[string]any) (T, error) {
	var zero T

	current, err := json.Marshal(rec)
	if err != nil {
		return zero, &StorageError{Op: "encode", Err: err}
	}
	obj := map[string]any{}
	if err := json.Unmarshal(current, &obj); err != nil {
		return zero, &StorageError{Op: "parse", Err: err}
	}
	for k, v := range fields {
		if k == "id" {
			return zero, &ValidationError{Field: "id", Reason: "cannot be changed"}
		}
		obj[k] = v
	}

	mergedJSON, err := json.Marshal(obj)
	if err != nil {
		return zero, &StorageError{Op: "encode", Err: err}
	}

	var merged T
	dec := json.NewDecoder(bytes.NewReader(mergedJSON))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&merged); err != nil {
		return zero, &ValidationError{Field: "patch", Reason: err.Error()}
	}
	return merged, nil
}
