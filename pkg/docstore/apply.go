package docstore

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// transform computes the new value of a field. before is the document as it
// was when the update started.
type transform interface {
	apply(before Document, current any, exists bool, now time.Time) (any, error)
}

type arrayUnion struct{ elements []any }

type arrayRemove struct{ elements []any }

type increment struct{ delta float64 }

type serverTimestamp struct{}

type pushFront struct {
	element any
	max     int
}

type incrementUnlessContains struct {
	path    string
	element any
	delta   float64
}

// ArrayUnion appends each element that is not already present.
func ArrayUnion(elements ...any) any { return arrayUnion{elements: elements} }

// ArrayRemove removes every occurrence of each element.
func ArrayRemove(elements ...any) any { return arrayRemove{elements: elements} }

// Increment adds delta to a numeric field, treating a missing field as zero.
func Increment(delta int64) any { return increment{delta: float64(delta)} }

// ServerTimestamp stores the store's current time as an RFC 3339 string.
func ServerTimestamp() any { return serverTimestamp{} }

// PushFront moves element to the front of an array, dropping earlier
// occurrences, and keeps at most max entries.
func PushFront(element any, max int) any { return pushFront{element: element, max: max} }

// IncrementUnlessContains adds delta unless the array at arrayPath already
// held element before the update. Paired with ArrayUnion on the same path it
// counts only real insertions.
func IncrementUnlessContains(arrayPath string, element any, delta int64) any {
	return incrementUnlessContains{path: arrayPath, element: element, delta: float64(delta)}
}

func (t arrayUnion) apply(_ Document, current any, exists bool, _ time.Time) (any, error) {
	out := copyArray(current, exists)
	for _, e := range t.elements {
		v, err := normalize(e)
		if err != nil {
			return nil, err
		}
		if !containsValue(out, v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (t arrayRemove) apply(_ Document, current any, exists bool, _ time.Time) (any, error) {
	remove := make([]any, 0, len(t.elements))
	for _, e := range t.elements {
		v, err := normalize(e)
		if err != nil {
			return nil, err
		}
		remove = append(remove, v)
	}

	out := make([]any, 0)
	for _, v := range copyArray(current, exists) {
		if !containsValue(remove, v) {
			out = append(out, v)
		}
	}
	return out, nil
}

func (t increment) apply(_ Document, current any, exists bool, _ time.Time) (any, error) {
	if n, ok := current.(float64); ok && exists {
		return n + t.delta, nil
	}
	return t.delta, nil
}

func (serverTimestamp) apply(_ Document, _ any, _ bool, now time.Time) (any, error) {
	return now.UTC().Format(time.RFC3339Nano), nil
}

func (t pushFront) apply(_ Document, current any, exists bool, _ time.Time) (any, error) {
	v, err := normalize(t.element)
	if err != nil {
		return nil, err
	}

	out := []any{v}
	for _, e := range copyArray(current, exists) {
		if t.max > 0 && len(out) >= t.max {
			break
		}
		if !reflect.DeepEqual(e, v) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t incrementUnlessContains) apply(before Document, current any, exists bool, now time.Time) (any, error) {
	v, err := normalize(t.element)
	if err != nil {
		return nil, err
	}

	arr, found := lookup(before, t.path)
	if found && containsValue(copyArray(arr, true), v) {
		if exists {
			return current, nil
		}
		return float64(0), nil
	}
	return increment{delta: t.delta}.apply(before, current, exists, now)
}

// Apply merges update into doc in place. Paths are applied in lexical order
// so the result does not depend on map iteration.
func Apply(doc Document, update Update, now time.Time) error {
	paths := make([]string, 0, len(update))
	for p := range update {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	before := cloneDocument(doc)
	for _, p := range paths {
		if err := applyPath(doc, before, p, update[p], now); err != nil {
			return err
		}
	}
	return nil
}

func applyPath(doc, before Document, path string, value any, now time.Time) error {
	segments := strings.Split(path, ".")
	for _, s := range segments {
		if s == "" {
			return fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}

	parent := map[string]any(doc)
	for _, s := range segments[:len(segments)-1] {
		child, ok := parent[s]
		if !ok || child == nil {
			next := make(map[string]any)
			parent[s] = next
			parent = next
			continue
		}
		next, ok := child.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: %q crosses a non-object field", ErrInvalidPath, path)
		}
		parent = next
	}

	leaf := segments[len(segments)-1]
	current, exists := parent[leaf]

	var (
		next any
		err  error
	)
	if t, ok := value.(transform); ok {
		next, err = t.apply(before, current, exists, now)
	} else {
		next, err = normalize(value)
	}
	if err != nil {
		return fmt.Errorf("field %q: %w", path, err)
	}

	parent[leaf] = next
	return nil
}

// resolve builds a fresh document from doc, applying any transforms it holds.
func resolve(doc Document, now time.Time) (Document, error) {
	out := make(Document, len(doc))
	for k, v := range doc {
		if t, ok := v.(transform); ok {
			nv, err := t.apply(nil, nil, false, now)
			if err != nil {
				return nil, err
			}
			out[k] = nv
			continue
		}
		nv, err := normalize(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		out[k] = nv
	}
	return out, nil
}

// normalize converts v to its JSON shape so stored values compare and
// serialize the same way regardless of the Go type they were written with.
func normalize(v any) (any, error) {
	switch v.(type) {
	case nil, string, bool, float64:
		return v, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("value is not JSON encodable: %w", err)
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return out, nil
}

// lookup returns the value at a dot separated path
func lookup(doc Document, path string) (any, bool) {
	var current any = map[string]any(doc)
	for _, s := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		if current, ok = m[s]; !ok {
			return nil, false
		}
	}
	return current, true
}

func copyArray(current any, exists bool) []any {
	arr, ok := current.([]any)
	if !exists || !ok {
		return make([]any, 0)
	}
	out := make([]any, len(arr))
	copy(out, arr)
	return out
}

func containsValue(arr []any, v any) bool {
	for _, e := range arr {
		if reflect.DeepEqual(e, v) {
			return true
		}
	}
	return false
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func cloneDocument(doc Document) Document {
	return Document(cloneValue(map[string]any(doc)).(map[string]any))
}
