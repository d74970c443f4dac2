package docstore

import (
	"fmt"
	"net/url"
	"strings"
)

// PathElement is one (kind, id) pair of a key path.
type PathElement struct {
	Kind string
	ID   string
}

// Key addresses a record by its full ancestor path, root first.
// The zero Key is incomplete and addresses nothing.
type Key struct {
	path []PathElement
}

// NewKey returns a root key.
func NewKey(kind, id string) Key {
	return Key{path: []PathElement{{Kind: kind, ID: id}}}
}

// KeyOf builds a key from alternating kind/id pairs, e.g.
// KeyOf("Customer", "c1", "Membership", "m1").
func KeyOf(pairs ...string) (Key, error) {
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		return Key{}, fmt.Errorf("docstore: key needs kind/id pairs, got %d values", len(pairs))
	}
	path := make([]PathElement, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		if pairs[i] == "" || pairs[i+1] == "" {
			return Key{}, fmt.Errorf("docstore: empty kind or id at position %d", i)
		}
		path = append(path, PathElement{Kind: pairs[i], ID: pairs[i+1]})
	}
	return Key{path: path}, nil
}

// Child returns a key for a child of k.
func (k Key) Child(kind, id string) Key {
	path := make([]PathElement, len(k.path), len(k.path)+1)
	copy(path, k.path)
	return Key{path: append(path, PathElement{Kind: kind, ID: id})}
}

// Parent returns the parent key, or false for root and zero keys.
func (k Key) Parent() (Key, bool) {
	if len(k.path) < 2 {
		return Key{}, false
	}
	return Key{path: k.path[:len(k.path)-1 : len(k.path)-1]}, true
}

// Root returns the top-level ancestor (k itself for root keys).
func (k Key) Root() Key {
	if len(k.path) == 0 {
		return Key{}
	}
	return Key{path: k.path[:1:1]}
}

// Kind returns the kind of the last path element.
func (k Key) Kind() string {
	if len(k.path) == 0 {
		return ""
	}
	return k.path[len(k.path)-1].Kind
}

// ID returns the id of the last path element.
func (k Key) ID() string {
	if len(k.path) == 0 {
		return ""
	}
	return k.path[len(k.path)-1].ID
}

// IDOf returns the id of the nearest path element of the given kind,
// searching from the key itself towards the root.
func (k Key) IDOf(kind string) string {
	for i := len(k.path) - 1; i >= 0; i-- {
		if k.path[i].Kind == kind {
			return k.path[i].ID
		}
	}
	return ""
}

// Path returns a copy of the key path.
func (k Key) Path() []PathElement {
	out := make([]PathElement, len(k.path))
	copy(out, k.path)
	return out
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool {
	return len(k.path) == 0
}

// Equal reports whether both keys address the same record.
func (k Key) Equal(o Key) bool {
	if len(k.path) != len(o.path) {
		return false
	}
	for i := range k.path {
		if k.path[i] != o.path[i] {
			return false
		}
	}
	return true
}

// HasAncestor reports whether a is k or one of k's ancestors.
func (k Key) HasAncestor(a Key) bool {
	if a.IsZero() || len(a.path) > len(k.path) {
		return false
	}
	for i := range a.path {
		if k.path[i] != a.path[i] {
			return false
		}
	}
	return true
}

// Encode renders the key as Kind/id/Kind/id with each segment path-escaped.
func (k Key) Encode() string {
	var b strings.Builder
	for i, el := range k.path {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(url.PathEscape(el.Kind))
		b.WriteByte('/')
		b.WriteString(url.PathEscape(el.ID))
	}
	return b.String()
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return k.Encode()
}

// ParseKey decodes a key produced by Encode.
func ParseKey(s string) (Key, error) {
	if s == "" {
		return Key{}, fmt.Errorf("docstore: empty key")
	}
	segments := strings.Split(s, "/")
	pairs := make([]string, len(segments))
	for i, seg := range segments {
		v, err := url.PathUnescape(seg)
		if err != nil {
			return Key{}, fmt.Errorf("docstore: parse key %q: %w", s, err)
		}
		pairs[i] = v
	}
	return KeyOf(pairs...)
}
