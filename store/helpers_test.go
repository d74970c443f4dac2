package store_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bigwednesday/customer-api/docstore"
	"github.com/bigwednesday/customer-api/identity"
	"github.com/bigwednesday/customer-api/store"
)

// fakeIdentity is an in-memory IdentityProvider that records its calls.
type fakeIdentity struct {
	mu sync.Mutex

	users   map[string]identity.NewUser // provider id -> user
	nextID  int
	created []identity.NewUser
	deleted []string
	updates []emailUpdate

	createErr error
	deleteErr error
	updateErr error

	// onUpdate runs inside UpdateUserEmail before it returns.
	onUpdate func()
	// deleteCtxErr records ctx.Err() seen by DeleteUser.
	deleteCtxErr error
}

type emailUpdate struct {
	providerID string
	email      string
	verify     bool
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{users: make(map[string]identity.NewUser)}
}

func (f *fakeIdentity) CreateUser(_ context.Context, u identity.NewUser) (*identity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, u)
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return nil, &identity.Error{StatusCode: 409, Code: identity.CodeUserExists, Message: "The user already exists."}
		}
	}
	f.nextID++
	providerID := fmt.Sprintf("auth0|%d", f.nextID)
	f.users[providerID] = u
	return &identity.User{ProviderID: providerID, Email: u.Email, ExternalID: u.ExternalID}, nil
}

func (f *fakeIdentity) DeleteUser(ctx context.Context, providerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, providerID)
	f.deleteCtxErr = ctx.Err()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.users, providerID)
	return nil
}

func (f *fakeIdentity) UpdateUserEmail(_ context.Context, providerID, email string, verify bool) error {
	if f.onUpdate != nil {
		f.onUpdate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, emailUpdate{providerID: providerID, email: email, verify: verify})
	if f.updateErr != nil {
		return f.updateErr
	}
	if u, ok := f.users[providerID]; ok {
		u.Email = email
		f.users[providerID] = u
	}
	return nil
}

func (f *fakeIdentity) Authenticate(_ context.Context, email, password string) (*identity.Token, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email && u.Password == password {
			return &identity.Token{IDToken: "token-" + u.ExternalID, CustomerID: u.ExternalID}, nil
		}
	}
	return nil, &identity.Error{StatusCode: 403, Code: identity.CodeInvalidUserPassword}
}

// failingStore wraps a docstore.Store and fails Saves with saveErr.
type failingStore struct {
	docstore.Store
	saveErr error
}

func (f *failingStore) Save(ctx context.Context, m docstore.Mutation) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Store.Save(ctx, m)
}

// stepClock returns base, base+1s, base+2s, ... on successive calls.
type stepClock struct {
	mu   sync.Mutex
	base time.Time
	n    int
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.base.Add(time.Duration(c.n) * time.Second)
	c.n++
	return t
}

var testBase = time.Date(2015, 11, 25, 11, 19, 6, 0, time.UTC)

func newEntityStore(db docstore.Store) *store.EntityStore {
	clock := &stepClock{base: testBase}
	return store.NewEntityStore(db, store.WithClock(clock.Now))
}

type customerFixture struct {
	db    *docstore.Memory
	idp   *fakeIdentity
	store *store.CustomerStore
}

func newCustomerFixture() *customerFixture {
	db := docstore.NewMemory()
	idp := newFakeIdentity()
	return &customerFixture{
		db:    db,
		idp:   idp,
		store: store.NewCustomerStore(newEntityStore(db), idp, store.Config{Connection: "db"}, nil),
	}
}
