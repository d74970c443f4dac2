package store

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/bigwednesday/customer-api/docstore"
	"github.com/bigwednesday/customer-api/identity"
)

// CustomerKind is the document store kind of customers.
const CustomerKind = "Customer"

// providerIDProperty is the _hidden field holding the identity provider
// user id.
const providerIDProperty = "identityProviderId"

// IdentityProvider is the identity service the customer store federates to.
// *identity.Client implements it.
type IdentityProvider interface {
	CreateUser(ctx context.Context, u identity.NewUser) (*identity.User, error)
	DeleteUser(ctx context.Context, providerID string) error
	UpdateUserEmail(ctx context.Context, providerID, email string, verify bool) error
	Authenticate(ctx context.Context, email, password string) (*identity.Token, error)
}

// Address is a customer postal address.
type Address struct {
	Name     string `json:"name,omitempty"`
	Line1    string `json:"line_1,omitempty"`
	Line2    string `json:"line_2,omitempty"`
	Town     string `json:"town,omitempty"`
	Postcode string `json:"postcode,omitempty"`
	Country  string `json:"country,omitempty"`
}

// CustomerParams are the attributes a customer is created or replaced with.
// Password is passed to the identity provider and never persisted.
type CustomerParams struct {
	Email          string    `json:"email" validate:"required,email"`
	Password       string    `json:"password,omitempty"`
	VATNumber      string    `json:"vat_number,omitempty"`
	LineOfBusiness string    `json:"line_of_business,omitempty"`
	Addresses      []Address `json:"addresses,omitempty" validate:"dive"`
	DefaultSignFor string    `json:"default_sign_for,omitempty"`
}

// Customer is the public view of a customer.
type Customer struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	VATNumber      string    `json:"vat_number,omitempty"`
	LineOfBusiness string    `json:"line_of_business,omitempty"`
	Addresses      []Address `json:"addresses,omitempty"`
	DefaultSignFor string    `json:"default_sign_for,omitempty"`
	Metadata       Metadata  `json:"_metadata"`
}

// Session is the result of a successful authentication.
type Session struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Token string `json:"token"`
}

// CustomerKey returns the key of customer id.
func CustomerKey(id string) docstore.Key {
	return docstore.NewKey(CustomerKind, id)
}

// CustomerStore keeps customers in the document store consistent with their
// identity provider users.
type CustomerStore struct {
	entities *EntityStore
	idp      IdentityProvider
	config   Config
	logger   *zap.Logger
}

// NewCustomerStore creates a CustomerStore. A nil logger disables logging.
func NewCustomerStore(entities *EntityStore, idp IdentityProvider, config Config, logger *zap.Logger) *CustomerStore {
	config.validate()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerStore{
		entities: entities,
		idp:      idp,
		config:   config,
		logger:   logger,
	}
}

// Create registers the customer with the identity provider, then persists
// it. If persisting fails the provider user is deleted again and the
// persistence error is returned.
func (s *CustomerStore) Create(ctx context.Context, params CustomerParams) (*Customer, error) {
	w := &createCustomer{store: s, id: NewID(), params: params}
	return w.run(ctx)
}

// createCustomer is the two-step create workflow: provider user first,
// document second, with a compensating provider delete between them.
type createCustomer struct {
	store      *CustomerStore
	id         string
	params     CustomerParams
	providerID string
}

func (w *createCustomer) run(ctx context.Context) (*Customer, error) {
	if err := w.createIdentity(ctx); err != nil {
		return nil, err
	}

	props := w.params.properties()
	props[hiddenProperty] = map[string]any{providerIDProperty: w.providerID}

	entity, err := w.store.entities.Create(ctx, CustomerKey(w.id), props)
	if err != nil {
		w.compensate(ctx, err)
		return nil, err
	}

	w.store.logger.Info("customer created",
		zap.String("customer_id", w.id),
		zap.String("provider_id", w.providerID),
	)
	return customerFromEntity(entity), nil
}

func (w *createCustomer) createIdentity(ctx context.Context) error {
	user, err := w.store.idp.CreateUser(ctx, identity.NewUser{
		Connection: w.store.config.Connection,
		Email:      w.params.Email,
		Password:   w.params.Password,
		ExternalID: w.id,
		Scope:      []string{CustomerScope(w.id)},
	})
	if err != nil {
		return mapIdentityError(err)
	}
	w.providerID = user.ProviderID
	return nil
}

// compensate deletes the provider user created by this workflow. Its own
// failure is only logged; the caller still returns cause. It runs detached
// from ctx cancellation so an aborted request still cleans up.
func (w *createCustomer) compensate(ctx context.Context, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := w.store.idp.DeleteUser(ctx, w.providerID); err != nil {
		w.store.logger.Error("unable to delete identity user after failed customer insert",
			zap.String("customer_id", w.id),
			zap.String("provider_id", w.providerID),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	w.store.logger.Warn("identity user deleted after failed customer insert",
		zap.String("customer_id", w.id),
		zap.String("provider_id", w.providerID),
		zap.NamedError("cause", cause),
	)
}

// Get returns customer id.
func (s *CustomerStore) Get(ctx context.Context, id string) (*Customer, error) {
	entity, err := s.entities.Get(ctx, CustomerKey(id))
	if err != nil {
		return nil, err
	}
	return customerFromEntity(entity), nil
}

// Update replaces the public attributes of customer id. A changed email is
// pushed to the identity provider, with verification, before the document
// is written.
func (s *CustomerStore) Update(ctx context.Context, id string, params CustomerParams) (*Customer, error) {
	key := CustomerKey(id)
	raw, err := s.entities.GetRaw(ctx, key)
	if err != nil {
		return nil, err
	}

	if current, _ := raw.Properties["email"].(string); params.Email != current {
		providerID := providerIDOf(raw)
		if err := s.idp.UpdateUserEmail(ctx, providerID, params.Email, true); err != nil {
			return nil, err
		}
		s.logger.Info("customer email changed", zap.String("customer_id", id))
	}

	props := params.properties()
	carryInternal(raw, props)

	entity, err := s.entities.Update(ctx, key, props)
	if err != nil {
		return nil, err
	}
	return customerFromEntity(entity), nil
}

// Authenticate checks an email and password with the identity provider.
func (s *CustomerStore) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	tok, err := s.idp.Authenticate(ctx, email, password)
	if err != nil {
		return nil, mapIdentityError(err)
	}
	return &Session{ID: tok.CustomerID, Email: email, Token: tok.IDToken}, nil
}

// CustomerScope is the authorization scope granted to customer id.
func CustomerScope(id string) string {
	return "customer:" + id
}

// mapIdentityError translates recognised provider codes. Anything else is
// returned as is.
func mapIdentityError(err error) error {
	switch {
	case errors.Is(err, identity.ErrUserExists):
		return &Error{Kind: KindCustomerExists, Message: "customer already exists", Err: err}
	case errors.Is(err, identity.ErrInvalidPassword):
		return &Error{Kind: KindInvalidPassword, Message: "invalid password", Err: err}
	case errors.Is(err, identity.ErrInvalidUserPassword):
		return &Error{Kind: KindAuthenticationFailed, Message: "invalid email address or password", Err: err}
	}
	return err
}

// providerIDOf returns the identity provider user id kept in _hidden.
func providerIDOf(raw *docstore.Record) string {
	hidden, _ := raw.Properties[hiddenProperty].(map[string]any)
	id, _ := hidden[providerIDProperty].(string)
	return id
}

// carryInternal copies _hidden and every _metadata property from raw into
// props.
func carryInternal(raw *docstore.Record, props docstore.Properties) {
	for k, v := range raw.Properties {
		if k == hiddenProperty || strings.HasPrefix(k, metadataPrefix) {
			props[k] = v
		}
	}
}

func (p CustomerParams) properties() docstore.Properties {
	props := docstore.Properties{"email": p.Email}
	setString(props, "vat_number", p.VATNumber)
	setString(props, "line_of_business", p.LineOfBusiness)
	setString(props, "default_sign_for", p.DefaultSignFor)
	if len(p.Addresses) > 0 {
		addresses := make([]any, len(p.Addresses))
		for i, a := range p.Addresses {
			m := map[string]any{}
			setString(m, "name", a.Name)
			setString(m, "line_1", a.Line1)
			setString(m, "line_2", a.Line2)
			setString(m, "town", a.Town)
			setString(m, "postcode", a.Postcode)
			setString(m, "country", a.Country)
			addresses[i] = m
		}
		props["addresses"] = addresses
	}
	return props
}

func customerFromEntity(e *Entity) *Customer {
	c := &Customer{
		ID:             e.ID,
		Email:          stringAttr(e.Attributes, "email"),
		VATNumber:      stringAttr(e.Attributes, "vat_number"),
		LineOfBusiness: stringAttr(e.Attributes, "line_of_business"),
		DefaultSignFor: stringAttr(e.Attributes, "default_sign_for"),
		Metadata:       Metadata{Created: e.Metadata.Created},
	}
	if list, ok := e.Attributes["addresses"].([]any); ok {
		for _, item := range list {
			m, _ := item.(map[string]any)
			c.Addresses = append(c.Addresses, Address{
				Name:     stringAttr(m, "name"),
				Line1:    stringAttr(m, "line_1"),
				Line2:    stringAttr(m, "line_2"),
				Town:     stringAttr(m, "town"),
				Postcode: stringAttr(m, "postcode"),
				Country:  stringAttr(m, "country"),
			})
		}
	}
	return c
}

func setString(m map[string]any, name, value string) {
	if value != "" {
		m[name] = value
	}
}

func stringAttr[M ~map[string]any](m M, name string) string {
	s, _ := m[name].(string)
	return s
}
