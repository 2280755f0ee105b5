package identity

import (
	"context"
	"fmt"

	"vinylstore-be/internal/apperr"
)

type Kind string

const (
	KindCustomer Kind = "customer"
	KindVendor   Kind = "vendor"
)

// Identity is the authenticated caller as asserted by the identity
// provider. Core operations take it as an explicit argument.
type Identity struct {
	Kind Kind  `json:"kind"`
	ID   int64 `json:"id"`
}

func Customer(id int64) Identity { return Identity{Kind: KindCustomer, ID: id} }

func Vendor(id int64) Identity { return Identity{Kind: KindVendor, ID: id} }

func (i Identity) IsCustomer() bool { return i.Kind == KindCustomer && i.ID > 0 }

func (i Identity) IsVendor() bool { return i.Kind == KindVendor && i.ID > 0 }

func (i Identity) String() string { return fmt.Sprintf("%s:%d", i.Kind, i.ID) }

// RequireCustomer returns the customer id or ErrUnauthenticated/ErrForbidden.
func (i Identity) RequireCustomer() (int64, error) {
	if i.ID <= 0 {
		return 0, apperr.ErrUnauthenticated
	}
	if i.Kind != KindCustomer {
		return 0, apperr.ErrForbidden
	}
	return i.ID, nil
}

// RequireVendor returns the vendor id or ErrUnauthenticated/ErrForbidden.
func (i Identity) RequireVendor() (int64, error) {
	if i.ID <= 0 {
		return 0, apperr.ErrUnauthenticated
	}
	if i.Kind != KindVendor {
		return 0, apperr.ErrForbidden
	}
	return i.ID, nil
}

type ctxKey string

const identityKey ctxKey = "identity"

// NewContext is called once by the auth middleware.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext is for the transport layer only; services never read it.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
