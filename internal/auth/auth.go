package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/shoplane/marketplace-api/internal/redisx"
)

const (
	RoleCustomer = "customer"
	RoleSeller   = "seller"
	RoleAdmin    = "admin"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Identity is resolved once per request and carried immutably in the
// request context; nothing downstream re-enriches it.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
}

// Provider resolves a caller identity from request credentials. Session
// management itself lives outside this service.
type Provider interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

// RedisProvider reads sessions written by the identity service:
// session:{token} -> JSON identity.
type RedisProvider struct {
	RDB *redis.Client
}

func (p *RedisProvider) Resolve(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, ErrUnauthenticated
	}
	raw, err := p.RDB.Get(ctx, fmt.Sprintf(redisx.KeySession, token)).Result()
	if errors.Is(err, redis.Nil) {
		return Identity{}, ErrUnauthenticated
	}
	if err != nil {
		return Identity{}, err
	}
	var id Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return Identity{}, fmt.Errorf("decode session: %w", err)
	}
	if id.UserID == "" {
		return Identity{}, ErrUnauthenticated
	}
	if id.Role == "" {
		id.Role = RoleCustomer
	}
	return id, nil
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
