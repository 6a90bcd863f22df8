// Package identity registers and authenticates users and issues the JWT pair that identifies
// callers on later requests.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Clark-Hu/cinerate/internal/domain"
	"github.com/Clark-Hu/cinerate/internal/validation"
)

var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", domain.ErrUnauthorized)
	ErrInvalidToken       = fmt.Errorf("%w: invalid or expired token", domain.ErrUnauthorized)
	ErrMissingCredentials = fmt.Errorf("%w: please provide both username and password", domain.ErrBadRequest)
)

// UserStore is the persistence the provider needs.
type UserStore interface {
	Create(ctx context.Context, username, email, passwordHash string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
}

// Options configures token lifetimes and hashing cost.
type Options struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// TokenPair is handed to clients after register, login and refresh.
type TokenPair struct {
	Access  string
	Refresh string
}

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	Username string `json:"username" validate:"required,notblank,max=150,username"`
	Email    string `json:"email" validate:"omitempty,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// Provider implements the identity operations on top of a UserStore.
type Provider struct {
	users      UserStore
	tokens     *tokenManager
	bcryptCost int
	// dummyHash is compared against when a username is unknown so both failure paths cost a hash.
	dummyHash []byte
}

// NewProvider validates opts and builds a Provider.
func NewProvider(users UserStore, opts Options) (*Provider, error) {
	if opts.Secret == "" {
		return nil, errors.New("identity: token secret is required")
	}
	if opts.AccessTTL <= 0 || opts.RefreshTTL <= 0 {
		return nil, errors.New("identity: token lifetimes must be positive")
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("cinerate-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("identity: prepare hash: %w", err)
	}
	return &Provider{
		users:      users,
		tokens:     newTokenManager([]byte(opts.Secret), opts.AccessTTL, opts.RefreshTTL),
		bcryptCost: cost,
		dummyHash:  dummy,
	}, nil
}

// Register creates an account and returns it with a fresh token pair.
func (p *Provider) Register(ctx context.Context, in RegisterInput) (domain.User, TokenPair, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Struct(in); err != nil {
		return domain.User{}, TokenPair{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), p.bcryptCost)
	if err != nil {
		return domain.User{}, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := p.users.Create(ctx, in.Username, in.Email, string(hash))
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return domain.User{}, TokenPair{}, fmt.Errorf("%w: a user with that username already exists", domain.ErrConflict)
		}
		return domain.User{}, TokenPair{}, fmt.Errorf("create user: %w", err)
	}

	tokens, err := p.IssueTokens(user)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}
	return user, tokens, nil
}

// Authenticate checks a username/password pair.
func (p *Provider) Authenticate(ctx context.Context, username, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.User{}, ErrMissingCredentials
	}

	user, err := p.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(p.dummyHash, []byte(password))
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues tokens in one step.
func (p *Provider) Login(ctx context.Context, username, password string) (domain.User, TokenPair, error) {
	user, err := p.Authenticate(ctx, username, password)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}
	tokens, err := p.IssueTokens(user)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}
	return user, tokens, nil
}

// IssueTokens signs a new access/refresh pair for user.
func (p *Provider) IssueTokens(user domain.User) (TokenPair, error) {
	access, err := p.tokens.sign(user, tokenTypeAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := p.tokens.sign(user, tokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

// ParseAccess validates an access token and returns the caller it names.
func (p *Provider) ParseAccess(token string) (domain.Principal, error) {
	claims, err := p.tokens.parse(token, tokenTypeAccess)
	if err != nil {
		return domain.Principal{}, err
	}
	return domain.Principal{UserID: claims.Subject, Username: claims.Username}, nil
}

// Refresh exchanges a refresh token for a new pair. The account must still exist.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	claims, err := p.tokens.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	user, err := p.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, fmt.Errorf("lookup user: %w", err)
	}
	return p.IssueTokens(user)
}
