package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"todolist/internal/service"
	"todolist/internal/session"
)

// TokenTTL is the lifetime of a local session token.
const TokenTTL = 30 * 24 * time.Hour

const issuer = "todolist"

var (
	// ErrInvalidCredentials is returned for an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned when registering an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")
)

// Local manages email/password accounts stored under credentials/{email}.
type Local struct {
	store  service.Store
	secret []byte
	now    func() time.Time
}

// NewLocal creates a local authenticator signing tokens with secret.
func NewLocal(store service.Store, secret []byte) *Local {
	return &Local{store: store, secret: secret, now: time.Now}
}

type claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// Register creates an account and signs it in.
func (l *Local) Register(ctx context.Context, name, email, password string) (session.Record, error) {
	if err := ValidateRegistration(name, email, password); err != nil {
		return session.Record{}, err
	}
	email = service.NormalizeEmail(email)
	path := service.CredentialPath(email)

	_, found, err := l.store.Get(ctx, path)
	if err != nil {
		return session.Record{}, err
	}
	if found {
		return session.Record{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return session.Record{}, fmt.Errorf("failed to hash password: %w", err)
	}
	// The lookup above only spares a bcrypt round for known emails;
	// Create decides between two registrations racing for one address.
	userID := uuid.NewString()
	err = l.store.Create(ctx, path, map[string]any{
		"userId":       userID,
		"email":        email,
		"name":         name,
		"passwordHash": string(hash),
		"created":      l.now().UTC(),
	})
	if errors.Is(err, service.ErrExists) {
		return session.Record{}, ErrEmailTaken
	}
	if err != nil {
		return session.Record{}, err
	}
	return l.signIn(userID, email, name)
}

// Login checks the password and signs the account in.
func (l *Local) Login(ctx context.Context, email, password string) (session.Record, error) {
	if err := ValidateLogin(email, password); err != nil {
		return session.Record{}, err
	}
	email = service.NormalizeEmail(email)

	doc, found, err := l.store.Get(ctx, service.CredentialPath(email))
	if err != nil {
		return session.Record{}, err
	}
	if !found {
		return session.Record{}, ErrInvalidCredentials
	}
	userID, _ := doc.Fields["userId"].(string)
	name, _ := doc.Fields["name"].(string)
	hash, _ := doc.Fields["passwordHash"].(string)
	if userID == "" || hash == "" {
		return session.Record{}, &service.DecodeError{Path: doc.Path, Err: errors.New("incomplete credential")}
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return session.Record{}, ErrInvalidCredentials
	}
	return l.signIn(userID, email, name)
}

// Forget deletes the credential of an account.
func (l *Local) Forget(ctx context.Context, email string) error {
	return l.store.Delete(ctx, service.CredentialPath(email))
}

func (l *Local) signIn(userID, email, name string) (session.Record, error) {
	now := l.now()
	c := claims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(l.secret)
	if err != nil {
		return session.Record{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return session.Record{
		Provider:   ProviderLocal,
		UserID:     userID,
		Email:      email,
		Name:       name,
		Token:      token,
		SignedInAt: now.UTC(),
	}, nil
}

// Verify implements session.Verifier.
func (l *Local) Verify(token string) (session.Identity, error) {
	return verify(l.secret, token, l.now)
}

func verify(secret []byte, token string, now func() time.Time) (session.Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return session.Identity{}, err
	}
	if c.Subject == "" {
		return session.Identity{}, errors.New("token has no subject")
	}
	return session.Identity{UserID: c.Subject, Email: c.Email, Name: c.Name}, nil
}

// KeyFileVerifier verifies local session tokens against the key stored at a
// path. The key is read on first successful use and never created, so
// commands that only inspect the session leave the config directory alone.
type KeyFileVerifier struct {
	path string

	mu     sync.Mutex
	secret []byte
}

// NewVerifier creates a verifier for the key file at path.
func NewVerifier(path string) *KeyFileVerifier {
	return &KeyFileVerifier{path: path}
}

// Verify implements session.Verifier.
func (v *KeyFileVerifier) Verify(token string) (session.Identity, error) {
	v.mu.Lock()
	if v.secret == nil {
		secret, err := os.ReadFile(v.path)
		if err != nil {
			v.mu.Unlock()
			return session.Identity{}, fmt.Errorf("failed to read session key: %w", err)
		}
		v.secret = secret
	}
	secret := v.secret
	v.mu.Unlock()
	return verify(secret, token, time.Now)
}

// LoadOrCreateSecret reads the signing key, creating a random one on first use.
func LoadOrCreateSecret(path string) ([]byte, error) {
	secret, err := os.ReadFile(path)
	if err == nil && len(secret) >= 32 {
		return secret, nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read session key: %w", err)
	}

	secret = make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, secret, 0600); err != nil {
		return nil, fmt.Errorf("failed to write session key: %w", err)
	}
	return secret, nil
}
