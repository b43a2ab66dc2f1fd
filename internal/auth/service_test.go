package auth

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/necrock/readingtracker/internal/model"
	"golang.org/x/crypto/bcrypt"
)

// --- モック ---

type mockUserRegistry struct {
	addFn           func(ctx context.Context, u *model.User) error
	getByUsernameFn func(ctx context.Context, username string) (*model.User, error)
}

func (m *mockUserRegistry) Add(ctx context.Context, u *model.User) error {
	return m.addFn(ctx, u)
}

func (m *mockUserRegistry) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return m.getByUsernameFn(ctx, username)
}

type mockTokenIssuer struct {
	issued []string
}

func (m *mockTokenIssuer) Issue(username string) (string, error) {
	m.issued = append(m.issued, username)
	return "token-for-" + username, nil
}

type mockFailureRecorder struct {
	reasons []string
}

func (m *mockFailureRecorder) RecordAuthFailure(reason string) {
	m.reasons = append(m.reasons, reason)
}

var testHasher = BcryptHasher{Cost: bcrypt.MinCost}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := testHasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return hash
}

func registeredUser(t *testing.T, status model.Status) *mockUserRegistry {
	t.Helper()
	hash := hashOf(t, "password1")
	return &mockUserRegistry{
		getByUsernameFn: func(ctx context.Context, username string) (*model.User, error) {
			if username != "alice" {
				return nil, model.NewUsernameNotFoundError(username)
			}
			return &model.User{ID: 1, Username: "alice", PasswordHash: hash, Role: model.RoleUser, Status: status}, nil
		},
	}
}

// --- テスト ---

func TestService_Register_HashesPasswordAndIssuesToken(t *testing.T) {
	var added *model.User
	users := &mockUserRegistry{
		addFn: func(ctx context.Context, u *model.User) error {
			added = u
			return nil
		},
	}
	tokens := &mockTokenIssuer{}
	svc := NewService(users, testHasher, tokens, nil)

	token, err := svc.Register(context.Background(), Registration{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "password1",
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if token != "token-for-alice" {
		t.Errorf("token = %q", token)
	}
	if added == nil {
		t.Fatal("expected Add to be called")
	}
	if added.PasswordHash == "password1" {
		t.Error("password must be stored hashed")
	}
	if err := testHasher.Compare(added.PasswordHash, "password1"); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
	if added.Email != "alice@example.com" {
		t.Errorf("Email = %q", added.Email)
	}
}

func TestService_Register_DuplicateUsername(t *testing.T) {
	users := &mockUserRegistry{
		addFn: func(ctx context.Context, u *model.User) error {
			return model.NewUserAlreadyExistsError(u.Username)
		},
	}
	tokens := &mockTokenIssuer{}
	svc := NewService(users, testHasher, tokens, nil)

	_, err := svc.Register(context.Background(), Registration{Username: "alice", Password: "password1"})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != model.ErrTypeAlreadyExists {
		t.Fatalf("err = %v, want ALREADY_EXISTS_ERROR", err)
	}
	if len(tokens.issued) != 0 {
		t.Error("no token should be issued when registration fails")
	}
}

func TestService_Login_Success(t *testing.T) {
	tokens := &mockTokenIssuer{}
	svc := NewService(registeredUser(t, model.StatusActive), testHasher, tokens, nil)

	token, err := svc.Login(context.Background(), "alice", "password1")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if token != "token-for-alice" {
		t.Errorf("token = %q", token)
	}
}

func TestService_Login_BadCredentials(t *testing.T) {
	tests := []struct {
		name     string
		username string
		password string
	}{
		{"unknown user", "mallory", "password1"},
		{"wrong password", "alice", "password2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &mockFailureRecorder{}
			svc := NewService(registeredUser(t, model.StatusActive), testHasher, &mockTokenIssuer{}, rec)

			_, err := svc.Login(context.Background(), tt.username, tt.password)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *model.APIError", err)
			}
			if apiErr.HTTPStatus() != http.StatusUnauthorized {
				t.Errorf("HTTPStatus = %d, want 401", apiErr.HTTPStatus())
			}
			if apiErr.Message != "Username or password incorrect" {
				t.Errorf("Message = %q", apiErr.Message)
			}
			if len(rec.reasons) != 1 || rec.reasons[0] != FailureBadCredentials {
				t.Errorf("recorded reasons = %v", rec.reasons)
			}
		})
	}
}

func TestService_Login_DisabledUser(t *testing.T) {
	rec := &mockFailureRecorder{}
	tokens := &mockTokenIssuer{}
	svc := NewService(registeredUser(t, model.StatusDeleted), testHasher, tokens, rec)

	_, err := svc.Login(context.Background(), "alice", "password1")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *model.APIError", err)
	}
	if apiErr.HTTPStatus() != http.StatusUnauthorized {
		t.Errorf("HTTPStatus = %d, want 401", apiErr.HTTPStatus())
	}
	if apiErr.Message != "User is disabled" {
		t.Errorf("Message = %q", apiErr.Message)
	}
	if len(tokens.issued) != 0 {
		t.Error("no token should be issued for a disabled user")
	}
	if len(rec.reasons) != 1 || rec.reasons[0] != FailureDisabled {
		t.Errorf("recorded reasons = %v", rec.reasons)
	}
}

func TestService_Login_StoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	users := &mockUserRegistry{
		getByUsernameFn: func(context.Context, string) (*model.User, error) {
			return nil, storeErr
		},
	}
	svc := NewService(users, testHasher, &mockTokenIssuer{}, nil)

	_, err := svc.Login(context.Background(), "alice", "password1")
	if !errors.Is(err, storeErr) {
		t.Errorf("err = %v, want wrapped store error", err)
	}
}
