package identity

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	u, err := svc.Register(context.Background(), RegisterInput{
		Email:     " Ada@Example.COM ",
		FirstName: "Ada",
		LastName:  "Obi",
		Password:  "correct horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "ada@example.com" {
		t.Fatalf("email must be normalized, got %q", u.Email)
	}
	if u.ID == "" {
		t.Fatal("expected a generated id")
	}

	got, err := svc.Authenticate(context.Background(), "ada@example.com", "correct horse")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("expected user %s, got %s", u.ID, got.ID)
	}
	if got.LastLogin.IsZero() {
		t.Fatal("expected last login to be stamped")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	cases := []RegisterInput{
		{Email: "", FirstName: "Ada", Password: "long enough"},
		{Email: "not-an-email", FirstName: "Ada", Password: "long enough"},
		{Email: "ada@example.com", FirstName: "Ada", Password: "short"},
		{Email: "ada@example.com", FirstName: "", Password: "long enough"},
	}
	for _, input := range cases {
		if _, err := svc.Register(context.Background(), input); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("input %+v: expected ErrInvalidInput, got %v", input, err)
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	input := RegisterInput{Email: "ada@example.com", FirstName: "Ada", Password: "long enough"}
	if _, err := svc.Register(context.Background(), input); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := svc.Register(context.Background(), input); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	svc := NewService(NewMemoryRepository())

	if _, err := svc.Register(context.Background(), RegisterInput{
		Email: "ada@example.com", FirstName: "Ada", Password: "correct horse",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := svc.Authenticate(context.Background(), "ada@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody@example.com", "correct horse"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: expected ErrInvalidCredentials, got %v", err)
	}
}
