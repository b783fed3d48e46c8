package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/flowershop/admin-api/internal/domain"
)

const testUserID = "665f0000000000000000a0a0"

type accountFixture struct {
	svc      AccountService
	users    *stubUserRepository
	accounts *stubAccountRepository
	sender   *recordingSender
	unit     *recordingUnitOfWork
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()
	f := &accountFixture{
		users: &stubUserRepository{users: map[string]domain.User{
			testUserID: {ID: testUserID, Name: "Tran Thi Binh", Email: "binh@example.com", Role: "Staff"},
		}},
		accounts: &stubAccountRepository{
			accounts:  map[string]domain.Account{testUserID: {UserID: testUserID, Username: "BinhTT", IsActived: true}},
			usernames: map[string]bool{},
		},
		sender: &recordingSender{},
		unit:   &recordingUnitOfWork{},
	}
	svc, err := NewAccountService(AccountServiceDeps{
		Users:            f.users,
		Accounts:         f.accounts,
		UnitOfWork:       f.unit,
		Mailer:           stubMailer{},
		Sender:           f.sender,
		GeneratePassword: func() (string, error) { return "s3cretPass", nil },
		BcryptCost:       bcrypt.MinCost,
		Clock:            func() time.Time { return time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("NewAccountService: %v", err)
	}
	f.svc = svc
	return f
}

func TestBaseUsername(t *testing.T) {
	cases := map[string]string{
		"Nguyen Van An":     "AnNV",
		"Nguyễn Văn An":     "AnNV",
		"  đặng   thị  mai": "MaiDT",
		"Cher":              "Cher",
		"   ":               "",
	}
	for in, want := range cases {
		if got := BaseUsername(in); got != want {
			t.Fatalf("BaseUsername(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAccountServiceCreateAccount(t *testing.T) {
	f := newAccountFixture(t)

	user, err := f.svc.CreateAccount(context.Background(), CreateAccountCommand{
		Name:      "Nguyễn Văn An",
		Email:     " An@Example.com ",
		Role:      "Staff",
		IsActived: true,
		ActorID:   "admin",
	})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if user.Email != "an@example.com" {
		t.Fatalf("expected lowercased email, got %q", user.Email)
	}
	if len(f.accounts.inserted) != 1 {
		t.Fatalf("expected one account insert, got %d", len(f.accounts.inserted))
	}
	account := f.accounts.inserted[0]
	if account.Username != "AnNV" || account.UserID != user.ID || !account.IsActived {
		t.Fatalf("unexpected account %+v", account)
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("s3cretPass")) != nil {
		t.Fatalf("expected bcrypt hash of generated password")
	}
	if len(f.sender.sent) != 1 || f.sender.sent[0].To != "an@example.com" {
		t.Fatalf("expected credentials email, got %+v", f.sender.sent)
	}
	if !strings.Contains(f.sender.sent[0].HTML, "AnNV:s3cretPass") {
		t.Fatalf("expected username and password in mail, got %q", f.sender.sent[0].HTML)
	}
}

func TestAccountServiceCreateAccountSuffixesTakenUsername(t *testing.T) {
	f := newAccountFixture(t)
	f.accounts.usernames["AnNV"] = true
	f.accounts.usernames["AnNV2"] = true

	if _, err := f.svc.CreateAccount(context.Background(), CreateAccountCommand{
		Name: "Nguyen Van An", Email: "an2@example.com", Role: "Staff",
	}); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if got := f.accounts.inserted[0].Username; got != "AnNV3" {
		t.Fatalf("expected AnNV3, got %q", got)
	}
}

func TestAccountServiceCreateAccountEmailConflict(t *testing.T) {
	f := newAccountFixture(t)
	f.users.emailTaken = true

	_, err := f.svc.CreateAccount(context.Background(), CreateAccountCommand{
		Name: "Nguyen Van An", Email: "binh@example.com", Role: "Staff",
	})
	if !errors.Is(err, ErrAccountConflict) || !strings.Contains(err.Error(), "Email already exists!") {
		t.Fatalf("expected email conflict, got %v", err)
	}
	if len(f.users.inserted) != 0 || len(f.sender.sent) != 0 {
		t.Fatalf("expected nothing stored or sent")
	}
}

func TestAccountServiceCreateAccountMailFailure(t *testing.T) {
	f := newAccountFixture(t)
	f.sender.err = errors.New("smtp down")

	_, err := f.svc.CreateAccount(context.Background(), CreateAccountCommand{
		Name: "Nguyen Van An", Email: "an@example.com", Role: "Staff",
	})
	if !errors.Is(err, ErrAccountNotification) {
		t.Fatalf("expected notification error, got %v", err)
	}
	if f.unit.calls != 1 {
		t.Fatalf("expected the mail to be sent inside the transaction")
	}
}

func TestAccountServiceCreateAccountValidation(t *testing.T) {
	f := newAccountFixture(t)
	_, err := f.svc.CreateAccount(context.Background(), CreateAccountCommand{Name: "An", Email: "not-an-email", Role: "Staff"})
	if !errors.Is(err, ErrAccountInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	_, err = f.svc.CreateAccount(context.Background(), CreateAccountCommand{Name: "   ", Email: "a@example.com", Role: "Staff"})
	if !errors.Is(err, ErrAccountInvalidInput) {
		t.Fatalf("expected invalid input for blank name, got %v", err)
	}
}

func TestAccountServiceUpdateAccount(t *testing.T) {
	f := newAccountFixture(t)

	user, err := f.svc.UpdateAccount(context.Background(), UpdateAccountCommand{
		UserID: testUserID,
		Name:   "Tran Thi Binh",
		Email:  "Binh.Tran@example.com",
		Role:   "Manager",
	})
	if err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	if user.Email != "binh.tran@example.com" || user.Role != "Manager" || user.UpdatedAt == nil {
		t.Fatalf("unexpected user %+v", user)
	}
	if got := f.users.emailArgs[0]; got != "binh.tran@example.com|"+testUserID {
		t.Fatalf("expected email check excluding self, got %q", got)
	}

	_, err = f.svc.UpdateAccount(context.Background(), UpdateAccountCommand{
		UserID: "665f0000000000000000a0ff", Name: "X", Email: "x@example.com", Role: "Staff",
	})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAccountServiceSetAccountActive(t *testing.T) {
	f := newAccountFixture(t)

	account, err := f.svc.SetAccountActive(context.Background(), SetAccountActiveCommand{UserID: testUserID, IsActived: false})
	if err != nil {
		t.Fatalf("SetAccountActive: %v", err)
	}
	if account.IsActived {
		t.Fatalf("expected account locked")
	}
	if _, err := f.svc.SetAccountActive(context.Background(), SetAccountActiveCommand{UserID: "missing"}); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAccountServiceSetAccountActiveRequiresUser(t *testing.T) {
	f := newAccountFixture(t)
	delete(f.users.users, testUserID)

	_, err := f.svc.SetAccountActive(context.Background(), SetAccountActiveCommand{UserID: testUserID, IsActived: false})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected not found for account without user, got %v", err)
	}
	if f.unit.calls != 1 {
		t.Fatalf("expected one transaction, got %d", f.unit.calls)
	}
	if !f.accounts.accounts[testUserID].IsActived {
		t.Fatalf("expected account left active")
	}
}

func TestAccountServiceDeleteAccount(t *testing.T) {
	f := newAccountFixture(t)

	if err := f.svc.DeleteAccount(context.Background(), DeleteAccountCommand{UserID: testUserID}); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if len(f.users.deleted) != 1 || len(f.accounts.deleted) != 1 {
		t.Fatalf("expected user and account soft deleted")
	}

	delete(f.accounts.accounts, testUserID)
	if err := f.svc.DeleteAccount(context.Background(), DeleteAccountCommand{UserID: testUserID}); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected not found for user without account, got %v", err)
	}
}

func TestAccountServiceResetPassword(t *testing.T) {
	f := newAccountFixture(t)

	if err := f.svc.ResetPassword(context.Background(), ResetPasswordCommand{UserID: testUserID}); err != nil {
		t.Fatalf("ResetPassword: %v", err)
	}
	hash := f.accounts.passwords[testUserID]
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cretPass")) != nil {
		t.Fatalf("expected new bcrypt hash")
	}
	if len(f.sender.sent) != 1 || f.sender.sent[0].Subject != "reset" {
		t.Fatalf("expected reset email, got %+v", f.sender.sent)
	}

	f.sender.err = errors.New("smtp down")
	if err := f.svc.ResetPassword(context.Background(), ResetPasswordCommand{UserID: testUserID}); !errors.Is(err, ErrAccountNotification) {
		t.Fatalf("expected notification error, got %v", err)
	}
}

func TestAccountServiceGetAccountNotFound(t *testing.T) {
	f := newAccountFixture(t)
	_, err := f.svc.GetAccount(context.Background(), testUserID)
	if !errors.Is(err, ErrAccountNotFound) || !strings.Contains(err.Error(), "Account not found!") {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRandomPassword(t *testing.T) {
	pw, err := randomPassword(16)
	if err != nil {
		t.Fatalf("randomPassword: %v", err)
	}
	if len(pw) != 16 {
		t.Fatalf("expected 16 characters, got %d", len(pw))
	}
	for _, r := range pw {
		if !strings.ContainsRune(passwordAlphabet, r) {
			t.Fatalf("unexpected character %q", r)
		}
	}
}
