package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/flowershop/admin-api/internal/domain"
	"github.com/flowershop/admin-api/internal/platform/mail"
	"github.com/flowershop/admin-api/internal/platform/textutil"
	"github.com/flowershop/admin-api/internal/platform/validation"
	"github.com/flowershop/admin-api/internal/repositories"
)

const (
	accountEventCreated       = "account.created"
	accountEventUpdated       = "account.updated"
	accountEventActiveChanged = "account.active.changed"
	accountEventDeleted       = "account.deleted"
	accountEventPasswordReset = "account.password.reset"

	msgAccountNotFound = "Account not found!"
	msgEmailExists     = "Email already exists!"

	defaultGeneratedPasswordLength = 12
	passwordAlphabet               = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"
)

var (
	// ErrAccountInvalidInput signals the caller provided invalid data.
	ErrAccountInvalidInput = errors.New("account: invalid input")
	// ErrAccountNotFound indicates the user or its account is missing or soft deleted.
	ErrAccountNotFound = errors.New("account: not found")
	// ErrAccountConflict indicates the email is already registered.
	ErrAccountConflict = errors.New("account: conflict")
	// ErrAccountUnavailable indicates the store failed.
	ErrAccountUnavailable = errors.New("account: unavailable")
	// ErrAccountNotification indicates the credential email could not be sent. The
	// surrounding transaction is rolled back.
	ErrAccountNotification = errors.New("account: notification failed")
)

var accountRepoErrors = repoErrorMapping{
	notFound:    ErrAccountNotFound,
	conflict:    ErrAccountConflict,
	unavailable: ErrAccountUnavailable,
}

// AccountServiceDeps bundles collaborators required to construct the account service.
type AccountServiceDeps struct {
	Users      repositories.UserRepository
	Accounts   repositories.AccountRepository
	UnitOfWork repositories.UnitOfWork
	Mailer     CredentialMailer
	Sender     mail.Sender
	Validator  *validation.Validator
	// GeneratePassword returns a new plaintext password. Defaults to a random alphanumeric
	// string of PasswordLength characters.
	GeneratePassword func() (string, error)
	PasswordLength   int
	// HashPassword defaults to bcrypt with BcryptCost.
	HashPassword func(password string) (string, error)
	BcryptCost   int
	Clock        func() time.Time
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

type accountService struct {
	users        repositories.UserRepository
	accounts     repositories.AccountRepository
	unitOfWork   repositories.UnitOfWork
	mailer       CredentialMailer
	sender       mail.Sender
	validator    *validation.Validator
	generate     func() (string, error)
	hashPassword func(string) (string, error)
	clock        func() time.Time
	logger       logFunc
}

var _ AccountService = (*accountService)(nil)

// NewAccountService wires dependencies into a concrete AccountService implementation.
func NewAccountService(deps AccountServiceDeps) (AccountService, error) {
	switch {
	case deps.Users == nil:
		return nil, errors.New("account service: user repository is required")
	case deps.Accounts == nil:
		return nil, errors.New("account service: account repository is required")
	case deps.Mailer == nil:
		return nil, errors.New("account service: mailer is required")
	case deps.Sender == nil:
		return nil, errors.New("account service: mail sender is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}
	validator := deps.Validator
	if validator == nil {
		validator = validation.New()
	}
	generate := deps.GeneratePassword
	if generate == nil {
		length := deps.PasswordLength
		if length <= 0 {
			length = defaultGeneratedPasswordLength
		}
		generate = func() (string, error) { return randomPassword(length) }
	}
	hash := deps.HashPassword
	if hash == nil {
		cost := deps.BcryptCost
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		hash = func(password string) (string, error) {
			out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
			return string(out), err
		}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}

	return &accountService{
		users:        deps.Users,
		accounts:     deps.Accounts,
		unitOfWork:   unit,
		mailer:       deps.Mailer,
		sender:       deps.Sender,
		validator:    validator,
		generate:     generate,
		hashPassword: hash,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

func (s *accountService) ListAccounts(ctx context.Context, query ListQuery) (domain.Page[AccountView], error) {
	query.Keyword = strings.TrimSpace(query.Keyword)
	page, err := s.accounts.List(ctx, query)
	if err != nil {
		return domain.Page[AccountView]{}, accountRepoErrors.translate(err, "")
	}
	return page, nil
}

func (s *accountService) GetAccount(ctx context.Context, userID string) (AccountView, error) {
	view, err := s.accounts.View(ctx, strings.TrimSpace(userID))
	if err != nil {
		return AccountView{}, accountRepoErrors.translate(err, msgAccountNotFound)
	}
	return view, nil
}

// CreateAccount stores the user and its account, then mails the generated password. A
// failed email rolls both records back.
func (s *accountService) CreateAccount(ctx context.Context, cmd CreateAccountCommand) (User, error) {
	cmd.Name = strings.TrimSpace(cmd.Name)
	cmd.Email = strings.ToLower(strings.TrimSpace(cmd.Email))
	cmd.Role = strings.TrimSpace(cmd.Role)
	if err := validateInput(s.validator, ErrAccountInvalidInput, cmd); err != nil {
		return User{}, err
	}
	base := BaseUsername(cmd.Name)
	if base == "" {
		return User{}, fmt.Errorf("%w: name must contain at least one letter", ErrAccountInvalidInput)
	}

	actor := actorOrSystem(ctx, cmd.ActorID)
	now := s.clock()
	var (
		created  User
		username string
	)
	err := s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		taken, err := s.users.EmailTaken(txCtx, cmd.Email, "")
		if err != nil {
			return accountRepoErrors.translate(err, "")
		}
		if taken {
			return fmt.Errorf("%w: %s", ErrAccountConflict, msgEmailExists)
		}

		username, err = s.uniqueUsername(txCtx, base)
		if err != nil {
			return err
		}

		audit := domain.Audit{CreatedAt: now, CreatedBy: actor}
		user, err := s.users.Insert(txCtx, User{
			Name:        cmd.Name,
			Email:       cmd.Email,
			Role:        cmd.Role,
			Avatar:      strings.TrimSpace(cmd.Avatar),
			CitizenID:   strings.TrimSpace(cmd.CitizenID),
			PhoneNumber: strings.TrimSpace(cmd.PhoneNumber),
			Audit:       audit,
		})
		if err != nil {
			return accountRepoErrors.translate(err, "")
		}

		password, hash, err := s.newCredentials()
		if err != nil {
			return err
		}
		if _, err := s.accounts.Insert(txCtx, Account{
			UserID:       user.ID,
			Username:     username,
			PasswordHash: hash,
			IsActived:    cmd.IsActived,
			Audit:        audit,
		}); err != nil {
			return accountRepoErrors.translate(err, "")
		}

		msg, err := s.mailer.AccountCreated(user.Email, username, password)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrAccountNotification, err)
		}
		if err := s.sender.SendMail(txCtx, msg); err != nil {
			return fmt.Errorf("%w: %v", ErrAccountNotification, err)
		}
		created = user
		return nil
	})
	if err != nil {
		return User{}, err
	}

	s.logger(ctx, accountEventCreated, map[string]any{
		"userId":   created.ID,
		"username": username,
		"actor":    actor,
	})
	return created, nil
}

func (s *accountService) UpdateAccount(ctx context.Context, cmd UpdateAccountCommand) (User, error) {
	cmd.UserID = strings.TrimSpace(cmd.UserID)
	cmd.Name = strings.TrimSpace(cmd.Name)
	cmd.Email = strings.ToLower(strings.TrimSpace(cmd.Email))
	cmd.Role = strings.TrimSpace(cmd.Role)
	if cmd.UserID == "" {
		return User{}, fmt.Errorf("%w: user id is required", ErrAccountInvalidInput)
	}
	if err := validateInput(s.validator, ErrAccountInvalidInput, cmd); err != nil {
		return User{}, err
	}

	actor := actorOrSystem(ctx, cmd.ActorID)
	now := s.clock()
	var updated User
	err := s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.requirePair(txCtx, cmd.UserID)
		if err != nil {
			return err
		}
		taken, err := s.users.EmailTaken(txCtx, cmd.Email, current.ID)
		if err != nil {
			return accountRepoErrors.translate(err, "")
		}
		if taken {
			return fmt.Errorf("%w: %s", ErrAccountConflict, msgEmailExists)
		}
		current.Name = cmd.Name
		current.Email = cmd.Email
		current.Role = cmd.Role
		current.Avatar = strings.TrimSpace(cmd.Avatar)
		current.CitizenID = strings.TrimSpace(cmd.CitizenID)
		current.PhoneNumber = strings.TrimSpace(cmd.PhoneNumber)
		current.UpdatedAt = &now
		current.UpdatedBy = actor
		stored, err := s.users.Update(txCtx, current)
		if err != nil {
			return accountRepoErrors.translate(err, msgAccountNotFound)
		}
		updated = stored
		return nil
	})
	if err != nil {
		return User{}, err
	}
	s.logger(ctx, accountEventUpdated, map[string]any{"userId": updated.ID, "actor": actor})
	return updated, nil
}

func (s *accountService) SetAccountActive(ctx context.Context, cmd SetAccountActiveCommand) (Account, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return Account{}, fmt.Errorf("%w: user id is required", ErrAccountInvalidInput)
	}
	actor := actorOrSystem(ctx, cmd.ActorID)
	now := s.clock()
	var account Account
	err := s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.requirePair(txCtx, userID); err != nil {
			return err
		}
		stored, err := s.accounts.SetActive(txCtx, userID, cmd.IsActived, actor, now)
		if err != nil {
			return accountRepoErrors.translate(err, msgAccountNotFound)
		}
		account = stored
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	s.logger(ctx, accountEventActiveChanged, map[string]any{
		"userId":    userID,
		"isActived": cmd.IsActived,
		"actor":     actor,
	})
	return account, nil
}

func (s *accountService) DeleteAccount(ctx context.Context, cmd DeleteAccountCommand) error {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrAccountInvalidInput)
	}
	actor := actorOrSystem(ctx, cmd.ActorID)
	stamp := repositories.SoftDelete{Actor: actor, At: s.clock()}
	err := s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.requirePair(txCtx, userID); err != nil {
			return err
		}
		if err := s.users.SoftDelete(txCtx, userID, stamp); err != nil {
			return accountRepoErrors.translate(err, msgAccountNotFound)
		}
		if err := s.accounts.SoftDeleteByUser(txCtx, userID, stamp); err != nil {
			return accountRepoErrors.translate(err, msgAccountNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger(ctx, accountEventDeleted, map[string]any{"userId": userID, "actor": actor})
	return nil
}

// ResetPassword stores a new hash and mails the plaintext inside one transaction, so a
// failed email leaves the old password in place.
func (s *accountService) ResetPassword(ctx context.Context, cmd ResetPasswordCommand) error {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrAccountInvalidInput)
	}
	actor := actorOrSystem(ctx, cmd.ActorID)
	now := s.clock()
	err := s.unitOfWork.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.requirePair(txCtx, userID)
		if err != nil {
			return err
		}
		password, hash, err := s.newCredentials()
		if err != nil {
			return err
		}
		if err := s.accounts.SetPassword(txCtx, userID, hash, actor, now); err != nil {
			return accountRepoErrors.translate(err, msgAccountNotFound)
		}
		msg, err := s.mailer.PasswordReset(user.Email, password)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrAccountNotification, err)
		}
		if err := s.sender.SendMail(txCtx, msg); err != nil {
			return fmt.Errorf("%w: %v", ErrAccountNotification, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger(ctx, accountEventPasswordReset, map[string]any{"userId": userID, "actor": actor})
	return nil
}

// requirePair loads the user and checks it still owns a live account.
func (s *accountService) requirePair(ctx context.Context, userID string) (User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return User{}, accountRepoErrors.translate(err, msgAccountNotFound)
	}
	if _, err := s.accounts.FindByUserID(ctx, userID); err != nil {
		return User{}, accountRepoErrors.translate(err, msgAccountNotFound)
	}
	return user, nil
}

func (s *accountService) uniqueUsername(ctx context.Context, base string) (string, error) {
	candidate := base
	for n := 2; ; n++ {
		taken, err := s.accounts.UsernameTaken(ctx, candidate)
		if err != nil {
			return "", accountRepoErrors.translate(err, "")
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(n)
	}
}

func (s *accountService) newCredentials() (password, hash string, err error) {
	password, err = s.generate()
	if err != nil {
		return "", "", fmt.Errorf("%w: generate password: %v", ErrAccountUnavailable, err)
	}
	hash, err = s.hashPassword(password)
	if err != nil {
		return "", "", fmt.Errorf("%w: hash password: %v", ErrAccountUnavailable, err)
	}
	return password, hash, nil
}

// BaseUsername derives the login name from a full name: the last word capitalised followed
// by the initials of the preceding words, after transliteration to ASCII.
// "Nguyễn Văn An" becomes "AnNV".
func BaseUsername(name string) string {
	words := textutil.Words(textutil.ToASCII(name))
	if len(words) == 0 {
		return ""
	}
	last := words[len(words)-1]
	var b strings.Builder
	b.WriteString(textutil.Capitalize(last))
	for _, w := range words[:len(words)-1] {
		b.WriteString(strings.ToUpper(string([]rune(w)[0])))
	}
	return b.String()
}

func randomPassword(length int) (string, error) {
	max := big.NewInt(int64(len(passwordAlphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}
