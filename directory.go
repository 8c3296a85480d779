package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const maxLoginLength = 32

var loginSanitizer = regexp.MustCompile(`[^0-9A-Za-z_-]+`)

// UserDirectory looks up and registers users. Registration derives the login
// handle from the email local part and never overwrites an existing account.
type UserDirectory struct {
	users      Users
	logger     Logger
	useHashids bool
	now        func() time.Time
}

func NewUserDirectory(users Users) *UserDirectory {
	return &UserDirectory{
		users:  users,
		logger: defLogger{},
		now:    time.Now,
	}
}

// WithLogger overrides the default logger.
func (d *UserDirectory) WithLogger(logger Logger) *UserDirectory {
	if logger != nil {
		d.logger = logger
	}
	return d
}

// WithDeterministicIDs derives user IDs from the email address instead of
// generating random ones.
func (d *UserDirectory) WithDeterministicIDs(enabled bool) *UserDirectory {
	d.useHashids = enabled
	return d
}

// WithClock overrides the time source, mostly for tests.
func (d *UserDirectory) WithClock(now func() time.Time) *UserDirectory {
	if now != nil {
		d.now = now
	}
	return d
}

func (d *UserDirectory) FindByEmail(ctx context.Context, email string) (*User, error) {
	user, err := d.users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryNotFound, "user not found").
				WithTextCode(TextCodeUserNotFound).
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user")
	}
	return user, nil
}

func (d *UserDirectory) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := d.users.GetByID(ctx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryNotFound, "user not found").
				WithTextCode(TextCodeUserNotFound).
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up user")
	}
	return user, nil
}

func (d *UserDirectory) Create(ctx context.Context, email string, isAdmin bool) (*User, error) {
	return d.CreateTx(ctx, nil, email, isAdmin)
}

// CreateTx registers a new account for the email. The login handle comes from
// the sanitized local part of the address, falling back to a handle derived
// from the user ID when sanitization leaves nothing usable.
func (d *UserDirectory) CreateTx(ctx context.Context, tx bun.IDB, email string, isAdmin bool) (*User, error) {
	email = NormalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}

	id := uuid.New()
	if d.useHashids {
		if hid, err := hashid.NewUUID(email); err == nil {
			id = hid
		}
	}

	login := deriveLogin(email)
	if login == "" {
		login = "user_" + id.String()[:8]
	}

	role := RoleNone
	if isAdmin {
		role = RoleAdmin
	}

	now := d.now().UTC()
	user := &User{
		ID:        id,
		Login:     login,
		Name:      login,
		Email:     email,
		Role:      role,
		CreatedAt: &now,
		UpdatedAt: &now,
	}

	var err error
	if tx != nil {
		_, err = d.users.CreateTx(ctx, tx, user)
	} else {
		_, err = d.users.Create(ctx, user)
	}
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create user").
			WithMetadata(map[string]any{
				"email": email,
			})
	}

	d.logger.Info("registered user %s (%s)", user.Login, user.Email)

	return user, nil
}

// TouchLogin records a successful login on an existing account.
func (d *UserDirectory) TouchLogin(ctx context.Context, id uuid.UUID) error {
	if err := d.users.TouchLogin(ctx, id); err != nil {
		if repository.IsRecordNotFound(err) {
			return goerrors.Wrap(err, goerrors.CategoryNotFound, "user not found").
				WithTextCode(TextCodeUserNotFound).
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update login timestamp")
	}
	return nil
}

// deriveLogin turns the email's local part into a login handle: strip
// everything outside [0-9A-Za-z_-], lowercase, and truncate.
func deriveLogin(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found {
		return ""
	}

	login := loginSanitizer.ReplaceAllString(local, "")
	login = strings.ToLower(login)
	if len(login) > maxLoginLength {
		login = login[:maxLoginLength]
	}

	return login
}
