// Package service authenticates callers: password logins for admins and
// students, logout through the token revocation list, onboarding, and the
// principal lookup the auth middleware runs on every request.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks UserStore,HouseStore,SocietyStore,TokenIssuer,RevocationList,Lockout,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"campusvote/internal/auth/metrics"
	"campusvote/internal/auth/store/revocation"
	houseModels "campusvote/internal/house/models"
	jwttoken "campusvote/internal/jwt_token"
	societyModels "campusvote/internal/society/models"
	userModels "campusvote/internal/user/models"
	"campusvote/pkg/attrs"
	id "campusvote/pkg/domain"
	dErrors "campusvote/pkg/domain-errors"
	"campusvote/pkg/email"
	"campusvote/pkg/platform/audit"
	"campusvote/pkg/platform/sentinel"
	"campusvote/pkg/platform/tx"
	"campusvote/pkg/requestcontext"
	"campusvote/pkg/secrets"
)

type UserStore interface {
	Create(ctx context.Context, user *userModels.User) error
	Update(ctx context.Context, user *userModels.User) error
	FindByID(ctx context.Context, userID id.UserID) (*userModels.User, error)
	FindByEmail(ctx context.Context, email string) (*userModels.User, error)
	FindByExternalID(ctx context.Context, externalID string) (*userModels.User, error)
}

type HouseStore interface {
	FindByID(ctx context.Context, houseID id.HouseID) (*houseModels.House, error)
	Update(ctx context.Context, house *houseModels.House) error
}

type SocietyStore interface {
	FindByID(ctx context.Context, societyID id.SocietyID) (*societyModels.Society, error)
	Update(ctx context.Context, society *societyModels.Society) error
}

type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID, role id.Role, expiresIn time.Duration) (*jwttoken.IssuedToken, error)
}

// RevocationList records logged-out tokens until they would have expired.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

// Lockout throttles password guessing per email and client IP.
type Lockout interface {
	Check(ctx context.Context, identifier, ip string) error
	RecordFailure(ctx context.Context, identifier, ip string) error
	Clear(ctx context.Context, identifier, ip string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config carries deployment settings.
type Config struct {
	AdminEmail string
	TokenTTL   time.Duration
}

type Service struct {
	users          UserStore
	houses         HouseStore
	societies      SocietyStore
	tokens         TokenIssuer
	revocations    RevocationList
	lockout        Lockout
	tx             tx.Runner
	cfg            Config
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLockout(l Lockout) Option {
	return func(s *Service) {
		s.lockout = l
	}
}

func New(users UserStore, houses HouseStore, societies SocietyStore, tokens TokenIssuer, revocations RevocationList, runner tx.Runner, cfg Config, opts ...Option) *Service {
	cfg.AdminEmail = email.Normalize(cfg.AdminEmail)
	s := &Service{
		users:       users,
		houses:      houses,
		societies:   societies,
		tokens:      tokens,
		revocations: revocations,
		tx:          runner,
		cfg:         cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginResult is an issued access token and the user it belongs to.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *userModels.User
}

// OnboardUser is the profile a new student fills in after first sign-in.
type OnboardUser struct {
	Name       string
	StudentID  string
	HouseID    *id.HouseID
	SocietyIDs []id.SocietyID
}

var errInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")

// AdminLogin signs in the configured administrator. Every failure returns
// the same error so the response does not reveal which check failed.
func (s *Service) AdminLogin(ctx context.Context, address, password string) (*LoginResult, error) {
	address = email.Normalize(address)
	user, err := s.authenticate(ctx, address, password, func(u *userModels.User) bool {
		return address == s.cfg.AdminEmail && u.Role == id.RoleAdmin
	})
	if err != nil {
		s.loginFailed(ctx, metrics.KindAdmin, address, err)
		return nil, err
	}
	return s.issue(ctx, user, metrics.KindAdmin, audit.EventAdminLogin)
}

// Login signs in a non-admin user that has a password set.
func (s *Service) Login(ctx context.Context, address, password string) (*LoginResult, error) {
	address = email.Normalize(address)
	user, err := s.authenticate(ctx, address, password, func(u *userModels.User) bool {
		return u.Role != id.RoleAdmin
	})
	if err != nil {
		s.loginFailed(ctx, metrics.KindUser, address, err)
		return nil, err
	}
	return s.issue(ctx, user, metrics.KindUser, audit.EventUserLogin)
}

func (s *Service) authenticate(ctx context.Context, address, password string, allowed func(*userModels.User) bool) (*userModels.User, error) {
	if s.lockout == nil {
		return s.verifyCredentials(ctx, address, password, allowed)
	}
	ip := requestcontext.ClientIP(ctx)
	if err := s.lockout.Check(ctx, address, ip); err != nil {
		return nil, err
	}
	user, err := s.verifyCredentials(ctx, address, password, allowed)
	switch {
	case err == nil:
		if clearErr := s.lockout.Clear(ctx, address, ip); clearErr != nil {
			s.warn(ctx, "failed to clear auth failures", clearErr)
		}
	case dErrors.HasCode(err, dErrors.CodeUnauthorized):
		if recordErr := s.lockout.RecordFailure(ctx, address, ip); recordErr != nil {
			s.warn(ctx, "failed to record auth failure", recordErr)
		}
	}
	return user, err
}

func (s *Service) verifyCredentials(ctx context.Context, address, password string, allowed func(*userModels.User) bool) (*userModels.User, error) {
	if address == "" || password == "" {
		return nil, errInvalidCredentials
	}
	user, err := s.users.FindByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if !user.Active || !user.HasPassword() || !allowed(user) {
		return nil, errInvalidCredentials
	}
	if err := secrets.Verify(password, user.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, errInvalidCredentials
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password")
	}
	return user, nil
}

func (s *Service) issue(ctx context.Context, user *userModels.User, kind string, event audit.AuditEvent) (*LoginResult, error) {
	token, err := s.tokens.GenerateAccessToken(user.ID, user.Role, s.cfg.TokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	if s.metrics != nil {
		s.metrics.IncrementLogin(kind, metrics.ResultSuccess)
	}
	s.logAudit(ctx, event, "user_id", user.ID, "email", user.Email)
	return &LoginResult{Token: token.Token, ExpiresAt: token.ExpiresAt, User: user}, nil
}

func (s *Service) loginFailed(ctx context.Context, kind, address string, err error) {
	if s.metrics != nil {
		s.metrics.IncrementLogin(kind, metrics.ResultFailure)
	}
	if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
		s.logAudit(ctx, audit.EventAuthFailed, "email", address, "reason", kind+"_login")
	}
}

// Logout revokes the caller's current token for the rest of its lifetime.
func (s *Service) Logout(ctx context.Context) error {
	token, ok := requestcontext.AccessToken(ctx)
	if !ok || token.JTI == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "you are not logged in")
	}
	ttl := revocation.TTLFor(token.ExpiresAt, requestcontext.Now(ctx))
	if ttl == 0 {
		return nil
	}
	if err := s.revocations.RevokeToken(ctx, token.JTI, ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token")
	}
	if s.metrics != nil {
		s.metrics.IncrementTokensRevoked()
	}
	s.logAudit(ctx, audit.EventTokenRevoked)
	return nil
}

// Status returns the caller's profile.
func (s *Service) Status(ctx context.Context) (*userModels.User, error) {
	return s.loadCaller(ctx)
}

// Onboard records the caller's profile and marks them onboarded. The house
// and societies must exist, and the caller is added to their member lists.
func (s *Service) Onboard(ctx context.Context, in OnboardUser) (*userModels.User, error) {
	studentID := strings.TrimSpace(in.StudentID)
	var user *userModels.User
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.loadCaller(ctx)
		if err != nil {
			return err
		}
		if err := user.Rename(in.Name); err != nil {
			return asValidation(err)
		}
		if studentID == "" {
			return dErrors.New(dErrors.CodeValidation, "student id is required")
		}
		now := requestcontext.Now(ctx)
		if in.HouseID != nil {
			if err := s.joinHouse(ctx, user, *in.HouseID, now); err != nil {
				return err
			}
		}
		for _, societyID := range in.SocietyIDs {
			if err := s.joinSociety(ctx, user, societyID, now); err != nil {
				return err
			}
		}
		user.StudentID = studentID
		user.Onboarded = true
		user.UpdatedAt = now
		if err := s.users.Update(ctx, user); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyExists) {
				return dErrors.New(dErrors.CodeConflict, "student id is already registered")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, audit.EventUserOnboarded, "user_id", user.ID)
	return user, nil
}

func (s *Service) joinHouse(ctx context.Context, user *userModels.User, houseID id.HouseID, now time.Time) error {
	house, err := s.houses.FindByID(ctx, houseID)
	if err != nil {
		return lookupError(err, "house not found", "failed to load house")
	}
	if user.HouseID != nil && *user.HouseID != houseID {
		previous, err := s.houses.FindByID(ctx, *user.HouseID)
		switch {
		case err == nil:
			if previous.RemoveMember(user.ID) {
				previous.UpdatedAt = now
				if err := s.houses.Update(ctx, previous); err != nil {
					return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update previous house")
				}
			}
		case !errors.Is(err, sentinel.ErrNotFound):
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load previous house")
		}
	}
	if house.AddMember(user.ID) {
		house.UpdatedAt = now
		if err := s.houses.Update(ctx, house); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update house")
		}
	}
	user.HouseID = &houseID
	return nil
}

func (s *Service) joinSociety(ctx context.Context, user *userModels.User, societyID id.SocietyID, now time.Time) error {
	society, err := s.societies.FindByID(ctx, societyID)
	if err != nil {
		return lookupError(err, "society not found", "failed to load society")
	}
	if !society.HasMember(user.ID) {
		society.UpsertMember(user.ID, societyModels.MemberRoleMember, now)
		society.UpdatedAt = now
		if err := s.societies.Update(ctx, society); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update society")
		}
	}
	user.JoinSociety(societyID)
	return nil
}

// ExternalUser is an account announced by the identity provider webhook.
type ExternalUser struct {
	ExternalID string
	Email      string
	FirstName  string
	LastName   string
}

// HandleUserCreated provisions or links a local account for a user created
// at the identity provider. Replayed events leave the account unchanged.
func (s *Service) HandleUserCreated(ctx context.Context, in ExternalUser) (*userModels.User, error) {
	if strings.TrimSpace(in.ExternalID) == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "external user id is required")
	}
	address := email.Normalize(in.Email)
	if !email.IsValid(address) {
		return nil, dErrors.New(dErrors.CodeValidation, "a verified email address is required")
	}

	existing, err := s.users.FindByExternalID(ctx, in.ExternalID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	now := requestcontext.Now(ctx)
	linked, err := s.users.FindByEmail(ctx, address)
	switch {
	case err == nil:
		linked.ExternalID = in.ExternalID
		linked.UpdatedAt = now
		if err := s.users.Update(ctx, linked); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to link user")
		}
		s.logAudit(ctx, audit.EventUserUpdated, "user_id", linked.ID, "reason", "external_link")
		return linked, nil
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	user, err := userModels.NewUser(id.UserID(uuid.New()), displayName(in, address), address, id.RoleUser, now)
	if err != nil {
		return nil, asValidation(err)
	}
	user.ExternalID = in.ExternalID
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeConflict, "user already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	if s.metrics != nil {
		s.metrics.IncrementWebhookUsers()
	}
	s.logAudit(ctx, audit.EventUserCreated, "user_id", user.ID, "email", user.Email, "reason", "webhook")
	return user, nil
}

// displayName falls back to the local part of the address when the
// provider sends no name.
func displayName(in ExternalUser, address string) string {
	name := strings.TrimSpace(strings.TrimSpace(in.FirstName) + " " + strings.TrimSpace(in.LastName))
	if name != "" {
		return name
	}
	local, _, _ := strings.Cut(address, "@")
	return local
}

func asValidation(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) && de.Code == dErrors.CodeInvariantViolation {
		return dErrors.New(dErrors.CodeValidation, de.Message)
	}
	return err
}

func lookupError(err error, notFound, internal string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeValidation, notFound)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, internal)
}

func (s *Service) loadCaller(ctx context.Context) (*userModels.User, error) {
	user, err := s.users.FindByID(ctx, requestcontext.UserID(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// LoadPrincipal resolves the subject of a validated token. Tokens stop
// working once the user is removed or deactivated, or changes their
// password.
func (s *Service) LoadPrincipal(ctx context.Context, userID id.UserID, issuedAt time.Time) (requestcontext.Principal, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return requestcontext.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "the user belonging to this token no longer exists")
		}
		return requestcontext.Principal{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	if !user.Active {
		return requestcontext.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "this account has been deactivated")
	}
	if user.PasswordChangedAfter(issuedAt) {
		return requestcontext.Principal{}, dErrors.New(dErrors.CodeUnauthorized, "password changed recently, please log in again")
	}
	return user.Principal(), nil
}

func (s *Service) warn(ctx context.Context, msg string, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
	}
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	actor := requestcontext.UserID(ctx)
	userID, ok := attrs.Extract[id.UserID](attributes, "user_id")
	if !ok {
		userID = actor
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		UserID:    userID,
		Action:    string(event),
		Reason:    attrs.ExtractString(attributes, "reason"),
		Email:     attrs.ExtractString(attributes, "email"),
		RequestID: requestID,
		ActorID:   actor.String(),
	})
}
