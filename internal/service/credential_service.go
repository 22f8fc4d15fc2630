package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prperemyshlev/identity-service/internal/domain"
	"github.com/prperemyshlev/identity-service/internal/repository"
	"github.com/prperemyshlev/identity-service/internal/utils"
	"go.uber.org/zap"
)

// Profile is a user together with the providers linked to the account
type Profile struct {
	User      *domain.User
	Providers []domain.OAuthProvider
}

// credentialService implements CredentialService interface
type credentialService struct {
	repos      *repository.Repositories
	tx         repository.Transactor
	verifier   *VerificationTokenIssuer
	tokens     *TokenIssuer
	notifier   Notifier
	metrics    *Metrics
	logger     *zap.Logger
	bcryptCost int
}

// NewCredentialService creates the service that owns user records and passwords
func NewCredentialService(
	repos *repository.Repositories,
	tx repository.Transactor,
	verifier *VerificationTokenIssuer,
	tokens *TokenIssuer,
	notifier Notifier,
	metrics *Metrics,
	logger *zap.Logger,
	bcryptCost int,
) CredentialService {
	return &credentialService{
		repos:      repos,
		tx:         tx,
		verifier:   verifier,
		tokens:     tokens,
		notifier:   notifier,
		metrics:    metrics,
		logger:     logger,
		bcryptCost: bcryptCost,
	}
}

// Register creates an unverified user and sends the verification mail
func (s *credentialService) Register(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	email = utils.SanitizeEmail(email)
	if !utils.ValidateEmail(email) {
		return nil, domain.NewValidationError("email", "invalid email format")
	}
	if err := checkPasswordPolicy(password); err != nil {
		return nil, err
	}

	passwordHash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:         email,
		PasswordHash:  &passwordHash,
		DisplayName:   strings.TrimSpace(displayName),
		EmailVerified: false,
		Plan:          domain.PlanFree,
	}

	var rawToken string
	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := repos.User.Create(ctx, user); err != nil {
			return err
		}
		rawToken, err = s.verifier.IssueWith(ctx, repos.VerificationToken, user.ID, domain.PurposeVerifyEmail)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, domain.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	if err := s.notifier.SendEmailVerification(ctx, user.Email, rawToken); err != nil {
		s.logger.Error("failed to send verification email", zap.String("user_id", user.ID), zap.Error(err))
	}

	return user, nil
}

// Authenticate checks credentials. Unknown accounts and accounts without a
// password cost one bcrypt comparison like any other attempt.
func (s *credentialService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.repos.User.GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			utils.BurnPasswordCheck(password, s.bcryptCost)
			s.metrics.login(ctx, "invalid_credentials")
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !user.HasPassword() {
		utils.BurnPasswordCheck(password, s.bcryptCost)
		s.metrics.login(ctx, "invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}

	if !utils.CheckPasswordHash(password, *user.PasswordHash) {
		s.metrics.login(ctx, "invalid_credentials")
		return nil, domain.ErrInvalidCredentials
	}

	if !user.EmailVerified {
		s.metrics.login(ctx, "email_not_verified")
		return nil, domain.ErrEmailNotVerified
	}

	s.metrics.login(ctx, "success")
	return user, nil
}

// Login authenticates and issues a session token
func (s *credentialService) Login(ctx context.Context, email, password string) (*domain.User, *domain.SessionToken, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, nil, err
	}

	token, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, token, nil
}

// Logout revokes the token the caller presented
func (s *credentialService) Logout(ctx context.Context, identity *domain.Identity) error {
	return s.tokens.RevokeToken(ctx, identity, domain.ReasonLogout)
}

// ChangePassword replaces the password and revokes every session of the
// user. The revocation is written before the transaction commits, so a
// failure to record it leaves the old password in place.
func (s *credentialService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	if !user.HasPassword() || !utils.CheckPasswordHash(currentPassword, *user.PasswordHash) {
		return domain.ErrInvalidCredentials
	}
	if err := checkPasswordPolicy(newPassword); err != nil {
		return err
	}

	passwordHash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := repos.User.UpdatePassword(ctx, userID, passwordHash); err != nil {
			return err
		}
		return s.tokens.RevokeUser(ctx, userID, domain.ReasonPasswordChange)
	})
	if err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	return nil
}

// RequestPasswordReset mails a reset link. Unknown addresses and throttled
// requests look the same to the caller as a sent mail.
func (s *credentialService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.repos.User.GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	raw, err := s.verifier.IssueRateLimited(ctx, user.ID, domain.PurposeResetPassword)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			s.logger.Info("password reset throttled", zap.String("user_id", user.ID))
			return nil
		}
		return fmt.Errorf("failed to issue reset token: %w", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, raw); err != nil {
		s.logger.Error("failed to send password reset email", zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}

// ResetPassword redeems a reset token, sets the new password and revokes
// every session, all in one transaction.
func (s *credentialService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := checkPasswordPolicy(newPassword); err != nil {
		return err
	}

	passwordHash, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	_, err = s.verifier.Consume(ctx, token, domain.PurposeResetPassword,
		func(ctx context.Context, repos *repository.Repositories, userID string) error {
			if err := repos.User.UpdatePassword(ctx, userID, passwordHash); err != nil {
				return err
			}
			return s.tokens.RevokeUser(ctx, userID, domain.ReasonPasswordReset)
		})
	return err
}

// VerifyEmail redeems a verification token and marks the address verified
func (s *credentialService) VerifyEmail(ctx context.Context, token string) error {
	_, err := s.verifier.Consume(ctx, token, domain.PurposeVerifyEmail,
		func(ctx context.Context, repos *repository.Repositories, userID string) error {
			return repos.User.MarkEmailVerified(ctx, userID)
		})
	return err
}

// ResendVerification issues a new verification token for a signed-in user
func (s *credentialService) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}
	return s.resend(ctx, user)
}

// ResendVerificationByEmail is the anonymous variant. Unknown addresses,
// verified addresses and throttled requests all look like a sent mail.
func (s *credentialService) ResendVerificationByEmail(ctx context.Context, email string) error {
	user, err := s.repos.User.GetByEmail(ctx, utils.SanitizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user.EmailVerified {
		return nil
	}
	if err := s.resend(ctx, user); err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			s.logger.Info("verification resend throttled", zap.String("user_id", user.ID))
			return nil
		}
		return err
	}
	return nil
}

func (s *credentialService) resend(ctx context.Context, user *domain.User) error {
	if user.EmailVerified {
		return domain.NewValidationError("email", "email address already verified")
	}

	raw, err := s.verifier.IssueRateLimited(ctx, user.ID, domain.PurposeVerifyEmail)
	if err != nil {
		return err
	}

	if err := s.notifier.SendEmailVerification(ctx, user.Email, raw); err != nil {
		s.logger.Error("failed to send verification email", zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}

// GetUser returns the stored user record
func (s *credentialService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.getUser(ctx, userID)
}

// GetProfile returns the user and its linked providers
func (s *credentialService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	identities, err := s.repos.OAuthIdentity.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	providers := make([]domain.OAuthProvider, 0, len(identities))
	for _, identity := range identities {
		providers = append(providers, identity.Provider)
	}
	return &Profile{User: user, Providers: providers}, nil
}

// ChangePlan moves a user to another plan. Quota checks read the plan from
// the store, so the change applies to the next quota-bound call.
func (s *credentialService) ChangePlan(ctx context.Context, userID, planName string) (*domain.User, error) {
	plan, ok := domain.ParsePlan(strings.ToLower(strings.TrimSpace(planName)))
	if !ok {
		return nil, domain.NewValidationError("plan", fmt.Sprintf("unknown plan %q", planName))
	}

	if err := s.repos.User.UpdatePlan(ctx, userID, plan); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}

	s.logger.Info("plan changed", zap.String("user_id", userID), zap.String("plan", string(plan)))
	return s.getUser(ctx, userID)
}

func (s *credentialService) getUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func checkPasswordPolicy(password string) error {
	if problems := utils.PasswordProblems(password); len(problems) > 0 {
		return fmt.Errorf("%w: password %s", domain.ErrWeakPassword, strings.Join(problems, ", "))
	}
	return nil
}
