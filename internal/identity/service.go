// Package identity implements signup, login and profile management for
// diners plus the separate admin identity space.
package identity

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"browntable/internal/apperr"
	"browntable/internal/auth"
	"browntable/internal/identity/db"
	"browntable/internal/logger"
	"browntable/internal/models"
	"browntable/internal/utils"
)

// StaticOTP is the development one-time code accepted for phone
// verification until an SMS provider is wired in.
// TODO: replace with a real SMS gateway before production rollout.
const StaticOTP = "123456"

const searchLimit = 10

var phonePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)

type Service struct {
	db     db.DBLayer
	tokens *auth.TokenManager
	log    *logger.Logger
}

func NewService(dbLayer db.DBLayer, tokens *auth.TokenManager, log *logger.Logger) *Service {
	return &Service{db: dbLayer, tokens: tokens, log: log}
}

// Signup registers a diner with a phone number and password and returns a
// signed session token.
func (s *Service) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthView, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	if !phonePattern.MatchString(phone) {
		return nil, apperr.Validation("valid phone number is required")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Name:         name,
		Phone:        phone,
		PasswordHash: hash,
		Avatar:       utils.AvatarFor(name),
		Color:        utils.RandomColor(),
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateUserToken(user.ID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to issue token")
	}

	s.log.Info("AUTH", "New user registered: "+phone)
	return &models.AuthView{User: user.Public(), Token: token}, nil
}

// Login authenticates a diner by phone and password.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthView, error) {
	phone := strings.TrimSpace(req.Phone)
	if phone == "" || req.Password == "" {
		return nil, apperr.Validation("phone and password are required")
	}

	user, err := s.db.GetUserByPhone(ctx, phone)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Auth("invalid phone or password")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.Auth("account is deactivated")
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		s.log.Warn("AUTH", "Failed login attempt for "+phone)
		return nil, apperr.Auth("invalid phone or password")
	}

	token, err := s.tokens.GenerateUserToken(user.ID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to issue token")
	}

	s.log.Info("AUTH", "User logged in: "+phone)
	return &models.AuthView{User: user.Public(), Token: token}, nil
}

// SendOTP pretends to dispatch a verification code. The static code is
// returned in the response so the frontend flow works without a provider.
func (s *Service) SendOTP(ctx context.Context, req models.SendOTPRequest) (map[string]string, error) {
	phone := strings.TrimSpace(req.Phone)
	if !phonePattern.MatchString(phone) {
		return nil, apperr.Validation("valid phone number is required")
	}
	s.log.Info("AUTH", "OTP requested for "+phone)
	return map[string]string{"phone": phone, "otp": StaticOTP}, nil
}

// VerifyOTP exchanges the static code for a session token. The phone must
// already belong to a registered diner.
func (s *Service) VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (*models.AuthView, error) {
	phone := strings.TrimSpace(req.Phone)
	if phone == "" || req.OTP == "" {
		return nil, apperr.Validation("phone and otp are required")
	}
	if req.OTP != StaticOTP {
		return nil, apperr.Auth("invalid OTP")
	}

	user, err := s.db.GetUserByPhone(ctx, phone)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.NotFound("no account for this phone number")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.Auth("account is deactivated")
	}

	token, err := s.tokens.GenerateUserToken(user.ID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to issue token")
	}

	s.log.Info("AUTH", "OTP verified for "+phone)
	return &models.AuthView{User: user.Public(), Token: token}, nil
}

// AdminLogin authenticates staff by username and password and issues a
// token carrying role and permissions.
func (s *Service) AdminLogin(ctx context.Context, req models.AdminLoginRequest) (*models.AdminAuthView, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		return nil, apperr.Validation("username and password are required")
	}

	admin, err := s.db.GetAdminByUsername(ctx, username)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Auth("invalid credentials")
		}
		return nil, err
	}
	if !admin.IsActive {
		return nil, apperr.Auth("account is deactivated")
	}
	if !auth.CheckPassword(admin.PasswordHash, req.Password) {
		s.log.Warn("AUTH", "Failed admin login attempt for "+username)
		return nil, apperr.Auth("invalid credentials")
	}

	admin.LastLogin = time.Now()
	if err := s.db.TouchAdminLogin(ctx, admin); err != nil {
		s.log.Error("AUTH", "Failed to record admin login time: "+err.Error())
	}

	token, err := s.tokens.GenerateAdminToken(admin)
	if err != nil {
		return nil, apperr.Internal(err, "failed to issue token")
	}

	s.log.Info("AUTH", "Admin logged in: "+username)
	return &models.AdminAuthView{
		Admin: models.AdminView{
			ID:          admin.ID,
			Username:    admin.Username,
			Role:        admin.Role,
			Name:        admin.Name,
			Email:       admin.Email,
			Permissions: admin.PermissionList(),
			Avatar:      admin.Avatar,
		},
		Token: token,
	}, nil
}

// Profile returns the caller's public profile.
func (s *Service) Profile(ctx context.Context, userID string) (*models.PublicUser, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	pub := user.Public()
	return &pub, nil
}

// UpdateProfile changes the caller's display name; the avatar letter
// follows the new name.
func (s *Service) UpdateProfile(ctx context.Context, userID string, req models.UpdateProfileRequest) (*models.PublicUser, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}

	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Name = name
	user.Avatar = utils.AvatarFor(name)
	user.UpdatedAt = time.Now()
	if err := s.db.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	pub := user.Public()
	return &pub, nil
}

// SearchUsers finds registered diners by phone prefix, for inviting them
// to a group.
func (s *Service) SearchUsers(ctx context.Context, phonePrefix string) ([]models.PublicUser, error) {
	prefix := strings.TrimSpace(phonePrefix)
	if len(prefix) < 3 {
		return nil, apperr.Validation("at least 3 digits are required to search")
	}

	users, err := s.db.SearchUsersByPhone(ctx, prefix, searchLimit)
	if err != nil {
		return nil, err
	}
	results := make([]models.PublicUser, 0, len(users))
	for i := range users {
		results = append(results, users[i].Public())
	}
	return results, nil
}

// Notifications lists the caller's pending group invitations.
func (s *Service) Notifications(ctx context.Context, userID string) ([]models.PendingInvite, error) {
	return s.db.ListPendingInvites(ctx, userID)
}

// LoadSession resolves a verified token's user id into the request session.
// It satisfies auth.SessionLoader.
func (s *Service) LoadSession(ctx context.Context, userID string) (*models.Session, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, apperr.Auth("user no longer exists")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.Auth("account is deactivated")
	}
	return &models.Session{
		UserID: user.ID,
		Name:   user.Name,
		Phone:  user.Phone,
		Avatar: user.Avatar,
		Color:  user.Color,
	}, nil
}
