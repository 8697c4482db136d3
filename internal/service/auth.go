package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"arzaquna-api/internal/domain"
	"arzaquna-api/pkg/utils"
)

// TokenIssuer auth.JWTer 满足该接口
type TokenIssuer interface {
	Issue(uid, role string) (string, error)
}

type AuthService struct {
	users  domain.UserRepository
	tokens TokenIssuer
	log    *zap.Logger
}

func NewAuthService(users domain.UserRepository, tokens TokenIssuer, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{users: users, tokens: tokens, log: log}
}

type NewUserInput struct {
	FullName string
	Email    string
	Phone    string
	Password string
	Role     domain.Role
}

type Session struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Register 自助注册固定为 USER
func (s *AuthService) Register(ctx context.Context, in NewUserInput) (*Session, error) {
	in.Role = domain.RoleUser
	u, err := s.CreateUser(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.session(u)
}

// CreateUser 管理端建号，只允许 ADMIN / USER；VENDOR 只能经审核产生
func (s *AuthService) CreateUser(ctx context.Context, in NewUserInput) (*domain.User, error) {
	if in.Role == "" {
		in.Role = domain.RoleUser
	}
	if in.Role != domain.RoleUser && in.Role != domain.RoleAdmin {
		return nil, domain.Validation("role must be ADMIN or USER")
	}
	if len(in.Password) < utils.MinPasswordLen {
		return nil, domain.Validation("password must be at least 6 characters")
	}
	email, phone := utils.NormalizeEmail(in.Email), strings.TrimSpace(in.Phone)
	taken, err := s.users.FindByEmailOrPhone(ctx, email, phone)
	if err != nil {
		return nil, domain.Internal("failed to check user", err)
	}
	if len(taken) > 0 {
		return nil, domain.Conflict("user with this email or phone already exists")
	}
	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, domain.Internal("failed to hash password", err)
	}
	u := &domain.User{
		Base:         domain.Base{ID: utils.NewID()},
		Email:        email,
		Phone:        phone,
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: hash,
		Role:         in.Role,
		IsActive:     true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, asDomain("failed to create user", err)
	}
	s.log.Info("user created", zap.String("user_id", u.ID), zap.String("role", string(u.Role)))
	return u, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.users.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		return nil, domain.Internal("failed to login", err)
	}
	if u == nil || !utils.CheckPassword(password, u.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, domain.ErrAccountDisabled
	}
	return s.session(u)
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.Internal("failed to load user", err)
	}
	if u == nil {
		return domain.ErrUserNotFound
	}
	if !utils.CheckPassword(current, u.PasswordHash) {
		return domain.Validation("current password is incorrect")
	}
	if len(next) < utils.MinPasswordLen {
		return domain.Validation("password must be at least 6 characters")
	}
	hash, err := utils.HashPassword(next)
	if err != nil {
		return domain.Internal("failed to hash password", err)
	}
	u.PasswordHash = hash
	if err := s.users.Update(ctx, u); err != nil {
		return asDomain("failed to change password", err)
	}
	return nil
}

// ChangeRole 只在 ADMIN / USER 间切换；已是供应商的账号由入驻流程管理
func (s *AuthService) ChangeRole(ctx context.Context, actorID, userID string, role domain.Role) (*domain.User, error) {
	if role != domain.RoleAdmin && role != domain.RoleUser {
		return nil, domain.Validation("role must be ADMIN or USER")
	}
	if actorID == userID {
		return nil, domain.Conflict("cannot change your own role")
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, domain.Internal("failed to load user", err)
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	if u.Role == domain.RoleVendor {
		return nil, domain.Conflict("vendor accounts are managed by the application workflow")
	}
	if err := s.users.UpdateRole(ctx, userID, role); err != nil {
		return nil, domain.Internal("failed to update role", err)
	}
	u.Role = role
	return u, nil
}

func (s *AuthService) session(u *domain.User) (*Session, error) {
	tok, err := s.tokens.Issue(u.ID, string(u.Role))
	if err != nil || tok == "" {
		return nil, domain.Internal("issue token failed", err)
	}
	return &Session{Token: tok, User: u}, nil
}
