package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arzaquna-api/internal/domain"
	"arzaquna-api/pkg/utils"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User

	// createErr 模拟唯一索引在写入时才冲突
	createErr error
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]domain.User{}} }

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) FindByEmailOrPhone(_ context.Context, email, phone string) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.User
	for _, u := range m.users {
		if u.Email == email || u.Phone == phone {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsers) List(context.Context, domain.UserFilter) ([]domain.User, int64, error) {
	return nil, 0, errors.New("not used")
}

func (m *memUsers) Update(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = *u
	return nil
}

func (m *memUsers) UpdateRole(_ context.Context, id string, role domain.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.Role = role
	m.users[id] = u
	return nil
}

func (m *memUsers) SetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.users[id]
	u.IsActive = active
	m.users[id] = u
	return nil
}

type stubIssuer struct{}

func (stubIssuer) Issue(uid, role string) (string, error) { return "tok-" + uid + "-" + role, nil }

func newAuthSvc() (*AuthService, *memUsers) {
	users := newMemUsers()
	return NewAuthService(users, stubIssuer{}, nil), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthSvc()
	ctx := context.Background()

	sess, err := svc.Register(ctx, NewUserInput{FullName: "Sara", Email: " Sara@Example.com ", Phone: "+966500000001", Password: "secret123", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, sess.User.Role)
	assert.Equal(t, "sara@example.com", sess.User.Email)
	assert.Equal(t, "tok-"+sess.User.ID+"-USER", sess.Token)

	_, err = svc.Register(ctx, NewUserInput{FullName: "Dup", Email: "other@example.com", Phone: "+966500000001", Password: "secret123"})
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	got, err := svc.Login(ctx, "SARA@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, got.User.ID)

	_, err = svc.Login(ctx, "sara@example.com", "wrong")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginDeactivated(t *testing.T) {
	svc, users := newAuthSvc()
	ctx := context.Background()
	sess, err := svc.Register(ctx, NewUserInput{FullName: "x", Email: "x@example.com", Phone: "1", Password: "secret123"})
	require.NoError(t, err)
	require.NoError(t, users.SetActive(ctx, sess.User.ID, false))

	_, err = svc.Login(ctx, "x@example.com", "secret123")
	assert.ErrorIs(t, err, domain.ErrAccountDisabled)
}

func TestCreateUserRoleRules(t *testing.T) {
	svc, _ := newAuthSvc()
	_, err := svc.CreateUser(context.Background(), NewUserInput{Email: "v@example.com", Phone: "2", Password: "secret123", Role: domain.RoleVendor})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = svc.CreateUser(context.Background(), NewUserInput{Email: "s@example.com", Phone: "3", Password: "123"})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	u, err := svc.CreateUser(context.Background(), NewUserInput{Email: "adm@example.com", Phone: "4", Password: "secret123", Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)
	assert.True(t, u.IsActive)
}

func TestChangePassword(t *testing.T) {
	svc, users := newAuthSvc()
	ctx := context.Background()
	sess, err := svc.Register(ctx, NewUserInput{FullName: "x", Email: "x@example.com", Phone: "1", Password: "secret123"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, sess.User.ID, "bad", "newsecret")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	require.NoError(t, svc.ChangePassword(ctx, sess.User.ID, "secret123", "newsecret"))
	u, _ := users.FindByID(ctx, sess.User.ID)
	assert.True(t, utils.CheckPassword("newsecret", u.PasswordHash))

	assert.ErrorIs(t, svc.ChangePassword(ctx, "ghost", "a", "b"), domain.ErrUserNotFound)
}

func TestChangeRole(t *testing.T) {
	svc, users := newAuthSvc()
	ctx := context.Background()
	require.NoError(t, users.Create(ctx, &domain.User{Base: domain.Base{ID: "u1"}, Role: domain.RoleUser}))
	require.NoError(t, users.Create(ctx, &domain.User{Base: domain.Base{ID: "v1"}, Role: domain.RoleVendor}))

	u, err := svc.ChangeRole(ctx, "admin", "u1", domain.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)

	_, err = svc.ChangeRole(ctx, "admin", "v1", domain.RoleUser)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	_, err = svc.ChangeRole(ctx, "admin", "u1", domain.RoleVendor)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	_, err = svc.ChangeRole(ctx, "admin", "admin", domain.RoleUser)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	_, err = svc.ChangeRole(ctx, "admin", "ghost", domain.RoleUser)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestRegisterLosesUniqueRaceAsConflict(t *testing.T) {
	svc, users := newAuthSvc()
	users.createErr = domain.ErrEmailOrPhoneTaken

	_, err := svc.Register(context.Background(), NewUserInput{
		FullName: "Sara", Email: "sara@farm.sa", Phone: "+966511111111", Password: "secret123",
	})
	assert.ErrorIs(t, err, domain.ErrEmailOrPhoneTaken)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}
