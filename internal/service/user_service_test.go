package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// fakeUserRepo keeps users in memory, keyed by id.
type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}
	u, ok := r.users[parsed]
	if !ok {
		return nil, errors.New("record not found")
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.New("record not found")
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, errors.New("record not found")
}

func (r *fakeUserRepo) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	out := make([]model.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id string) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	delete(r.users, parsed)
	return nil
}

func (r *fakeUserRepo) FindEligibleApprover(ctx context.Context, role string, departmentID *uuid.UUID) (*model.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) IsActive(ctx context.Context, id uuid.UUID) (bool, error) {
	u, ok := r.users[id]
	if !ok {
		return false, errors.New("record not found")
	}
	return u.IsActive, nil
}

type fakeTokenRepo struct {
	tokens map[string]*model.RefreshToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]*model.RefreshToken)}
}

func (r *fakeTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	r.tokens[token.Token] = token
	return nil
}

func (r *fakeTokenRepo) GetByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	t, ok := r.tokens[token]
	if !ok {
		return nil, errors.New("record not found")
	}
	return t, nil
}

func (r *fakeTokenRepo) Delete(ctx context.Context, token string) error {
	delete(r.tokens, token)
	return nil
}

func (r *fakeTokenRepo) DeleteForUser(ctx context.Context, userID uuid.UUID) error {
	for k, t := range r.tokens {
		if t.UserID == userID {
			delete(r.tokens, k)
		}
	}
	return nil
}

func (r *fakeTokenRepo) DeleteExpired(ctx context.Context) error {
	now := time.Now()
	for k, t := range r.tokens {
		if now.After(t.ExpiresAt) {
			delete(r.tokens, k)
		}
	}
	return nil
}

// fakeTxManager runs the closure on the same context; the fakes have no
// transactions to join.
type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

func newTestUserService() (UserService, *fakeUserRepo, *fakeTokenRepo) {
	repo := newFakeUserRepo()
	tokens := newFakeTokenRepo()
	return NewUserService(repo, tokens, fakeTxManager{}), repo, tokens
}

func TestCreateUserDepartmentScoping(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	// HOD is department-scoped and must carry a department
	_, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "hod1",
		Email:    "hod1@example.com",
		Password: "secret1",
		Role:     "HOD",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a department")

	// CFO is organization-wide and must not carry one
	_, err = svc.CreateUser(ctx, CreateUserRequest{
		Username:     "cfo1",
		Email:        "cfo1@example.com",
		Password:     "secret1",
		Role:         "CFO",
		DepartmentID: uuid.NewString(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be bound to a department")

	resp, err := svc.CreateUser(ctx, CreateUserRequest{
		Username:     "hod1",
		Email:        "hod1@example.com",
		Password:     "secret1",
		Role:         "HOD",
		DepartmentID: uuid.NewString(),
	})
	require.NoError(t, err)
	assert.Equal(t, "HOD", resp.Role)
	assert.True(t, resp.IsActive)
}

func TestCreateUserRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newTestUserService()

	_, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "x",
		Email:    "x@example.com",
		Password: "secret1",
		Role:     "SUPER_ADMIN",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid role")
}

func TestCreateUserUniqueness(t *testing.T) {
	svc, _, _ := newTestUserService()
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "admin1", Email: "admin1@example.com", Password: "secret1", Role: "admin",
	})
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, CreateUserRequest{
		Username: "admin1", Email: "other@example.com", Password: "secret1", Role: "admin",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username already exists")

	_, err = svc.CreateUser(ctx, CreateUserRequest{
		Username: "admin2", Email: "admin1@example.com", Password: "secret1", Role: "admin",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email already exists")
}

func TestCreateUserHashesPassword(t *testing.T) {
	svc, repo, _ := newTestUserService()

	resp, err := svc.CreateUser(context.Background(), CreateUserRequest{
		Username: "ceo1", Email: "ceo1@example.com", Password: "plaintext", Role: "CEO",
	})
	require.NoError(t, err)

	stored, err := repo.GetByID(context.Background(), resp.ID.String())
	require.NoError(t, err)
	assert.NotEqual(t, "plaintext", stored.Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("plaintext")))
}

func TestLoginIssuesTokens(t *testing.T) {
	svc, _, tokens := newTestUserService()
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "scm1", Email: "scm1@example.com", Password: "secret1", Role: "SCM",
	})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, LoginUserRequest{Email: "scm1@example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	require.NotEmpty(t, resp.RefreshToken)

	stored, err := tokens.GetByToken(ctx, resp.RefreshToken)
	require.NoError(t, err)
	assert.True(t, stored.ExpiresAt.After(time.Now()))

	_, err = svc.Login(ctx, LoginUserRequest{Email: "scm1@example.com", Password: "wrong"})
	require.Error(t, err)
}

func TestDeactivateUserRevokesSessions(t *testing.T) {
	svc, _, tokens := newTestUserService()
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "coo1", Email: "coo1@example.com", Password: "secret1", Role: "COO",
	})
	require.NoError(t, err)

	login, err := svc.Login(ctx, LoginUserRequest{Email: "coo1@example.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateUser(ctx, created.ID.String()))

	// refresh token revoked together with the flip
	_, err = tokens.GetByToken(ctx, login.RefreshToken)
	assert.Error(t, err)
	_, err = svc.Refresh(ctx, RefreshRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)

	_, err = svc.Login(ctx, LoginUserRequest{Email: "coo1@example.com", Password: "secret1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deactivated")
}

func TestRefreshRotationAndExpiry(t *testing.T) {
	svc, _, tokens := newTestUserService()
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "cmo1", Email: "cmo1@example.com", Password: "secret1", Role: "CMO",
	})
	require.NoError(t, err)

	login, err := svc.Login(ctx, LoginUserRequest{Email: "cmo1@example.com", Password: "secret1"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, RefreshRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.Token)

	// Expired token is rejected and purged
	tokens.tokens[login.RefreshToken].ExpiresAt = time.Now().Add(-time.Minute)
	_, err = svc.Refresh(ctx, RefreshRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	_, err = tokens.GetByToken(ctx, login.RefreshToken)
	assert.Error(t, err)
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _, tokens := newTestUserService()
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "wm1", Email: "wm1@example.com", Password: "secret1", Role: "WAREHOUSE_MANAGER",
	})
	require.NoError(t, err)

	login, err := svc.Login(ctx, LoginUserRequest{Email: "wm1@example.com", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, login.RefreshToken))
	_, err = tokens.GetByToken(ctx, login.RefreshToken)
	assert.Error(t, err)
}
