package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	authdomain "github.com/qualitrace/qualitrace/internal/auth/domain"
	"github.com/qualitrace/qualitrace/internal/auth/repository"
	"github.com/qualitrace/qualitrace/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAuthService(t *testing.T) (authdomain.Service, *clock.FakeClock) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&authdomain.User{}, &authdomain.Session{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := New(zap.NewNop(), repository.NewRepository(db), repository.NewSessionRepository(db), node, clk)
	return svc, clk
}

func TestCreateUserAndLogin(t *testing.T) {
	svc, _ := setupAuthService(t)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{
		Email:       "QA.Lead@Example.com",
		Password:    "correct horse",
		DisplayName: "QA Lead",
	})
	require.NoError(t, err)
	assert.Equal(t, "qa.lead@example.com", user.Email)

	_, err = svc.CreateUser(ctx, authdomain.CreateUserRequest{
		Email:    "qa.lead@example.com",
		Password: "another pass",
	})
	assert.ErrorIs(t, err, authdomain.ErrUserExists)

	result, err := svc.Login(ctx, authdomain.LoginRequest{
		Email:    "qa.lead@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, result.UserID)
	assert.NotEmpty(t, result.RawToken)

	session, err := svc.Authenticate(ctx, result.RawToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{
		Email:    "user@example.com",
		Password: "right password",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, authdomain.LoginRequest{
		Email:    "user@example.com",
		Password: "wrong password",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestShortPasswordRejected(t *testing.T) {
	svc, _ := setupAuthService(t)

	_, err := svc.CreateUser(context.Background(), authdomain.CreateUserRequest{
		Email:    "short@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, authdomain.ErrInvalidCredentials)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _ := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{
		Email:    "logout@example.com",
		Password: "some password",
	})
	require.NoError(t, err)

	result, err := svc.Login(ctx, authdomain.LoginRequest{
		Email:    "logout@example.com",
		Password: "some password",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.RawToken))

	_, err = svc.Authenticate(ctx, result.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionRevoked)
}

func TestExpiredSessionRejected(t *testing.T) {
	svc, clk := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, authdomain.CreateUserRequest{
		Email:    "expiry@example.com",
		Password: "some password",
	})
	require.NoError(t, err)

	result, err := svc.Login(ctx, authdomain.LoginRequest{
		Email:    "expiry@example.com",
		Password: "some password",
	})
	require.NoError(t, err)

	clk.Advance(8 * 24 * time.Hour)

	_, err = svc.Authenticate(ctx, result.RawToken)
	assert.ErrorIs(t, err, authdomain.ErrSessionExpired)
}
