package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"edusched/backend/config"
	"edusched/backend/internal/dto"
	"edusched/backend/internal/model"
	"edusched/backend/pkg/jwt"
)

// ── Mock TokenBlacklist ──

// mockTokenBlacklist 内存黑名单，按 jti 记录撤销的令牌
type mockTokenBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newMockTokenBlacklist() *mockTokenBlacklist {
	return &mockTokenBlacklist{revoked: make(map[string]time.Duration)}
}

func (m *mockTokenBlacklist) BlacklistToken(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = ttl
	return nil
}

func (m *mockTokenBlacklist) IsBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

func (m *mockTokenBlacklist) has(jti string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok
}

// ── 测试辅助 ──

func setupTestAuthService() (AuthService, *mockRepos, *mockTokenBlacklist, *jwt.Manager) {
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret-key-for-unit-testing-2026",
			AccessTokenTTL:          15 * time.Minute,
			RefreshTokenTTLDefault:  24 * time.Hour,
			RefreshTokenTTLRemember: 7 * 24 * time.Hour,
		},
	}

	mocks := newMockRepos()
	blacklist := newMockTokenBlacklist()
	jwtMgr := jwt.NewManager(&cfg.Auth)

	svc := NewAuthService(cfg, mocks.repo, jwtMgr, blacklist, zap.NewNop())
	return svc, mocks, blacklist, jwtMgr
}

func seedUser(mocks *mockRepos, id, email, password string) *model.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := &model.User{
		UserID:         id,
		Name:           "测试管理员",
		Email:          email,
		PasswordHash:   string(hash),
		Role:           model.RoleStaff,
		VersionedModel: model.VersionedModel{Version: 1},
	}
	mocks.user.users[id] = user
	return user
}

// ── Login 测试 ──

func TestLogin_Success(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	seedUser(mocks, "user-1", "admin@edu.cn", "password123")

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "admin@edu.cn",
		Password: "password123",
	})

	if err != nil {
		t.Fatalf("Login 应成功，但返回错误: %v", err)
	}
	if result.AccessToken == "" {
		t.Error("AccessToken 不应为空")
	}
	if result.RefreshToken == "" {
		t.Error("RefreshToken 不应为空")
	}
	if result.ExpiresIn != 900 {
		t.Errorf("期望 ExpiresIn=900，实际=%d", result.ExpiresIn)
	}
	if result.User.Email != "admin@edu.cn" {
		t.Errorf("期望 Email=admin@edu.cn，实际=%s", result.User.Email)
	}
	if result.User.Role != model.RoleStaff {
		t.Errorf("期望 Role=staff，实际=%s", result.User.Role)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	seedUser(mocks, "user-1", "admin@edu.cn", "password123")

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "admin@edu.cn",
		Password: "wrong_password",
	})

	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_UserNotFound(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	_, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "nobody@edu.cn",
		Password: "password123",
	})

	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("期望 ErrInvalidCredentials，实际: %v", err)
	}
}

func TestLogin_RememberMe(t *testing.T) {
	svc, mocks, _, jwtMgr := setupTestAuthService()
	seedUser(mocks, "user-1", "admin@edu.cn", "password123")

	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:      "admin@edu.cn",
		Password:   "password123",
		RememberMe: true,
	})

	if err != nil {
		t.Fatalf("Login(RememberMe) 应成功: %v", err)
	}

	claims, err := jwtMgr.ParseToken(result.RefreshToken)
	if err != nil {
		t.Fatalf("解析 RefreshToken 失败: %v", err)
	}
	if !claims.RememberMe {
		t.Error("期望 RefreshToken 携带 RememberMe=true")
	}
}

// ── RefreshToken 测试 ──

func TestRefreshToken_Success(t *testing.T) {
	svc, mocks, blacklist, jwtMgr := setupTestAuthService()
	seedUser(mocks, "user-1", "admin@edu.cn", "password123")

	loginResult, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "admin@edu.cn",
		Password: "password123",
	})
	if err != nil {
		t.Fatalf("Login 失败: %v", err)
	}

	oldClaims, err := jwtMgr.ParseToken(loginResult.RefreshToken)
	if err != nil {
		t.Fatalf("解析旧 RefreshToken 失败: %v", err)
	}

	result, err := svc.RefreshToken(context.Background(), loginResult.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken 应成功: %v", err)
	}

	if result.AccessToken == "" {
		t.Error("新 AccessToken 不应为空")
	}
	if result.RefreshToken == loginResult.RefreshToken {
		t.Error("轮换后应签发新的 RefreshToken")
	}
	if result.User.ID != "user-1" {
		t.Errorf("期望 User.ID=user-1，实际=%s", result.User.ID)
	}
	// 旧刷新令牌应已撤销
	if !blacklist.has(oldClaims.ID) {
		t.Error("旧 RefreshToken 的 jti 应进入黑名单")
	}
}

func TestRefreshToken_ReuseRejected(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	seedUser(mocks, "user-1", "admin@edu.cn", "password123")

	loginResult, _ := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "admin@edu.cn",
		Password: "password123",
	})

	if _, err := svc.RefreshToken(context.Background(), loginResult.RefreshToken); err != nil {
		t.Fatalf("首次刷新应成功: %v", err)
	}

	// 旧令牌二次使用应被拒绝
	_, err := svc.RefreshToken(context.Background(), loginResult.RefreshToken)
	if !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Errorf("期望 ErrRefreshTokenInvalid，实际: %v", err)
	}
}

func TestRefreshToken_InvalidToken(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	_, err := svc.RefreshToken(context.Background(), "invalid.token.string")
	if !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Errorf("期望 ErrRefreshTokenInvalid，实际: %v", err)
	}
}

func TestRefreshToken_AccessTokenNotAllowed(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	seedUser(mocks, "user-1", "admin@edu.cn", "password123")

	loginResult, _ := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "admin@edu.cn",
		Password: "password123",
	})

	_, err := svc.RefreshToken(context.Background(), loginResult.AccessToken)
	if !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Errorf("期望 ErrRefreshTokenInvalid（access token 不能用于刷新），实际: %v", err)
	}
}

func TestRefreshToken_UserDeleted(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	seedUser(mocks, "user-1", "admin@edu.cn", "password123")

	loginResult, _ := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "admin@edu.cn",
		Password: "password123",
	})

	delete(mocks.user.users, "user-1")

	_, err := svc.RefreshToken(context.Background(), loginResult.RefreshToken)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

// ── Logout 测试 ──

func TestLogout_RevokesBothTokens(t *testing.T) {
	svc, mocks, blacklist, jwtMgr := setupTestAuthService()
	seedUser(mocks, "user-1", "admin@edu.cn", "password123")

	loginResult, _ := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "admin@edu.cn",
		Password: "password123",
	})

	if err := svc.Logout(context.Background(), loginResult.AccessToken, loginResult.RefreshToken); err != nil {
		t.Fatalf("Logout 应成功: %v", err)
	}

	accessClaims, _ := jwtMgr.ParseToken(loginResult.AccessToken)
	refreshClaims, _ := jwtMgr.ParseToken(loginResult.RefreshToken)

	if !blacklist.has(accessClaims.ID) {
		t.Error("AccessToken 的 jti 应进入黑名单")
	}
	if !blacklist.has(refreshClaims.ID) {
		t.Error("RefreshToken 的 jti 应进入黑名单")
	}

	// 登出后的刷新令牌不可再用
	_, err := svc.RefreshToken(context.Background(), loginResult.RefreshToken)
	if !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Errorf("期望 ErrRefreshTokenInvalid，实际: %v", err)
	}
}

func TestLogout_BadTokensTolerated(t *testing.T) {
	svc, _, blacklist, _ := setupTestAuthService()

	// 无法解析的令牌不阻塞登出
	if err := svc.Logout(context.Background(), "garbage", ""); err != nil {
		t.Fatalf("Logout 对无效令牌应容错: %v", err)
	}
	if len(blacklist.revoked) != 0 {
		t.Errorf("无效令牌不应产生黑名单记录，实际=%d", len(blacklist.revoked))
	}
}

// ── GetCurrentUser 测试 ──

func TestGetCurrentUser_Success(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	seedUser(mocks, "user-1", "admin@edu.cn", "password123")

	result, err := svc.GetCurrentUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetCurrentUser 应成功: %v", err)
	}

	if result.ID != "user-1" {
		t.Errorf("期望 ID=user-1，实际=%s", result.ID)
	}
	if result.Email != "admin@edu.cn" {
		t.Errorf("期望 Email=admin@edu.cn，实际=%s", result.Email)
	}
	if result.CreatedAt == "" {
		t.Error("CreatedAt 不应为空")
	}
}

func TestGetCurrentUser_NotFound(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	_, err := svc.GetCurrentUser(context.Background(), "nonexistent")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}

// ── ChangePassword 测试 ──

func TestChangePassword_Success(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	user := seedUser(mocks, "user-1", "admin@edu.cn", "password123")
	user.MustChangePassword = true

	err := svc.ChangePassword(context.Background(), "user-1", &dto.ChangePasswordRequest{
		OldPassword: "password123",
		NewPassword: "newpass456",
	})

	if err != nil {
		t.Fatalf("ChangePassword 应成功: %v", err)
	}

	// 新密码可登录，强制改密标记清除
	result, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email:    "admin@edu.cn",
		Password: "newpass456",
	})
	if err != nil {
		t.Fatalf("修改密码后应能用新密码登录: %v", err)
	}
	if result.User.MustChangePassword {
		t.Error("修改密码后 MustChangePassword 应为 false")
	}
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	svc, mocks, _, _ := setupTestAuthService()
	seedUser(mocks, "user-1", "admin@edu.cn", "password123")

	err := svc.ChangePassword(context.Background(), "user-1", &dto.ChangePasswordRequest{
		OldPassword: "wrong_old",
		NewPassword: "newpass456",
	})

	if !errors.Is(err, ErrOldPasswordWrong) {
		t.Errorf("期望 ErrOldPasswordWrong，实际: %v", err)
	}
}

func TestChangePassword_UserNotFound(t *testing.T) {
	svc, _, _, _ := setupTestAuthService()

	err := svc.ChangePassword(context.Background(), "nonexistent", &dto.ChangePasswordRequest{
		OldPassword: "password123",
		NewPassword: "newpass456",
	})

	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("期望 ErrUserNotFound，实际: %v", err)
	}
}
