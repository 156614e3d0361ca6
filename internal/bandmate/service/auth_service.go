package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/entity"
	"github.com/Grimothy/BandMatev2-sub001/internal/bandmate/repository"
	"github.com/Grimothy/BandMatev2-sub001/internal/config"
)

// GoogleOAuthURL Google OAuth授权URL
const GoogleOAuthURL = "https://accounts.google.com/o/oauth2/v2/auth"

// GoogleTokenURL Google获取Token URL
const GoogleTokenURL = "https://oauth2.googleapis.com/token"

// GoogleUserInfoURL Google获取用户信息URL
const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// 认证错误
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthService 认证服务
type AuthService struct {
	userRepo  *repository.UserRepository
	tokenRepo *repository.RefreshTokenRepository
	rdb       *redis.Client
	cfg       *config.Config
	logger    *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(
	userRepo *repository.UserRepository,
	tokenRepo *repository.RefreshTokenRepository,
	rdb *redis.Client,
	cfg *config.Config,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		rdb:       rdb,
		cfg:       cfg,
		logger:    logger,
	}
}

// TokenPair Token对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"required"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register 邮箱密码注册
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*entity.User, *TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if existing != nil {
		return nil, nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := &entity.User{
		ID:           generateID(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Role:         entity.RoleMember,
		Status:       "active",
		LastLoginAt:  &now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Login 邮箱密码登录
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*entity.User, *TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if user.PasswordHash == "" {
		// OAuth-only 账号
		return nil, nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Warn("update last login failed", zap.Error(err))
	}

	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// GetGoogleLoginURL 获取Google登录URL，state写入redis防CSRF
func (s *AuthService) GetGoogleLoginURL(ctx context.Context) (string, error) {
	state := uuid.New().String()
	if s.rdb != nil {
		if err := s.rdb.Set(ctx, "oauth:state:"+state, "1", 10*time.Minute).Err(); err != nil {
			return "", fmt.Errorf("store oauth state: %w", err)
		}
	}

	params := url.Values{}
	params.Set("client_id", s.cfg.Google.ClientID)
	params.Set("redirect_uri", s.cfg.Google.RedirectURI)
	params.Set("response_type", "code")
	params.Set("scope", "openid email profile")
	params.Set("state", state)

	return fmt.Sprintf("%s?%s", GoogleOAuthURL, params.Encode()), nil
}

// googleTokenResponse Google Token响应
type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	IDToken     string `json:"id_token"`
}

// googleUserInfo Google用户信息
type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// HandleGoogleCallback 处理Google回调
func (s *AuthService) HandleGoogleCallback(ctx context.Context, code, state string) (*entity.User, *TokenPair, error) {
	// 1. 校验state
	if s.rdb != nil {
		n, err := s.rdb.Del(ctx, "oauth:state:"+state).Result()
		if err != nil {
			return nil, nil, fmt.Errorf("check oauth state: %w", err)
		}
		if n == 0 {
			return nil, nil, ErrInvalidToken
		}
	}

	// 2. 使用code换取access_token
	accessToken, err := s.exchangeGoogleCode(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("exchange code: %w", err)
	}

	// 3. 获取用户信息
	info, err := s.fetchGoogleUserInfo(ctx, accessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("get user info: %w", err)
	}

	// 4. 创建或更新用户
	user, err := s.createOrUpdateGoogleUser(ctx, info)
	if err != nil {
		return nil, nil, fmt.Errorf("create or update user: %w", err)
	}

	// 5. 生成JWT Token
	pair, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// exchangeGoogleCode 用授权码换取token
func (s *AuthService) exchangeGoogleCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", s.cfg.Google.ClientID)
	form.Set("client_secret", s.cfg.Google.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", s.cfg.Google.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, "POST", GoogleTokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request google: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("google token endpoint returned %d", resp.StatusCode)
	}

	var result googleTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if result.AccessToken == "" {
		return "", fmt.Errorf("empty access token")
	}
	return result.AccessToken, nil
}

// fetchGoogleUserInfo 获取Google用户信息
func (s *AuthService) fetchGoogleUserInfo(ctx context.Context, accessToken string) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", GoogleUserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request google: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google userinfo endpoint returned %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("google profile has no email")
	}
	return &info, nil
}

// createOrUpdateGoogleUser 创建或更新Google用户
func (s *AuthService) createOrUpdateGoogleUser(ctx context.Context, info *googleUserInfo) (*entity.User, error) {
	// 查找已存在的用户：先按 google_id，再按 email
	user, err := s.userRepo.FindByGoogleID(ctx, info.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if user == nil {
		user, err = s.userRepo.FindByEmail(ctx, strings.ToLower(info.Email))
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	now := time.Now()

	if user == nil {
		name := info.Name
		if name == "" {
			name = strings.Split(info.Email, "@")[0]
		}
		user = &entity.User{
			ID:          generateID(),
			Email:       strings.ToLower(info.Email),
			GoogleID:    info.ID,
			Name:        name,
			AvatarURL:   info.Picture,
			Role:        entity.RoleMember,
			Status:      "active",
			LastLoginAt: &now,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		return user, nil
	}

	// 更新用户信息（同时补全之前缺失的Google绑定）
	if user.GoogleID == "" {
		user.GoogleID = info.ID
	}
	if info.Name != "" {
		user.Name = info.Name
	}
	if info.Picture != "" {
		user.AvatarURL = info.Picture
	}
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// generateTokenPair 生成Token对，refresh token落库支持轮换与吊销
func (s *AuthService) generateTokenPair(ctx context.Context, user *entity.User) (*TokenPair, error) {
	now := time.Now()

	// Access Token
	accessClaims := jwt.MapClaims{
		"sub":   user.ID,
		"uid":   user.ID,
		"name":  user.Name,
		"email": user.Email,
		"role":  string(user.Role),
		"iss":   s.cfg.JWT.Issuer,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWT.AccessTokenExpire).Unix(),
		"jti":   uuid.New().String(),
	}
	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	// Refresh Token
	refreshJTI := uuid.New().String()
	refreshClaims := jwt.MapClaims{
		"sub":  user.ID,
		"type": "refresh",
		"iss":  s.cfg.JWT.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.JWT.RefreshTokenExpire).Unix(),
		"jti":  refreshJTI,
	}
	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	refreshTokenString, err := refreshToken.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.tokenRepo.Create(ctx, &entity.RefreshToken{
		JTI:       refreshJTI,
		UserID:    user.ID,
		ExpiresAt: now.Add(s.cfg.JWT.RefreshTokenExpire),
	}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessTokenString,
		RefreshToken: refreshTokenString,
		ExpiresIn:    int64(s.cfg.JWT.AccessTokenExpire.Seconds()),
	}, nil
}

// Refresh 刷新Token（旧refresh token作废）
func (s *AuthService) Refresh(ctx context.Context, refreshTokenString string) (*TokenPair, error) {
	token, err := jwt.Parse(refreshTokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	if claims["type"] != "refresh" {
		return nil, ErrInvalidToken
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return nil, ErrInvalidToken
	}

	stored, err := s.tokenRepo.FindActive(ctx, jti)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	user, err := s.userRepo.FindByID(ctx, stored.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	// 轮换：吊销旧token再签发新的
	if err := s.tokenRepo.Revoke(ctx, jti); err != nil {
		return nil, fmt.Errorf("revoke refresh token: %w", err)
	}
	return s.generateTokenPair(ctx, user)
}

// Logout 登出，吊销用户全部refresh token
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	return s.tokenRepo.RevokeAllForUser(ctx, userID)
}

// CleanupExpiredTokens 清理过期refresh token
func (s *AuthService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.tokenRepo.DeleteExpired(ctx)
}
