package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/sharkteam/plantcloud-backend/internal/clients/redis"
	"github.com/sharkteam/plantcloud-backend/internal/logger"
	pkgerrors "github.com/sharkteam/plantcloud-backend/internal/pkg/errors"
	"github.com/sharkteam/plantcloud-backend/internal/repos"
	"github.com/sharkteam/plantcloud-backend/internal/requestdata"
	"github.com/sharkteam/plantcloud-backend/internal/types"
)

type JWTClaims struct {
	jwt.RegisteredClaims
}

type AuthService interface {
	RegisterUser(ctx context.Context, username, displayName, password, email string) error
	LoginUser(ctx context.Context, username, password string) (string, string, *types.User, error)
	RefreshUser(ctx context.Context) (string, string, error)
	LogoutUser(ctx context.Context) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	scoring       ScoringService
	plantCache    redis.PlantCache
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	scoring ScoringService,
	plantCache redis.PlantCache,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	return &authService{
		db:            db,
		log:           log.With("service", "AuthService"),
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		scoring:       scoring,
		plantCache:    plantCache,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (as *authService) RegisterUser(ctx context.Context, username, displayName, password, email string) error {
	username = strings.TrimSpace(username)
	displayName = strings.TrimSpace(displayName)
	email = strings.TrimSpace(email)

	if username == "" || displayName == "" || password == "" || email == "" {
		return fmt.Errorf("%w: all fields are required", pkgerrors.ErrInvalidArgument)
	}
	if strings.ContainsAny(username, " \t") {
		return fmt.Errorf("%w: username cannot contain spaces", pkgerrors.ErrInvalidArgument)
	}
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters long", pkgerrors.ErrInvalidArgument)
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: email address is malformed", pkgerrors.ErrInvalidArgument)
	}

	exists, err := as.userRepo.UsernameExists(ctx, nil, username)
	if err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: username already exists", pkgerrors.ErrDuplicate)
	}

	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user := &types.User{
		Username:    username,
		DisplayName: displayName,
		Password:    string(digest),
		Email:       email,
	}
	if err := as.userRepo.Create(ctx, nil, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	as.log.Info("User registered", "username", username)
	return nil
}

func (as *authService) LoginUser(ctx context.Context, username, password string) (string, string, *types.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", "", nil, fmt.Errorf("%w: username and password are required", pkgerrors.ErrInvalidArgument)
	}

	user, err := as.userRepo.GetByUsername(ctx, nil, username)
	if err != nil {
		if errors.Is(err, pkgerrors.ErrNotFound) {
			return "", "", nil, fmt.Errorf("%w: user not found, please register first", pkgerrors.ErrNotFound)
		}
		return "", "", nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", "", nil, fmt.Errorf("%w: incorrect password", pkgerrors.ErrUnauthorized)
	}

	// Weekly counters reset lazily on login as well as on scoring calls.
	if as.scoring != nil {
		if user, err = as.scoring.EnsureWeeklyReset(ctx, user); err != nil {
			as.log.Warn("Weekly reset on login failed", "username", username, "error", err)
		}
	}

	var accessToken, refreshToken string
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Single active session per user.
		if dErr := as.userTokenRepo.DeleteByUsername(ctx, tx, username); dErr != nil {
			return fmt.Errorf("clear old tokens: %w", dErr)
		}
		tok, genErr := as.generateAccessToken(user)
		if genErr != nil {
			return fmt.Errorf("generate access token: %w", genErr)
		}
		accessToken = tok
		refreshToken = uuid.New().String()
		userToken := &types.UserToken{
			ID:           uuid.New(),
			Username:     username,
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}
		if cErr := as.userTokenRepo.Create(ctx, tx, userToken); cErr != nil {
			return fmt.Errorf("create user token: %w", cErr)
		}
		return nil
	})
	if err != nil {
		return "", "", nil, err
	}
	return accessToken, refreshToken, user, nil
}

func (as *authService) RefreshUser(ctx context.Context) (string, string, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.RefreshToken == "" {
		return "", "", fmt.Errorf("%w: no refresh token in request context", pkgerrors.ErrUnauthorized)
	}

	var accessToken, newRefreshToken string
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, ftErr := as.userTokenRepo.GetByRefreshToken(ctx, tx, rd.RefreshToken)
		if ftErr != nil {
			return fmt.Errorf("fetch refresh token: %w", ftErr)
		}
		if existing.ExpiresAt.Before(time.Now()) {
			if dErr := as.userTokenRepo.Delete(ctx, tx, existing); dErr != nil {
				return fmt.Errorf("delete expired refresh token: %w", dErr)
			}
			return fmt.Errorf("%w: refresh token expired", pkgerrors.ErrUnauthorized)
		}
		user, uErr := as.userRepo.GetByUsername(ctx, tx, existing.Username)
		if uErr != nil {
			return fmt.Errorf("load user for refresh: %w", uErr)
		}
		tok, genErr := as.generateAccessToken(user)
		if genErr != nil {
			return fmt.Errorf("generate access token: %w", genErr)
		}
		accessToken = tok
		newRefreshToken = uuid.New().String()
		newToken := &types.UserToken{
			ID:           uuid.New(),
			Username:     user.Username,
			AccessToken:  accessToken,
			RefreshToken: newRefreshToken,
			ExpiresAt:    time.Now().Add(as.refreshTTL),
		}
		if cErr := as.userTokenRepo.Create(ctx, tx, newToken); cErr != nil {
			return fmt.Errorf("create new user token: %w", cErr)
		}
		if dErr := as.userTokenRepo.Delete(ctx, tx, existing); dErr != nil {
			return fmt.Errorf("remove old refresh token: %w", dErr)
		}
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return accessToken, newRefreshToken, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TokenString == "" {
		return fmt.Errorf("%w: no token in request context", pkgerrors.ErrUnauthorized)
	}
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		token, ftErr := as.userTokenRepo.GetByAccessToken(ctx, tx, rd.TokenString)
		if ftErr != nil {
			return fmt.Errorf("find user token: %w", ftErr)
		}
		return as.userTokenRepo.Delete(ctx, tx, token)
	})
	if err != nil {
		return err
	}
	// Logout drops the cached plant list wholesale.
	if as.plantCache != nil && rd.Username != "" {
		as.plantCache.Invalidate(ctx, rd.Username)
	}
	as.log.Info("User logged out", "username", rd.Username)
	return nil
}

func (as *authService) generateAccessToken(user *types.User) (string, error) {
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, nil
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, fmt.Errorf("%w: invalid or expired token", pkgerrors.ErrUnauthorized)
	}

	var refreshToken string
	if row, ftErr := as.userTokenRepo.GetByAccessToken(ctx, nil, tokenString); ftErr == nil {
		refreshToken = row.RefreshToken
	}
	rd := &requestdata.RequestData{
		TokenString:  tokenString,
		RefreshToken: refreshToken,
		Username:     claims.Subject,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}
