package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	redisclient "github.com/bugrelay/bugrelay-backend/internal/clients/redis"
	"github.com/bugrelay/bugrelay-backend/internal/pkg/logger"
	"github.com/bugrelay/bugrelay-backend/internal/repos"
	"github.com/bugrelay/bugrelay-backend/internal/requestdata"
	"github.com/bugrelay/bugrelay-backend/internal/types"
)

var ErrInvalidAPIKey = errors.New("invalid or revoked API key")
var ErrInvalidStaffToken = errors.New("invalid staff token")

const apiKeyPrefixLen = 11 // "br_" + 8 hex chars

// AuthService resolves untrusted credentials into an explicit identity: SDK
// API keys into a TenantContext, dashboard JWTs into StaffData. Resolution has
// no side effects; the ingestion pipeline never touches storage before it
// succeeds.
type AuthService interface {
	ResolveAPIKey(ctx context.Context, rawKey string) (*requestdata.TenantContext, error)
	MintAPIKey(ctx context.Context, tx *gorm.DB, orgID, appID uuid.UUID, label string) (string, *types.APIKey, error)
	RevokeAPIKey(ctx context.Context, tx *gorm.DB, keyID uuid.UUID) error
	ParseStaffToken(tokenString string) (*requestdata.StaffData, error)
	IssueStaffToken(userID, orgID uuid.UUID, email string) (string, error)
}

type authService struct {
	db         *gorm.DB
	log        *logger.Logger
	apiKeyRepo repos.APIKeyRepo
	keyCache   redisclient.APIKeyCache
	jwtSecret  []byte
	staffTTL   time.Duration
}

func NewAuthService(
	db *gorm.DB,
	baseLog *logger.Logger,
	apiKeyRepo repos.APIKeyRepo,
	keyCache redisclient.APIKeyCache,
	jwtSecret string,
	staffTTL time.Duration,
) AuthService {
	return &authService{
		db:         db,
		log:        baseLog.With("service", "AuthService"),
		apiKeyRepo: apiKeyRepo,
		keyCache:   keyCache,
		jwtSecret:  []byte(jwtSecret),
		staffTTL:   staffTTL,
	}
}

func (s *authService) ResolveAPIKey(ctx context.Context, rawKey string) (*requestdata.TenantContext, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" || len(rawKey) < apiKeyPrefixLen {
		return nil, ErrInvalidAPIKey
	}

	if s.keyCache != nil {
		if tc, ok := s.keyCache.Get(ctx, rawKey); ok {
			return tc, nil
		}
	}

	candidates, err := s.apiKeyRepo.GetActiveByPrefix(ctx, nil, rawKey[:apiKeyPrefixLen])
	if err != nil {
		return nil, fmt.Errorf("look up api key: %w", err)
	}
	for _, candidate := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(candidate.KeyHash), []byte(rawKey)) != nil {
			continue
		}
		if candidate.Organization == nil || candidate.Application == nil {
			s.log.Warn("api key row missing tenant preload", "key_id", candidate.ID)
			return nil, ErrInvalidAPIKey
		}
		tc := &requestdata.TenantContext{
			OrganizationID:   candidate.OrganizationID,
			OrganizationName: candidate.Organization.Name,
			ApplicationID:    candidate.ApplicationID,
			ApplicationName:  candidate.Application.Name,
			APIKeyID:         candidate.ID,
		}
		if s.keyCache != nil {
			s.keyCache.Set(ctx, rawKey, tc)
		}
		return tc, nil
	}
	return nil, ErrInvalidAPIKey
}

func (s *authService) MintAPIKey(ctx context.Context, tx *gorm.DB, orgID, appID uuid.UUID, label string) (string, *types.APIKey, error) {
	randomBytes := make([]byte, 24)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", nil, fmt.Errorf("generate api key: %w", err)
	}
	rawKey := "br_" + hex.EncodeToString(randomBytes)

	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("hash api key: %w", err)
	}

	key, err := s.apiKeyRepo.Create(ctx, tx, &types.APIKey{
		OrganizationID: orgID,
		ApplicationID:  appID,
		KeyPrefix:      rawKey[:apiKeyPrefixLen],
		KeyHash:        string(hash),
		Label:          label,
	})
	if err != nil {
		return "", nil, fmt.Errorf("store api key: %w", err)
	}
	return rawKey, key, nil
}

// RevokeAPIKey marks the key revoked and evicts any cached resolution, so the
// key stops authenticating immediately rather than at cache-TTL expiry.
func (s *authService) RevokeAPIKey(ctx context.Context, tx *gorm.DB, keyID uuid.UUID) error {
	if err := s.apiKeyRepo.Revoke(ctx, tx, keyID); err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if s.keyCache != nil {
		s.keyCache.Invalidate(ctx, keyID)
	}
	return nil
}

type staffClaims struct {
	OrganizationID string `json:"org_id"`
	Email          string `json:"email"`
	jwt.RegisteredClaims
}

func (s *authService) IssueStaffToken(userID, orgID uuid.UUID, email string) (string, error) {
	now := time.Now()
	claims := staffClaims{
		OrganizationID: orgID.String(),
		Email:          email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.staffTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func (s *authService) ParseStaffToken(tokenString string) (*requestdata.StaffData, error) {
	var claims staffClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidStaffToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidStaffToken
	}
	orgID, err := uuid.Parse(claims.OrganizationID)
	if err != nil {
		return nil, ErrInvalidStaffToken
	}
	return &requestdata.StaffData{
		UserID:         userID,
		OrganizationID: orgID,
		Email:          claims.Email,
	}, nil
}
