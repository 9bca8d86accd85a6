package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Роли администраторов.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
)

var errInvalidAccessToken = errors.New("token: невалидный access токен")

// AdminClaims - данные администратора из access токена.
// ClientID пуст у администратора платформы, у менеджера клиента он задан.
type AdminClaims struct {
	UserID   uuid.UUID
	Role     string
	ClientID *uuid.UUID
}

// Scope возвращает ограничение по клиенту для запросов администратора.
func (c AdminClaims) Scope() Scope {
	return Scope{ClientID: c.ClientID}
}

// TokenManager выпускает и проверяет JWT администраторов.
// Сессии и refresh токены выдаёт внешний сервис авторизации.
type TokenManager struct {
	accessSecret []byte
	accessTTL    time.Duration
}

// NewTokenManager создаёт менеджер токенов.
func NewTokenManager(accessSecret string, accessTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret: []byte(accessSecret),
		accessTTL:    accessTTL,
	}
}

// GenerateAccess выпускает access токен администратора.
func (m *TokenManager) GenerateAccess(claims AdminClaims) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.accessTTL)

	mapClaims := jwt.MapClaims{
		"sub":  claims.UserID.String(),
		"role": claims.Role,
		"iat":  now.Unix(),
		"exp":  exp.Unix(),
	}
	if claims.ClientID != nil {
		mapClaims["client_id"] = claims.ClientID.String()
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims).SignedString(m.accessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// ParseAccess извлекает данные администратора из access токена.
func (m *TokenManager) ParseAccess(token string) (AdminClaims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return m.accessSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return AdminClaims{}, errInvalidAccessToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return AdminClaims{}, jwt.ErrTokenInvalidClaims
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return AdminClaims{}, jwt.ErrTokenInvalidClaims
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return AdminClaims{}, jwt.ErrTokenInvalidClaims
	}

	role, _ := claims["role"].(string)
	if role != RoleAdmin && role != RoleManager {
		return AdminClaims{}, jwt.ErrTokenInvalidClaims
	}

	result := AdminClaims{UserID: userID, Role: role}
	if raw, ok := claims["client_id"].(string); ok && raw != "" {
		clientID, err := uuid.Parse(raw)
		if err != nil {
			return AdminClaims{}, jwt.ErrTokenInvalidClaims
		}
		result.ClientID = &clientID
	}

	// Менеджер без клиента видел бы всех клиентов.
	if role == RoleManager && result.ClientID == nil {
		return AdminClaims{}, jwt.ErrTokenInvalidClaims
	}

	return result, nil
}
