package service

import (
	"errors"
	"sort"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ignatzorin/fieldcrew-backend/internal/models"
)

// Способы подтверждения доступа к документу.
const (
	AccessMethodPassword = "password"
	AccessMethodOTP      = "otp"
)

var errInvalidGrant = errors.New("grant: токен доступа недействителен")

// grantAudience - aud токена доступа к документу.
const grantAudience = "document-grant"

// AccessGrant - выданный доступ к одному документу.
type AccessGrant struct {
	Token     string    `json:"grant"`
	Methods   []string  `json:"methods"`
	ExpiresAt time.Time `json:"expires_at"`
}

type grantClaims struct {
	Methods []string `json:"amr"`
	jwt.RegisteredClaims
}

// AccessGrantManager выпускает короткоживущие токены доступа к документу
// после проверки пароля или кода из SMS.
type AccessGrantManager struct {
	secret []byte
	ttl    time.Duration
}

// NewAccessGrantManager создаёт менеджер.
func NewAccessGrantManager(secret string, ttl time.Duration) *AccessGrantManager {
	return &AccessGrantManager{secret: []byte(secret), ttl: ttl}
}

// Issue выпускает токен на документ. Методы из previous (если он выдан на тот же документ
// и ещё действует) объединяются с method.
func (m *AccessGrantManager) Issue(documentID uuid.UUID, method, previous string) (*AccessGrant, error) {
	methods := []string{method}
	if previous != "" {
		if prior, err := m.Methods(previous, documentID); err == nil {
			methods = mergeMethods(prior, methods)
		}
	}

	now := time.Now()
	exp := now.Add(m.ttl)
	claims := grantClaims{
		Methods: methods,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   documentID.String(),
			Audience:  jwt.ClaimStrings{grantAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, err
	}
	return &AccessGrant{Token: token, Methods: methods, ExpiresAt: exp}, nil
}

// Methods проверяет токен и возвращает подтверждённые методы для документа.
func (m *AccessGrantManager) Methods(token string, documentID uuid.UUID) ([]string, error) {
	claims := &grantClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithAudience(grantAudience))
	if err != nil || !parsed.Valid {
		return nil, errInvalidGrant
	}
	if claims.Subject != documentID.String() {
		return nil, errInvalidGrant
	}
	return claims.Methods, nil
}

// Covers сообщает, подтверждает ли токен все методы, которых требует документ.
func (m *AccessGrantManager) Covers(token string, doc *models.Document) bool {
	required := RequiredMethods(doc)
	if len(required) == 0 {
		return true
	}
	if token == "" {
		return false
	}

	granted, err := m.Methods(token, doc.ID)
	if err != nil {
		return false
	}
	have := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		have[g] = struct{}{}
	}
	for _, r := range required {
		if _, ok := have[r]; !ok {
			return false
		}
	}
	return true
}

// RequiredMethods возвращает проверки, которые нужно пройти до выдачи ссылки.
func RequiredMethods(doc *models.Document) []string {
	var methods []string
	if doc.IsPasswordProtected {
		methods = append(methods, AccessMethodPassword)
	}
	if doc.RequiresOTP {
		methods = append(methods, AccessMethodOTP)
	}
	return methods
}

func mergeMethods(a, b []string) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for _, m := range a {
		set[m] = struct{}{}
	}
	for _, m := range b {
		set[m] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for m := range set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}
