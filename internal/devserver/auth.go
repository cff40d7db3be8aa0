package devserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/infrastructure/config"
	"github.com/boardflow/core/internal/infrastructure/logger"
)

// initData older than this is rejected as a replay
const maxInitDataAge = 24 * time.Hour

// Claims represents the JWT claims
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// AuthService validates Telegram launch credentials and manages the
// session tokens issued against them.
type AuthService struct {
	botToken  string
	jwtConfig config.JWTConfig
	devMode   bool
	logger    *logger.Logger
	now       func() time.Time
}

// telegramUser is the user payload embedded in initData
type telegramUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
}

// NewAuthService creates an auth service. devMode permits unsigned
// initData when no bot token is configured; never enable it in
// production deployments.
func NewAuthService(botToken string, jwtConfig config.JWTConfig, devMode bool, log *logger.Logger) *AuthService {
	return &AuthService{
		botToken:  botToken,
		jwtConfig: jwtConfig,
		devMode:   devMode,
		logger:    log.WithComponent("auth"),
		now:       time.Now,
	}
}

// ValidateInitData checks the Telegram signature over initData and
// returns the embedded user.
func (s *AuthService) ValidateInitData(initData string) (*entities.User, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("malformed init data: %w", err)
	}

	if s.botToken == "" {
		if !s.devMode {
			return nil, fmt.Errorf("no bot token configured")
		}
		// Unsigned dev launches still need a user payload.
		return parseInitDataUser(values)
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return nil, fmt.Errorf("init data missing hash")
	}
	values.Del("hash")

	// data_check_string: sorted key=value pairs joined by newlines.
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	checkString := strings.Join(pairs, "\n")

	// secret = HMAC-SHA256(bot_token, keyed on "WebAppData")
	secretMAC := hmac.New(sha256.New, []byte("WebAppData"))
	secretMAC.Write([]byte(s.botToken))
	secret := secretMAC.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(checkString))
	wantHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(wantHash), []byte(gotHash)) {
		return nil, fmt.Errorf("init data signature mismatch")
	}

	if authDate := values.Get("auth_date"); authDate != "" {
		unix, err := strconv.ParseInt(authDate, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed auth_date: %w", err)
		}
		if s.now().Sub(time.Unix(unix, 0)) > maxInitDataAge {
			return nil, fmt.Errorf("init data expired")
		}
	}

	return parseInitDataUser(values)
}

func parseInitDataUser(values url.Values) (*entities.User, error) {
	raw := values.Get("user")
	if raw == "" {
		return nil, fmt.Errorf("init data missing user")
	}

	var tu telegramUser
	if err := json.Unmarshal([]byte(raw), &tu); err != nil {
		return nil, fmt.Errorf("malformed user payload: %w", err)
	}
	if tu.ID == 0 {
		return nil, fmt.Errorf("user payload missing id")
	}

	return &entities.User{
		ID:          tu.ID,
		Username:    tu.Username,
		FirstName:   tu.FirstName,
		LastName:    tu.LastName,
		LanguageTag: tu.LanguageCode,
	}, nil
}

// IssueToken signs a session token for the user
func (s *AuthService) IssueToken(user *entities.User) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConfig.ExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.jwtConfig.Issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken validates a session token and returns its claims
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
