package devserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/boardflow/core/internal/domain/entities"
	"github.com/boardflow/core/internal/infrastructure/config"
	"github.com/boardflow/core/internal/infrastructure/logger"
)

const testBotToken = "12345:test-bot-token"

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:    "test-secret-32-characters-long!!",
		ExpiresIn: time.Hour,
		Issuer:    "boardflow-test",
	}
}

func newTestAuthService(botToken string, devMode bool) *AuthService {
	return NewAuthService(botToken, testJWTConfig(), devMode, logger.NewNop())
}

// signInitData produces initData signed the way Telegram signs it.
func signInitData(t *testing.T, botToken string, params map[string]string) string {
	t.Helper()

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}
	checkString := strings.Join(pairs, "\n")

	secretMAC := hmac.New(sha256.New, []byte("WebAppData"))
	secretMAC.Write([]byte(botToken))
	secret := secretMAC.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(checkString))
	hash := hex.EncodeToString(mac.Sum(nil))

	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("hash", hash)
	return values.Encode()
}

func validInitDataParams(authDate time.Time) map[string]string {
	return map[string]string{
		"user":      `{"id":99,"first_name":"Test","last_name":"User","username":"tester","language_code":"en"}`,
		"auth_date": strconv.FormatInt(authDate.Unix(), 10),
		"query_id":  "AAF9tz0aAAAAAH23PRpmIqc6",
	}
}

func TestValidateInitDataAcceptsSignedPayload(t *testing.T) {
	svc := newTestAuthService(testBotToken, false)

	initData := signInitData(t, testBotToken, validInitDataParams(time.Now()))
	user, err := svc.ValidateInitData(initData)
	if err != nil {
		t.Fatalf("ValidateInitData: %v", err)
	}
	if user.ID != 99 {
		t.Fatalf("user id = %d, want 99", user.ID)
	}
	if user.Username != "tester" {
		t.Fatalf("username = %q, want tester", user.Username)
	}
	if user.LanguageTag != "en" {
		t.Fatalf("language tag = %q, want en", user.LanguageTag)
	}
}

func TestValidateInitDataRejectsTamperedPayload(t *testing.T) {
	svc := newTestAuthService(testBotToken, false)

	initData := signInitData(t, testBotToken, validInitDataParams(time.Now()))
	tampered := strings.Replace(initData, "tester", "attacker", 1)

	if _, err := svc.ValidateInitData(tampered); err == nil {
		t.Fatal("expected signature mismatch for tampered payload")
	}
}

func TestValidateInitDataRejectsWrongBotToken(t *testing.T) {
	svc := newTestAuthService(testBotToken, false)

	initData := signInitData(t, "99999:other-token", validInitDataParams(time.Now()))
	if _, err := svc.ValidateInitData(initData); err == nil {
		t.Fatal("expected rejection of payload signed with another bot token")
	}
}

func TestValidateInitDataRejectsStaleAuthDate(t *testing.T) {
	svc := newTestAuthService(testBotToken, false)

	stale := time.Now().Add(-25 * time.Hour)
	initData := signInitData(t, testBotToken, validInitDataParams(stale))
	if _, err := svc.ValidateInitData(initData); err == nil {
		t.Fatal("expected rejection of expired init data")
	}
}

func TestValidateInitDataRejectsMissingHash(t *testing.T) {
	svc := newTestAuthService(testBotToken, false)

	values := url.Values{}
	for k, v := range validInitDataParams(time.Now()) {
		values.Set(k, v)
	}
	if _, err := svc.ValidateInitData(values.Encode()); err == nil {
		t.Fatal("expected rejection of init data without hash")
	}
}

func TestValidateInitDataDevModeSkipsSignature(t *testing.T) {
	svc := newTestAuthService("", true)

	values := url.Values{}
	values.Set("user", `{"id":7,"username":"dev"}`)

	user, err := svc.ValidateInitData(values.Encode())
	if err != nil {
		t.Fatalf("ValidateInitData: %v", err)
	}
	if user.ID != 7 {
		t.Fatalf("user id = %d, want 7", user.ID)
	}
}

func TestValidateInitDataNoTokenOutsideDevModeFails(t *testing.T) {
	svc := newTestAuthService("", false)

	values := url.Values{}
	values.Set("user", `{"id":7}`)

	if _, err := svc.ValidateInitData(values.Encode()); err == nil {
		t.Fatal("expected failure without bot token outside dev mode")
	}
}

func TestValidateInitDataRequiresUserID(t *testing.T) {
	svc := newTestAuthService(testBotToken, false)

	params := validInitDataParams(time.Now())
	params["user"] = `{"username":"nobody"}`
	initData := signInitData(t, testBotToken, params)

	if _, err := svc.ValidateInitData(initData); err == nil {
		t.Fatal("expected rejection of user payload without id")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestAuthService(testBotToken, false)

	user := &entities.User{ID: 42, Username: "tester"}
	token, err := svc.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("claims user id = %d, want 42", claims.UserID)
	}
	if claims.Subject != "42" {
		t.Fatalf("subject = %q, want 42", claims.Subject)
	}
	if claims.Issuer != "boardflow-test" {
		t.Fatalf("issuer = %q", claims.Issuer)
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc := newTestAuthService(testBotToken, false)

	token, err := svc.IssueToken(&entities.User{ID: 42})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	other := NewAuthService(testBotToken, config.JWTConfig{
		Secret:    "a-completely-different-secret!!!",
		ExpiresIn: time.Hour,
		Issuer:    "boardflow-test",
	}, false, logger.NewNop())

	if _, err := other.ValidateToken(token); err == nil {
		t.Fatal("expected rejection of token signed with another secret")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc := newTestAuthService(testBotToken, false)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := svc.IssueToken(&entities.User{ID: 42})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	svc.now = time.Now
	if _, err := svc.ValidateToken(token); err == nil {
		t.Fatal("expected rejection of expired token")
	}
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestAuthService(testBotToken, false)

	if _, err := svc.ValidateToken("not-a-jwt"); err == nil {
		t.Fatal("expected rejection of malformed token")
	}
}
