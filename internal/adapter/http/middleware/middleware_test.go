package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"jvc-ledger/internal/core/ports"
	"jvc-ledger/internal/core/ports/mocks"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJWTAuth_MissingHeader(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)

	router := gin.New()
	router.GET("/admin", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_InvalidToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("garbage").Return(nil, assert.AnError)

	router := gin.New()
	router.GET("/admin", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTAuth_ValidTokenSetsActor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	tokenSvc := mocks.NewMockTokenService(ctrl)
	tokenSvc.EXPECT().Validate("good-token").Return(&ports.TokenClaims{Actor: "ops@jvc"}, nil)

	var gotActor string
	router := gin.New()
	router.GET("/admin", JWTAuth(tokenSvc, zerolog.Nop()), func(c *gin.Context) {
		gotActor = c.GetString(CtxActor)
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ops@jvc", gotActor)
}

func TestWebhookAuth_MissingSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sigSvc := mocks.NewMockSignatureService(ctrl)

	router := gin.New()
	router.POST("/webhook", WebhookAuth(sigSvc, "whsec", zerolog.Nop()), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(`{}`))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookAuth_BadSignature(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	sigSvc := mocks.NewMockSignatureService(ctrl)
	sigSvc.EXPECT().Verify("whsec", `{"event_id":"evt_1"}`, "deadbeef").Return(false)

	router := gin.New()
	router.POST("/webhook", WebhookAuth(sigSvc, "whsec", zerolog.Nop()), func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(`{"event_id":"evt_1"}`))
	req.Header.Set(HeaderWebhookSignature, "deadbeef")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookAuth_ValidSignatureRestoresBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	payload := `{"event_id":"evt_2"}`
	sigSvc := mocks.NewMockSignatureService(ctrl)
	sigSvc.EXPECT().Verify("whsec", payload, "cafebabe").Return(true)

	var gotBody struct {
		EventID string `json:"event_id"`
	}
	router := gin.New()
	router.POST("/webhook", WebhookAuth(sigSvc, "whsec", zerolog.Nop()), func(c *gin.Context) {
		_ = c.ShouldBindJSON(&gotBody)
		c.JSON(200, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(payload))
	req.Header.Set(HeaderWebhookSignature, "cafebabe")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "evt_2", gotBody.EventID)
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(zerolog.Nop()))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "SYS_001")
}
