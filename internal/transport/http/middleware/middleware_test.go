package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"arzaquna-api/internal/core/auth"
	"arzaquna-api/internal/domain"
	"arzaquna-api/internal/transport/http/ez"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeDir struct {
	users   map[string]*domain.User
	vendors map[string]*domain.Vendor
	err     error
}

func (f *fakeDir) LoadActiveUser(_ context.Context, id string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u := f.users[id]
	if u == nil || !u.IsActive {
		return nil, nil
	}
	return u, nil
}

func (f *fakeDir) FindApprovedVendorByUserID(_ context.Context, uid string) (*domain.Vendor, error) {
	v := f.vendors[uid]
	if v == nil || !v.IsApproved {
		return nil, nil
	}
	return v, nil
}

func newJWT() *auth.JWTer {
	return &auth.JWTer{Secret: []byte("test"), Issuer: "arzaquna", TTL: time.Hour}
}

func user(id string, role domain.Role, active bool) *domain.User {
	u := &domain.User{Role: role, IsActive: active}
	u.ID = id
	return u
}

func token(t *testing.T, j *auth.JWTer, uid string, role domain.Role) string {
	t.Helper()
	tok, err := j.Issue(uid, string(role))
	require.NoError(t, err)
	return "Bearer " + tok
}

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func call(t *testing.T, r http.Handler, authz string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func whoami(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"code": 0, "msg": "OK", "data": gin.H{
		"userId": ez.UserID(c), "role": ez.Role(c), "vendorId": ez.VendorID(c),
	}})
}

func TestAuthJWT(t *testing.T) {
	j := newJWT()
	dir := &fakeDir{users: map[string]*domain.User{
		"admin":    user("admin", domain.RoleAdmin, true),
		"buyer":    user("buyer", domain.RoleUser, true),
		"disabled": user("disabled", domain.RoleAdmin, false),
	}}
	r := gin.New()
	r.GET("/p", AuthJWT(j, dir, domain.RoleAdmin), whoami)

	w, env := call(t, r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "access token required", env.Msg)

	w, env = call(t, r, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid or expired token", env.Msg)

	w, env = call(t, r, token(t, j, "disabled", domain.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "user not found or inactive", env.Msg)

	w, _ = call(t, r, token(t, j, "buyer", domain.RoleUser))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = call(t, r, token(t, j, "admin", domain.RoleAdmin))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"admin","role":"ADMIN","vendorId":""}`, string(env.Data))
}

func TestAuthJWTRoleComesFromDatabase(t *testing.T) {
	j := newJWT()
	// token 里声称 ADMIN，库里已是 USER
	dir := &fakeDir{users: map[string]*domain.User{"u": user("u", domain.RoleUser, true)}}
	r := gin.New()
	r.GET("/p", AuthJWT(j, dir, domain.RoleAdmin), whoami)
	w, _ := call(t, r, token(t, j, "u", domain.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAuthJWTLoaderError(t *testing.T) {
	j := newJWT()
	r := gin.New()
	r.GET("/p", AuthJWT(j, &fakeDir{err: errors.New("db down")}), whoami)
	w, _ := call(t, r, token(t, j, "u", domain.RoleUser))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestOptionalAuth(t *testing.T) {
	j := newJWT()
	dir := &fakeDir{users: map[string]*domain.User{"u": user("u", domain.RoleUser, true)}}
	r := gin.New()
	r.GET("/p", OptionalAuth(j, dir), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": 0, "msg": ez.AuthErrorMsg(c), "data": gin.H{"userId": ez.UserID(c)}})
	})

	w, env := call(t, r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":""}`, string(env.Data))

	_, env = call(t, r, "Bearer bad")
	assert.JSONEq(t, `{"userId":""}`, string(env.Data))
	assert.Equal(t, "invalid or expired token", env.Msg)

	_, env = call(t, r, token(t, j, "u", domain.RoleUser))
	assert.JSONEq(t, `{"userId":"u"}`, string(env.Data))
}

func TestRequireVendor(t *testing.T) {
	j := newJWT()
	approved := &domain.Vendor{UserID: "v1", IsApproved: true}
	approved.ID = "vendor-1"
	dir := &fakeDir{
		users: map[string]*domain.User{
			"v1":    user("v1", domain.RoleVendor, true),
			"v2":    user("v2", domain.RoleVendor, true),
			"buyer": user("buyer", domain.RoleUser, true),
		},
		vendors: map[string]*domain.Vendor{
			"v1": approved,
			"v2": {UserID: "v2", IsApproved: false},
		},
	}
	r := gin.New()
	r.GET("/p", OptionalAuth(j, dir), RequireVendor(dir), whoami)

	w, _ := call(t, r, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := call(t, r, token(t, j, "buyer", domain.RoleUser))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "vendor access required", env.Msg)

	w, env = call(t, r, token(t, j, "v2", domain.RoleVendor))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "vendor account not approved", env.Msg)

	w, env = call(t, r, token(t, j, "v1", domain.RoleVendor))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"userId":"v1","role":"VENDOR","vendorId":"vendor-1"}`, string(env.Data))
}

func TestRequireRoles(t *testing.T) {
	r := gin.New()
	r.GET("/p", func(c *gin.Context) {
		c.Set(ez.CtxUserID, "u")
		c.Set(ez.CtxRole, string(domain.RoleUser))
	}, RequireRoles(domain.RoleAdmin), whoami)
	w, _ := call(t, r, "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimitPerIP(t *testing.T) {
	r := gin.New()
	r.GET("/p", RateLimitPerIP(0.001, 1), whoami)
	w, _ := call(t, r, "")
	assert.Equal(t, http.StatusOK, w.Code)
	w, env := call(t, r, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, 429, env.Code)
}

func TestMaxBodyBytes(t *testing.T) {
	r := gin.New()
	r.POST("/p", MaxBodyBytes(8), func(c *gin.Context) {
		var in map[string]any
		if err := c.ShouldBindJSON(&in); err != nil {
			ez.Fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": 0})
	})

	req := httptest.NewRequest(http.MethodPost, "/p", strings.NewReader(`{"a":"0123456789"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// 未声明长度时由 MaxBytesReader 截断
	req = httptest.NewRequest(http.MethodPost, "/p", strings.NewReader(`{"a":"0123456789"}`))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRecoveryLogsPanic(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	r := gin.New()
	r.Use(Recovery(zap.New(core)))
	r.GET("/p", func(*gin.Context) { panic("boom") })

	w, env := call(t, r, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", env.Msg)
	assert.Equal(t, 1, logs.Len())
}

func TestRequestIDAndAccessLog(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.New(core)))
	r.GET("/p", func(c *gin.Context) { c.JSON(http.StatusNotFound, gin.H{"code": 404}) })

	req := httptest.NewRequest(http.MethodGet, "/p?password=hunter2&q=goats", nil)
	req.Header.Set(KeyRequestID, "rid-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "rid-1", w.Header().Get(KeyRequestID))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.WarnLevel, entry.Level)
	fields := entry.ContextMap()
	assert.Equal(t, "rid-1", fields["rid"])
	assert.Equal(t, int64(404), fields["status"])
	q := fields["query"].(map[string][]string)
	assert.Equal(t, []string{"****"}, q["password"])
	assert.Equal(t, []string{"goats"}, q["q"])
}

func TestRequestIDGenerated(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/p", whoami)
	w, _ := call(t, r, "")
	assert.Len(t, w.Header().Get(KeyRequestID), 36)
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.GET("/p", Timeout(10*time.Millisecond), func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	w, env := call(t, r, "")
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, "request timed out", env.Msg)
}

func TestRequestIDRejectsUnsafeHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/p", whoami)

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	req.Header.Set(KeyRequestID, "evil\nline")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Len(t, w.Header().Get(KeyRequestID), 36)

	assert.True(t, validRequestID("edge-01:abc_9.x"))
	assert.False(t, validRequestID(strings.Repeat("a", maxRequestIDLen+1)))
}

func TestConcurrencyLimitRejectsWhenQueueWaitExpires(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	r := gin.New()
	r.Use(ConcurrencyLimit(1))
	r.GET("/slow", func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})
	r.GET("/p", whoami)

	done := make(chan int)
	go func() {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
		done <- w.Code
	}()
	<-entered

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/p", nil).WithContext(ctx))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "2", w.Header().Get("Retry-After"))

	close(release)
	assert.Equal(t, http.StatusOK, <-done)
}

func TestIPLimiterEvictsLeastRecentIP(t *testing.T) {
	l := newIPLimiter(1, 1, 2, time.Hour)

	assert.True(t, l.allow("1.1.1.1"))
	assert.False(t, l.allow("1.1.1.1"))
	assert.True(t, l.allow("2.2.2.2"))
	assert.True(t, l.allow("3.3.3.3"))

	// 容量为 2，1.1.1.1 最久未用被淘汰，回来时拿到新桶
	assert.Equal(t, 2, l.buckets.Len())
	assert.False(t, l.buckets.Contains("1.1.1.1"))
	assert.True(t, l.allow("1.1.1.1"))
}

func TestIPLimiterDropsIdleBuckets(t *testing.T) {
	l := newIPLimiter(1, 1, 10, 50*time.Millisecond)

	assert.True(t, l.allow("1.1.1.1"))
	assert.False(t, l.allow("1.1.1.1"))

	time.Sleep(120 * time.Millisecond)
	_, ok := l.buckets.Get("1.1.1.1")
	assert.False(t, ok)
	assert.True(t, l.allow("1.1.1.1"))
}
