package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "空输入", input: "", want: ""},
		{name: "纯IPv4", input: "192.168.1.10", want: "192.168.1.10"},
		{name: "IPv4带端口", input: "192.168.1.10:8080", want: "192.168.1.10"},
		{name: "XFF列表取第一个", input: "203.0.113.7, 10.0.0.1, 172.16.0.1", want: "203.0.113.7"},
		{name: "XFF列表带空格", input: " 203.0.113.7 ,10.0.0.1", want: "203.0.113.7"},
		{name: "IPv4映射IPv6", input: "::ffff:192.0.2.1", want: "192.0.2.1"},
		{name: "纯IPv6", input: "2001:db8::1", want: "2001:db8::1"},
		{name: "IPv6带端口", input: "[2001:db8::1]:443", want: "2001:db8::1"},
		{name: "非IP原样返回", input: "not-an-ip", want: "not-an-ip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeIP(tt.input))
		})
	}
}

func newTestGinContext(t *testing.T) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	req, err := http.NewRequest(http.MethodGet, "/", nil)
	require.NoError(t, err)
	req.RemoteAddr = "192.168.1.10:52341"
	c.Request = req
	return c
}

func TestGetClientIP(t *testing.T) {
	// 无代理头时取RemoteAddr并去端口
	c := newTestGinContext(t)
	assert.Equal(t, "192.168.1.10", GetClientIP(c))

	// X-Real-IP 优先于 RemoteAddr
	c = newTestGinContext(t)
	c.Request.Header.Set("X-Real-IP", "198.51.100.3")
	assert.Equal(t, "198.51.100.3", GetClientIP(c))

	// X-Forwarded-For 优先级最高，取列表第一个
	c = newTestGinContext(t)
	c.Request.Header.Set("X-Real-IP", "198.51.100.3")
	c.Request.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", GetClientIP(c))
}

func TestGetClientIPFromContext(t *testing.T) {
	// 未写入时返回空
	assert.Equal(t, "", GetClientIPFromContext(context.Background()))

	ctx := context.WithValue(context.Background(), ContextKeyClientIP, "203.0.113.7")
	assert.Equal(t, "203.0.113.7", GetClientIPFromContext(ctx))
}

func TestGetCurrentUIDFromGinContext(t *testing.T) {
	c := newTestGinContext(t)
	assert.Equal(t, "", GetCurrentUIDFromGinContext(c))

	c.Set("uid", "u-1001")
	assert.Equal(t, "u-1001", GetCurrentUIDFromGinContext(c))
}
