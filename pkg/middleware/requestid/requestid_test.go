package requestid

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveWithMiddleware(req *http.Request) (*httptest.ResponseRecorder, string) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware())
	var stored string
	router.GET("/ping", func(c *gin.Context) {
		stored = Value(c)
		c.Status(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec, stored
}

func TestGeneratesUUIDWhenHeaderMissing(t *testing.T) {
	rec, stored := serveWithMiddleware(httptest.NewRequest(http.MethodGet, "/ping", nil))

	echoed := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, echoed)
	assert.Equal(t, echoed, stored)
	_, err := uuid.Parse(echoed)
	assert.NoError(t, err)
}

func TestReusesClientRequestID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "client-supplied-id")

	rec, stored := serveWithMiddleware(req)

	assert.Equal(t, "client-supplied-id", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "client-supplied-id", stored)
}
