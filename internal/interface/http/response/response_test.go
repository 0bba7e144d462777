package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
)

func run(fn func(c *gin.Context)) (*httptest.ResponseRecorder, Response) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	fn(c)

	var body Response
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestError_MapsAppError(t *testing.T) {
	w, body := run(func(c *gin.Context) { Error(c, apperror.ErrAlreadyProcessed) })

	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, body.Error)
	assert.False(t, body.Success)
	assert.Equal(t, "CONFLICT", body.Error.Code)
	assert.Equal(t, apperror.ErrAlreadyProcessed.Message, body.Error.Message)
}

func TestError_HidesDatabaseCause(t *testing.T) {
	err := apperror.Wrap(errors.New("pq: relation missing"), apperror.ErrCodeDatabaseError, "booking repository: update")
	w, body := run(func(c *gin.Context) { Error(c, err) })

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "DATABASE_ERROR", body.Error.Code)
	assert.NotContains(t, body.Error.Message, "pq")
}

func TestError_UnknownError(t *testing.T) {
	w, body := run(func(c *gin.Context) { Error(c, errors.New("boom")) })

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
}

func TestPaginated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Paginated(c, []int{1, 2}, 5, 2, 2)

	var body PaginatedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Pagination.HasMore)
	assert.Equal(t, 5, body.Pagination.Total)
}
