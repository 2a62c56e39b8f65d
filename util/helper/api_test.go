// util/helper/api_test.go

package helper_util

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aegis_errors "github.com/aegis-iam/aegis/errors"
)

func ginContextForQuery(t *testing.T, rawQuery string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/policies?"+rawQuery, nil)
	return c
}

func TestGetPaginationParams(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		limit, offset, err := GetPaginationParams(ginContextForQuery(t, ""))
		require.NoError(t, err)
		assert.Equal(t, DefaultPageLimit, limit)
		assert.Equal(t, 0, offset)
	})

	t.Run("explicit values", func(t *testing.T) {
		limit, offset, err := GetPaginationParams(ginContextForQuery(t, "limit=5&offset=15"))
		require.NoError(t, err)
		assert.Equal(t, 5, limit)
		assert.Equal(t, 15, offset)
	})

	t.Run("limit capped at maximum", func(t *testing.T) {
		limit, _, err := GetPaginationParams(ginContextForQuery(t, "limit=5000"))
		require.NoError(t, err)
		assert.Equal(t, MaxPageLimit, limit)
	})

	t.Run("rejects non-numeric values", func(t *testing.T) {
		_, _, err := GetPaginationParams(ginContextForQuery(t, "limit=abc"))
		assert.ErrorIs(t, err, aegis_errors.ErrInvalidPagination)

		_, _, err = GetPaginationParams(ginContextForQuery(t, "offset=abc"))
		assert.ErrorIs(t, err, aegis_errors.ErrInvalidPagination)
	})

	t.Run("rejects negative values", func(t *testing.T) {
		_, _, err := GetPaginationParams(ginContextForQuery(t, "limit=-1"))
		assert.ErrorIs(t, err, aegis_errors.ErrInvalidPagination)

		_, _, err = GetPaginationParams(ginContextForQuery(t, "offset=-3"))
		assert.ErrorIs(t, err, aegis_errors.ErrInvalidPagination)
	})
}
