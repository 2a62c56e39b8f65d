// util/helper/api.go

package helper_util

import (
	"strconv"

	"github.com/gin-gonic/gin"

	aegis_errors "github.com/aegis-iam/aegis/errors"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// GetPaginationParams reads limit/offset query parameters. The limit defaults
// to DefaultPageLimit and is capped at MaxPageLimit; negative values are
// rejected.
func GetPaginationParams(c *gin.Context) (limit int, offset int, err error) {
	limit, err = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageLimit)))
	if err != nil {
		return 0, 0, aegis_errors.ErrInvalidPagination
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		return 0, 0, aegis_errors.ErrInvalidPagination
	}
	if limit < 0 || offset < 0 {
		return 0, 0, aegis_errors.ErrInvalidPagination
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return limit, offset, nil
}
