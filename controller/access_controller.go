// controller/access_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	aegis_errors "github.com/aegis-iam/aegis/errors"
	pdp_model "github.com/aegis-iam/aegis/pdp/model"
	"github.com/aegis-iam/aegis/service"
	"github.com/aegis-iam/aegis/util"
)

type AccessController struct {
	accessService service.IAccessService
}

func NewAccessController(accessService service.IAccessService) *AccessController {
	return &AccessController{
		accessService: accessService,
	}
}

// RegisterRoutes registers the API routes
func (ac *AccessController) RegisterRoutes(r *gin.RouterGroup) {
	access := r.Group("/access")
	{
		access.POST("/evaluate", ac.EvaluateAccess)
	}
}

// EvaluateAccess endpoint. An indeterminate evaluation is reported as a
// server-side failure so callers can retry; it is never rendered as a deny.
func (ac *AccessController) EvaluateAccess(c *gin.Context) {
	caller, err := util.GetPrincipal(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	var request pdp_model.AccessRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid access request", aegis_errors.ErrInvalidAccessRequest)
		return
	}

	decision, err := ac.accessService.EvaluateAccess(c, caller, &request)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrUnauthenticated):
			util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		case errors.Is(err, aegis_errors.ErrInvalidAccessRequest):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid access request", err)
		case errors.Is(err, aegis_errors.ErrIndeterminate):
			util.RespondWithError(c, http.StatusServiceUnavailable, "Evaluation could not complete", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to evaluate access", err)
		}
		return
	}

	c.JSON(http.StatusOK, decision)
}
