// controller/policy_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	aegis_errors "github.com/aegis-iam/aegis/errors"
	"github.com/aegis-iam/aegis/model"
	"github.com/aegis-iam/aegis/service"
	"github.com/aegis-iam/aegis/util"
	helper_util "github.com/aegis-iam/aegis/util/helper"
)

type PolicyController struct {
	policyService service.IPolicyService
}

func NewPolicyController(policyService service.IPolicyService) *PolicyController {
	return &PolicyController{
		policyService: policyService,
	}
}

// RegisterRoutes registers the API routes
func (pc *PolicyController) RegisterRoutes(r *gin.RouterGroup) {
	policies := r.Group("/policies")
	{
		policies.POST("", pc.CreatePolicy)
		policies.PUT("/:id", pc.UpdatePolicy)
		policies.DELETE("/:id", pc.DeletePolicy)
		policies.GET("/:id", pc.GetPolicy)
		policies.GET("", pc.ListPolicies)
		policies.GET("/:id/impact", pc.AnalyzeImpact)
	}
}

// CreatePolicy endpoint
func (pc *PolicyController) CreatePolicy(c *gin.Context) {
	caller, err := util.GetPrincipal(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	var policy model.Policy
	if err := c.ShouldBindJSON(&policy); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", aegis_errors.ErrInvalidPolicyData)
		return
	}

	createdPolicy, err := pc.policyService.CreatePolicy(c, caller, policy)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrForbidden):
			util.RespondWithError(c, http.StatusForbidden, "Administrator capability required", err)
		case errors.Is(err, aegis_errors.ErrInvalidPolicyData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		case errors.Is(err, aegis_errors.ErrPolicyConflict):
			util.RespondWithError(c, http.StatusConflict, "Policy already exists", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to create policy", aegis_errors.ErrInternalServer)
		}
		return
	}

	c.JSON(http.StatusCreated, createdPolicy)
}

// UpdatePolicy endpoint
func (pc *PolicyController) UpdatePolicy(c *gin.Context) {
	policyID := c.Param("id")
	caller, err := util.GetPrincipal(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	var update model.PolicyUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		return
	}

	updatedPolicy, err := pc.policyService.UpdatePolicy(c, caller, policyID, update)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrForbidden):
			util.RespondWithError(c, http.StatusForbidden, "Administrator capability required", err)
		case errors.Is(err, aegis_errors.ErrPolicyNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		case errors.Is(err, aegis_errors.ErrInvalidPolicyData):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
		case errors.Is(err, aegis_errors.ErrVersionConflict):
			util.RespondWithError(c, http.StatusConflict, "Policy was modified concurrently", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to update policy", err)
		}
		return
	}

	c.JSON(http.StatusOK, updatedPolicy)
}

// DeletePolicy endpoint
func (pc *PolicyController) DeletePolicy(c *gin.Context) {
	policyID := c.Param("id")
	caller, err := util.GetPrincipal(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	if err := pc.policyService.DeletePolicy(c, caller, policyID); err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrForbidden):
			util.RespondWithError(c, http.StatusForbidden, "Administrator capability required", err)
		case errors.Is(err, aegis_errors.ErrPolicyNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to delete policy", err)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

// GetPolicy endpoint
func (pc *PolicyController) GetPolicy(c *gin.Context) {
	policyID := c.Param("id")

	policy, err := pc.policyService.GetPolicy(c, policyID)
	if err != nil {
		if errors.Is(err, aegis_errors.ErrPolicyNotFound) {
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		} else {
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve policy", err)
		}
		return
	}

	c.JSON(http.StatusOK, policy)
}

// ListPolicies endpoint
func (pc *PolicyController) ListPolicies(c *gin.Context) {
	caller, err := util.GetPrincipal(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	scope := c.Query("scope")
	if scope == "" {
		scope = caller.TenantID
	}

	policies, err := pc.policyService.ListPolicies(c, scope, limit, offset)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}

	c.JSON(http.StatusOK, policies)
}

// AnalyzeImpact endpoint
func (pc *PolicyController) AnalyzeImpact(c *gin.Context) {
	policyID := c.Param("id")
	caller, err := util.GetPrincipal(c)
	if err != nil {
		util.RespondWithError(c, http.StatusUnauthorized, "Unauthorized", err)
		return
	}

	policy, impact, err := pc.policyService.AnalyzeImpact(c, caller, policyID)
	if err != nil {
		switch {
		case errors.Is(err, aegis_errors.ErrForbidden):
			util.RespondWithError(c, http.StatusForbidden, "Administrator capability required", err)
		case errors.Is(err, aegis_errors.ErrPolicyNotFound):
			util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to analyze policy impact", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"policy": policy,
		"impact": impact,
	})
}
