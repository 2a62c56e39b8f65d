// controller/policy_controller_test.go
package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	testify_mock "github.com/stretchr/testify/mock"

	"github.com/aegis-iam/aegis/analyzer"
	"github.com/aegis-iam/aegis/controller"
	aegis_errors "github.com/aegis-iam/aegis/errors"
	logger "github.com/aegis-iam/aegis/logging"
	"github.com/aegis-iam/aegis/model"
	pdp_model "github.com/aegis-iam/aegis/pdp/model"
	"github.com/aegis-iam/aegis/test/mock"
	helper_util "github.com/aegis-iam/aegis/util/helper"
)

var testAdmin = model.Principal{UserID: "admin-1", TenantID: "tenant-a", Admin: true}

func setupRouter(principal *model.Principal, register func(*gin.RouterGroup)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if principal != nil {
			c.Set("principal", *principal)
		}
		c.Next()
	})
	register(r.Group("/"))
	return r
}

func TestPolicyController(t *testing.T) {
	logger.InitLogger(os.TempDir())
	defer logger.Sync()

	mockPolicyService := new(mock.MockPolicyService)
	policyController := controller.NewPolicyController(mockPolicyService)
	router := setupRouter(&testAdmin, policyController.RegisterRoutes)

	t.Run("CreatePolicy_Success", func(t *testing.T) {
		mockPolicyService.On("CreatePolicy", testify_mock.Anything, testAdmin, testify_mock.Anything).
			Return(&model.Policy{ID: "1", Name: "Test Policy"}, nil).Once()

		body := strings.NewReader(`{"name":"Test Policy"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/policies", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("CreatePolicy_Forbidden", func(t *testing.T) {
		mockPolicyService.On("CreatePolicy", testify_mock.Anything, testAdmin, testify_mock.Anything).
			Return(nil, aegis_errors.ErrForbidden).Once()

		body := strings.NewReader(`{"name":"Test Policy"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/policies", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("UpdatePolicy_Success", func(t *testing.T) {
		mockPolicyService.On("UpdatePolicy", testify_mock.Anything, testAdmin, "1", testify_mock.Anything).
			Return(&model.Policy{ID: "1", Name: "Updated Policy"}, nil).Once()

		body := strings.NewReader(`{"name":"Updated Policy"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/policies/1", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("UpdatePolicy_Failure_NotFound", func(t *testing.T) {
		mockPolicyService.On("UpdatePolicy", testify_mock.Anything, testAdmin, "1", testify_mock.Anything).
			Return(nil, aegis_errors.ErrPolicyNotFound).Once()

		body := strings.NewReader(`{"name":"Updated Policy"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/policies/1", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("UpdatePolicy_Failure_VersionConflict", func(t *testing.T) {
		mockPolicyService.On("UpdatePolicy", testify_mock.Anything, testAdmin, "1", testify_mock.Anything).
			Return(nil, aegis_errors.ErrVersionConflict).Once()

		body := strings.NewReader(`{"name":"Updated Policy"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PUT", "/policies/1", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("DeletePolicy_Success", func(t *testing.T) {
		mockPolicyService.On("DeletePolicy", testify_mock.Anything, testAdmin, "1").
			Return(nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("DELETE", "/policies/1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("GetPolicy_Success", func(t *testing.T) {
		mockPolicyService.On("GetPolicy", testify_mock.Anything, "1").
			Return(&model.Policy{ID: "1", Name: "Test Policy"}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/policies/1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var got model.Policy
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "Test Policy", got.Name)
	})

	t.Run("ListPolicies_Success", func(t *testing.T) {
		mockPolicyService.On("ListPolicies", testify_mock.Anything, "tenant-a", helper_util.DefaultPageLimit, 0).
			Return([]*model.Policy{{ID: "1"}}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/policies", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("AnalyzeImpact_Success", func(t *testing.T) {
		mockPolicyService.On("AnalyzeImpact", testify_mock.Anything, testAdmin, "1").
			Return(&model.Policy{ID: "1"}, &analyzer.Impact{
				AffectedRoles:     []analyzer.RoleImpact{{Name: "auditor", UserCount: 3}},
				AffectedResources: []string{"doc-1"},
				Conflicts:         []analyzer.PolicyConflict{},
			}, nil).Once()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/policies/1/impact", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "auditor")
	})

	mockPolicyService.AssertExpectations(t)
}

func TestPolicyControllerUnauthenticated(t *testing.T) {
	logger.InitLogger(os.TempDir())
	defer logger.Sync()

	mockPolicyService := new(mock.MockPolicyService)
	policyController := controller.NewPolicyController(mockPolicyService)
	router := setupRouter(nil, policyController.RegisterRoutes)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/policies", strings.NewReader(`{"name":"x"}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	mockPolicyService.AssertNotCalled(t, "CreatePolicy")
}

func TestAccessController(t *testing.T) {
	logger.InitLogger(os.TempDir())
	defer logger.Sync()

	mockAccessService := new(mock.MockAccessService)
	accessController := controller.NewAccessController(mockAccessService)
	router := setupRouter(&testAdmin, accessController.RegisterRoutes)

	t.Run("Evaluate_Allowed", func(t *testing.T) {
		mockAccessService.On("EvaluateAccess", testify_mock.Anything, testAdmin, testify_mock.Anything).
			Return(&pdp_model.AccessDecision{Allowed: true, PolicyID: "p1", RuleID: "r1"}, nil).Once()

		body := strings.NewReader(`{"resource":"doc-1","action":"read"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/access/evaluate", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var decision pdp_model.AccessDecision
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
		assert.True(t, decision.Allowed)
	})

	t.Run("Evaluate_MissingFields", func(t *testing.T) {
		body := strings.NewReader(`{"resource":"doc-1"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/access/evaluate", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Evaluate_Indeterminate", func(t *testing.T) {
		mockAccessService.On("EvaluateAccess", testify_mock.Anything, testAdmin, testify_mock.Anything).
			Return(nil, aegis_errors.ErrIndeterminate).Once()

		body := strings.NewReader(`{"resource":"doc-1","action":"read"}`)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/access/evaluate", body)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	mockAccessService.AssertExpectations(t)
}
