// service/services.go
package service

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/aegis-iam/aegis/analyzer"
	"github.com/aegis-iam/aegis/audit"
	"github.com/aegis-iam/aegis/dao"
	"github.com/aegis-iam/aegis/pdp/engine"
	"github.com/aegis-iam/aegis/util"
)

type Services struct {
	Policy IPolicyService
	Access IAccessService
}

func InitializeServices(
	driver neo4j.Driver,
	auditService audit.Service,
	validationUtil *util.ValidationUtil,
	cacheService util.PolicyCache,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
	locks util.ResourceLocker,
	evaluationTimeout time.Duration,
) (*Services, error) {
	policyDAO := dao.NewPolicyDAO(driver, auditService)
	roleDAO := dao.NewRoleDAO(driver)

	conditionEvaluator, err := engine.NewConditionEvaluator()
	if err != nil {
		return nil, err
	}
	matcher := engine.NewRuleMatcher(conditionEvaluator)
	evaluator := engine.NewPolicyEvaluator(policyDAO, matcher, evaluationTimeout)
	impactAnalyzer := analyzer.NewImpactAnalyzer(policyDAO, roleDAO)

	services := &Services{
		Policy: NewPolicyService(policyDAO, impactAnalyzer, validationUtil, cacheService, notificationSvc, eventBus, locks),
		Access: NewAccessService(evaluator, roleDAO, auditService),
	}

	return services, nil
}
