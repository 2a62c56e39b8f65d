// pdp/engine/condition.go
package engine

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"go.uber.org/zap"

	logger "github.com/aegis-iam/aegis/logging"
	"github.com/aegis-iam/aegis/model"
	pdp_model "github.com/aegis-iam/aegis/pdp/model"
)

// ConditionEvaluator decides whether a single condition holds for an
// evaluation context. It fails closed: malformed payloads, unsupported
// types, collaborator errors and even panics all evaluate to non-match,
// never to a grant.
type ConditionEvaluator struct {
	env      *cel.Env
	programs sync.Map // condition value -> cel.Program

	// now is swappable for tests.
	now func() time.Time
}

func NewConditionEvaluator() (*ConditionEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("user", cel.StringType),
		cel.Variable("resource", cel.StringType),
		cel.Variable("action", cel.StringType),
		cel.Variable("context", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, err
	}
	return &ConditionEvaluator{env: env, now: time.Now}, nil
}

// Evaluate reports whether the condition holds. It never returns an error:
// a malfunctioning condition must never accidentally grant access, so every
// failure mode is a non-match.
func (ce *ConditionEvaluator) Evaluate(ctx context.Context, condition model.Condition, request *pdp_model.AccessRequest, ec *pdp_model.EvaluationContext) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Condition evaluation panicked",
				zap.Any("panic", r),
				zap.String("conditionType", string(condition.Type)))
			matched = false
		}
	}()

	switch condition.Type {
	case model.ConditionRole:
		return ce.evaluateRoleCondition(ctx, condition, ec)
	case model.ConditionTime:
		return ce.evaluateTimeCondition(condition)
	case model.ConditionIP:
		return ce.evaluateIPCondition(condition, ec)
	case model.ConditionCustom:
		return ce.evaluateCustomCondition(condition, request, ec)
	default:
		logger.Warn("Unknown condition type", zap.String("type", string(condition.Type)))
		return false
	}
}

func (ce *ConditionEvaluator) evaluateRoleCondition(ctx context.Context, condition model.Condition, ec *pdp_model.EvaluationContext) bool {
	held, err := ec.HasRole(ctx, condition.Value)
	if err != nil {
		logger.Warn("Role lookup failed, treating condition as non-match",
			zap.Error(err),
			zap.String("role", condition.Value),
			zap.String("userID", ec.UserID))
		return false
	}
	return held
}

func (ce *ConditionEvaluator) evaluateTimeCondition(condition model.Condition) bool {
	boundary, err := time.Parse(time.RFC3339, condition.Value)
	if err != nil {
		logger.Warn("Malformed time condition value", zap.String("value", condition.Value))
		return false
	}
	now := ce.now()
	switch condition.Operator {
	case model.OperatorBefore:
		return now.Before(boundary)
	case model.OperatorAfter:
		return now.After(boundary)
	default:
		logger.Warn("Unknown time condition operator", zap.String("operator", condition.Operator))
		return false
	}
}

// evaluateIPCondition matches the client address against an IPv4 CIDR
// range. IPv6 inputs are rejected outright rather than silently mismatched.
func (ce *ConditionEvaluator) evaluateIPCondition(condition model.Condition, ec *pdp_model.EvaluationContext) bool {
	_, network, err := net.ParseCIDR(condition.Value)
	if err != nil {
		logger.Warn("Malformed CIDR in ip condition", zap.String("value", condition.Value))
		return false
	}
	if network.IP.To4() == nil {
		logger.Warn("Non-IPv4 CIDR in ip condition rejected", zap.String("value", condition.Value))
		return false
	}

	clientIP := net.ParseIP(ec.ClientIP())
	if clientIP == nil {
		logger.Debug("Client address missing or malformed for ip condition")
		return false
	}
	if clientIP.To4() == nil {
		logger.Debug("Non-IPv4 client address rejected for ip condition",
			zap.String("ip", clientIP.String()))
		return false
	}

	return network.Contains(clientIP)
}

// evaluateCustomCondition compiles the condition value as a CEL expression
// over {user, resource, action, context} and requires a boolean true result.
// Compiled programs are cached by expression; an empty expression never
// matches.
func (ce *ConditionEvaluator) evaluateCustomCondition(condition model.Condition, request *pdp_model.AccessRequest, ec *pdp_model.EvaluationContext) bool {
	if condition.Value == "" {
		return false
	}

	prog, err := ce.program(condition.Value)
	if err != nil {
		logger.Warn("Failed to compile custom condition",
			zap.Error(err),
			zap.String("expression", condition.Value))
		return false
	}

	attrs := ec.Attributes
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	out, _, err := prog.Eval(map[string]interface{}{
		"user":     ec.UserID,
		"resource": request.Resource,
		"action":   request.Action,
		"context":  attrs,
	})
	if err != nil {
		logger.Warn("Custom condition evaluation failed",
			zap.Error(err),
			zap.String("expression", condition.Value))
		return false
	}

	result, ok := out.Value().(bool)
	return ok && result
}

func (ce *ConditionEvaluator) program(expression string) (cel.Program, error) {
	if cached, ok := ce.programs.Load(expression); ok {
		return cached.(cel.Program), nil
	}
	ast, issues := ce.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prog, err := ce.env.Program(ast)
	if err != nil {
		return nil, err
	}
	ce.programs.Store(expression, prog)
	return prog, nil
}
