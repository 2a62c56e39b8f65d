// dao/role_dao.go
package dao

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	logger "github.com/aegis-iam/aegis/logging"
)

// RoleDAO resolves role membership from the directory graph. Users are USER
// nodes connected to ROLE nodes through HAS_ROLE relationships.
type RoleDAO struct {
	Driver neo4j.Driver
}

func NewRoleDAO(driver neo4j.Driver) *RoleDAO {
	return &RoleDAO{Driver: driver}
}

// GetUserRoles returns the set of role names held by a user. An unknown
// user simply holds no roles.
func (dao *RoleDAO) GetUserRoles(ctx context.Context, userID string) ([]string, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (u:USER {id: $userID})-[:HAS_ROLE]->(r:ROLE)
    RETURN r.name
    `
	result, err := session.Run(query, map[string]interface{}{"userID": userID})
	if err != nil {
		logger.Error("Failed to execute user roles query",
			zap.Error(err),
			zap.String("userID", userID))
		return nil, fmt.Errorf("failed to execute user roles query: %w", err)
	}

	var roles []string
	for result.Next() {
		if name, ok := result.Record().Values[0].(string); ok {
			roles = append(roles, name)
		}
	}

	logger.Debug("Resolved user roles",
		zap.String("userID", userID),
		zap.Strings("roles", roles))
	return roles, nil
}

// CountRoleMembers returns the number of distinct users currently holding
// the role. A role with no members (or no node at all) counts zero.
func (dao *RoleDAO) CountRoleMembers(ctx context.Context, roleName string) (int, error) {
	session := dao.Driver.NewSession(neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close()

	query := `
    MATCH (u:USER)-[:HAS_ROLE]->(r:ROLE {name: $name})
    RETURN count(DISTINCT u) AS members
    `
	result, err := session.Run(query, map[string]interface{}{"name": roleName})
	if err != nil {
		logger.Error("Failed to execute role member count query",
			zap.Error(err),
			zap.String("role", roleName))
		return 0, fmt.Errorf("failed to execute role member count query: %w", err)
	}

	if result.Next() {
		if members, ok := result.Record().Values[0].(int64); ok {
			return int(members), nil
		}
	}
	return 0, nil
}
