// model/access.go
package model

// Principal is the authenticated caller identity attached to every request
// by the auth middleware. TenantID is empty for callers outside any tenant;
// Admin reflects membership in the administrator group.
type Principal struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id,omitempty"`
	Admin    bool   `json:"admin"`
}
