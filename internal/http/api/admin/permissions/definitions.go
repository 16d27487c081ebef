package permissions

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gorm.io/datatypes"
)

// Definition describes one grantable admin permission.
type Definition struct {
	Key         string `json:"key"`         // "METHOD /full/path" permission key.
	Group       string `json:"group"`       // UI grouping label.
	Description string `json:"description"` // Human-readable summary.
}

// Key builds a permission key from an HTTP method and route path.
func Key(method, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(path)
}

// Definitions returns every grantable permission.
func Definitions() []Definition {
	return []Definition{
		// Admin accounts.
		{Key: "POST /v0/admin/admins", Group: "admins", Description: "Create admin accounts"},
		{Key: "GET /v0/admin/admins", Group: "admins", Description: "List admin accounts"},
		{Key: "GET /v0/admin/admins/:id", Group: "admins", Description: "View an admin account"},
		{Key: "PUT /v0/admin/admins/:id", Group: "admins", Description: "Update admin accounts"},
		{Key: "DELETE /v0/admin/admins/:id", Group: "admins", Description: "Delete admin accounts"},
		{Key: "POST /v0/admin/admins/:id/disable", Group: "admins", Description: "Disable admin accounts"},
		{Key: "POST /v0/admin/admins/:id/enable", Group: "admins", Description: "Enable admin accounts"},
		{Key: "POST /v0/admin/admins/:id/password", Group: "admins", Description: "Change admin passwords"},
		{Key: "GET /v0/admin/permissions", Group: "admins", Description: "List grantable permissions"},

		// Customers.
		{Key: "POST /v0/admin/customers", Group: "customers", Description: "Create customers"},
		{Key: "GET /v0/admin/customers", Group: "customers", Description: "List customers"},
		{Key: "GET /v0/admin/customers/:id", Group: "customers", Description: "View a customer"},
		{Key: "PUT /v0/admin/customers/:id", Group: "customers", Description: "Update customers"},
		{Key: "DELETE /v0/admin/customers/:id", Group: "customers", Description: "Delete customers"},
		{Key: "POST /v0/admin/customers/:id/points", Group: "customers", Description: "Adjust customer point balances"},

		// Earning criteria.
		{Key: "POST /v0/admin/earning-criteria", Group: "earning-criteria", Description: "Create earning criteria"},
		{Key: "GET /v0/admin/earning-criteria", Group: "earning-criteria", Description: "List earning criteria"},
		{Key: "GET /v0/admin/earning-criteria/:id", Group: "earning-criteria", Description: "View an earning criteria"},
		{Key: "PUT /v0/admin/earning-criteria/:id", Group: "earning-criteria", Description: "Update earning criteria"},
		{Key: "DELETE /v0/admin/earning-criteria/:id", Group: "earning-criteria", Description: "Delete earning criteria"},
		{Key: "POST /v0/admin/earning-criteria/:id/enable", Group: "earning-criteria", Description: "Enable earning criteria"},
		{Key: "POST /v0/admin/earning-criteria/:id/disable", Group: "earning-criteria", Description: "Disable earning criteria"},

		// Tiers.
		{Key: "POST /v0/admin/tiers", Group: "tiers", Description: "Create tiers"},
		{Key: "GET /v0/admin/tiers", Group: "tiers", Description: "List tiers"},
		{Key: "GET /v0/admin/tiers/:id", Group: "tiers", Description: "View a tier"},
		{Key: "PUT /v0/admin/tiers/:id", Group: "tiers", Description: "Update tiers"},
		{Key: "DELETE /v0/admin/tiers/:id", Group: "tiers", Description: "Delete tiers"},

		// Offers.
		{Key: "POST /v0/admin/offers", Group: "offers", Description: "Create merchant offers"},
		{Key: "GET /v0/admin/offers", Group: "offers", Description: "List merchant offers"},
		{Key: "GET /v0/admin/offers/:id", Group: "offers", Description: "View a merchant offer"},
		{Key: "PUT /v0/admin/offers/:id", Group: "offers", Description: "Update merchant offers"},
		{Key: "DELETE /v0/admin/offers/:id", Group: "offers", Description: "Delete merchant offers"},
		{Key: "POST /v0/admin/offers/:id/enable", Group: "offers", Description: "Enable merchant offers"},
		{Key: "POST /v0/admin/offers/:id/disable", Group: "offers", Description: "Disable merchant offers"},

		// Coin conversion.
		{Key: "POST /v0/admin/coin-conversion", Group: "coin-conversion", Description: "Create or update the coin conversion rule"},
		{Key: "GET /v0/admin/coin-conversion", Group: "coin-conversion", Description: "List coin conversion rules"},
		{Key: "PUT /v0/admin/coin-conversion/reset", Group: "coin-conversion", Description: "Reset the active coin conversion rule"},
		{Key: "GET /v0/admin/coin-conversion/convert", Group: "coin-conversion", Description: "Preview a points-to-coins conversion"},

		// Referral program.
		{Key: "POST /v0/admin/referral-program", Group: "referral-program", Description: "Create or update the referral program rule"},
		{Key: "GET /v0/admin/referral-program", Group: "referral-program", Description: "View the active referral program rule"},
		{Key: "POST /v0/admin/referral-program/link", Group: "referral-program", Description: "Issue referral links"},
		{Key: "POST /v0/admin/referral-program/referrals", Group: "referral-program", Description: "Register referred customers"},
		{Key: "GET /v0/admin/referral-program/referrals/:id", Group: "referral-program", Description: "Track a referral entry"},
		{Key: "POST /v0/admin/referral-program/complete", Group: "referral-program", Description: "Complete referral entries"},

		// Audit logs.
		{Key: "GET /v0/admin/audit-logs", Group: "audit", Description: "List audit log entries"},

		// Settings.
		{Key: "GET /v0/admin/settings", Group: "settings", Description: "View runtime settings"},
		{Key: "PUT /v0/admin/settings", Group: "settings", Description: "Update runtime settings"},
	}
}

// DefinitionMap returns the permission definitions keyed by permission key.
func DefinitionMap() map[string]Definition {
	defs := Definitions()
	out := make(map[string]Definition, len(defs))
	for _, def := range defs {
		out[def.Key] = def
	}
	return out
}

// NormalizePermissions trims, deduplicates and sorts permission keys.
func NormalizePermissions(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		trimmed := strings.TrimSpace(key)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}
	sort.Strings(out)
	return out
}

// ValidatePermissions rejects keys that are not defined.
func ValidatePermissions(keys []string) error {
	defined := DefinitionMap()
	for _, key := range keys {
		if _, ok := defined[key]; !ok {
			return fmt.Errorf("unknown permission: %s", key)
		}
	}
	return nil
}

// MarshalPermissions encodes permission keys as a JSON array.
func MarshalPermissions(keys []string) ([]byte, error) {
	if keys == nil {
		keys = []string{}
	}
	return json.Marshal(keys)
}

// ParsePermissions decodes permission keys from a JSON column value.
func ParsePermissions(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var keys []string
	if errUnmarshal := json.Unmarshal(raw, &keys); errUnmarshal != nil {
		return []string{}
	}
	return NormalizePermissions(keys)
}

// HasPermission reports whether the key is in the granted set.
func HasPermission(granted []string, key string) bool {
	for _, item := range granted {
		if item == key {
			return true
		}
	}
	return false
}
