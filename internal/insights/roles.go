// Package insights extracts KPIs, breakdowns, trends, clusters and alerts
// from an arbitrary uploaded business table.
package insights

import (
	"strings"

	"github.com/sells-group/market-advisor/internal/table"
)

// Role is the semantic meaning inferred for a column.
type Role string

// Roles recognised by the classifier.
const (
	RoleRevenue     Role = "revenue"
	RoleProfit      Role = "profit"
	RoleCost        Role = "cost"
	RoleChurn       Role = "churn"
	RoleCompany     Role = "company"
	RoleRegion      Role = "region"
	RoleSegment     Role = "segment"
	RoleCategory    Role = "category"
	RoleSubCategory Role = "sub_category"
	RoleProduct     Role = "product"
	RoleDate        Role = "date"
	RoleCountry     Role = "country"
)

// RoleMapping maps a role to the first column claiming it.
type RoleMapping map[Role]string

// Get returns the column for role, or "" if unclaimed.
func (m RoleMapping) Get(role Role) string {
	return m[role]
}

type roleRule struct {
	role  Role
	match func(name string) bool
}

func containsAny(keywords ...string) func(string) bool {
	return func(name string) bool {
		for _, k := range keywords {
			if strings.Contains(name, k) {
				return true
			}
		}
		return false
	}
}

// roleRules is evaluated in order against every lower-cased column name. A
// column may satisfy several rules.
var roleRules = []roleRule{
	{RoleRevenue, containsAny("sales", "revenue", "turnover", "amount")},
	{RoleProfit, containsAny("profit", "margin")},
	{RoleCost, containsAny("cost", "expense", "cogs")},
	{RoleChurn, containsAny("churn", "attrition")},
	{RoleCompany, containsAny("company", "account", "store", "branch", "segment", "customer id")},
	{RoleRegion, containsAny("region")},
	{RoleSegment, containsAny("segment")},
	{RoleCategory, func(name string) bool {
		return strings.Contains(name, "category") && !strings.Contains(name, "sub")
	}},
	{RoleSubCategory, containsAny("sub-category", "subcategory")},
	{RoleProduct, containsAny("product")},
	{RoleDate, containsAny("date")},
	{RoleCountry, containsAny("country")},
}

// ClassifyRoles walks the columns in table order and assigns each role to the
// first column whose name matches it. Claimed roles are never overwritten.
func ClassifyRoles(t *table.Table) RoleMapping {
	mapping := make(RoleMapping)
	for _, col := range t.Columns {
		name := strings.ToLower(strings.TrimSpace(col))
		for _, rule := range roleRules {
			if _, claimed := mapping[rule.role]; claimed {
				continue
			}
			if rule.match(name) {
				mapping[rule.role] = col
			}
		}
	}
	return mapping
}
