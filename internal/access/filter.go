package access

import "strings"

// Tag marks a document or section as visible to all staff or to billing only.
type Tag string

const (
	TagAll     Tag = "all"
	TagBilling Tag = "billing"
)

// ParseTag reads a frontmatter access value. Missing values mean "all";
// unrecognized values fail closed to "billing".
func ParseTag(s string) Tag {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return TagAll
	default:
		return TagBilling
	}
}

// Tagged is anything carrying an access tag.
type Tagged interface {
	AccessTag() Tag
}

// IsVisible is the single visibility rule: all-tagged items are visible to
// members and billing, billing-tagged items only to billing. RoleNone sees nothing.
func IsVisible(item Tagged, role Role) bool {
	if role != RoleMember && role != RoleBilling {
		return false
	}
	return item.AccessTag() == TagAll || role == RoleBilling
}

// FilterVisible returns the items of in visible to role, preserving order.
func FilterVisible[T Tagged](in []T, role Role) []T {
	out := make([]T, 0, len(in))
	for _, it := range in {
		if IsVisible(it, role) {
			out = append(out, it)
		}
	}
	return out
}
