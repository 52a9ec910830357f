package utils

import "slices"

// Permission levels, lowest first.
const (
	GuestPermission     = "guest"
	ModPermission       = "mod"
	AdminPermission     = "admin"
	DeveloperPermission = "developer"
)

var permissionRank = map[string]int{
	GuestPermission:     0,
	ModPermission:       1,
	AdminPermission:     2,
	DeveloperPermission: 3,
}

// CheckPermission returns the highest permission level a member holds.
func CheckPermission(memberRoleIDs []string, userID string, modRoleIDs, adminRoleIDs, developerUserIDs []string) string {
	if slices.Contains(developerUserIDs, userID) {
		return DeveloperPermission
	}

	// Admin check
	for _, roleID := range memberRoleIDs {
		if slices.Contains(adminRoleIDs, roleID) {
			return AdminPermission
		}
	}

	// Mod check
	for _, roleID := range memberRoleIDs {
		if slices.Contains(modRoleIDs, roleID) {
			return ModPermission
		}
	}

	return GuestPermission
}

// HasPermission reports whether level is at least required.
func HasPermission(level, required string) bool {
	return permissionRank[level] >= permissionRank[required]
}
