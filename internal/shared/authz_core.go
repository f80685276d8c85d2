package shared

// Built-in permissions gating the management API.
const (
	PermUsersRead  = "users:read"
	PermUsersWrite = "users:write"

	PermRolesRead  = "roles:read"
	PermRolesWrite = "roles:write"

	PermPermissionsRead  = "permissions:read"
	PermPermissionsWrite = "permissions:write"
)

// PermissionSpec names a built-in permission and what it allows.
type PermissionSpec struct {
	Name        string
	Description string
}

// CoreScopes lists the built-in permissions seeded by bootstrap.
func CoreScopes() []PermissionSpec {
	return []PermissionSpec{
		{PermUsersRead, "List and view user accounts"},
		{PermUsersWrite, "Create, update and delete user accounts"},
		{PermRolesRead, "List and view roles and their grants"},
		{PermRolesWrite, "Manage roles and role grants"},
		{PermPermissionsRead, "List and view permissions and permission groups"},
		{PermPermissionsWrite, "Manage permissions, permission groups and group mappings"},
	}
}
