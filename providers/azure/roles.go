package azure

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// DefaultRole is used for role assignment entries that do not name a role.
const DefaultRole = "AcrPull"

// builtinRoles maps built-in role names to their role definition GUIDs, which
// are identical in every tenant.
var builtinRoles = map[string]string{
	"acrpull":                      "7f951dda-4ed3-4680-a7ca-43fe172d538d",
	"acrpush":                      "8311e382-0749-4cb8-b61a-304f252e45ec",
	"reader":                       "acdd72a7-3385-48ef-bd42-f606fba81ae7",
	"contributor":                  "b24988ac-6180-42a0-ab88-20f7382dd24c",
	"owner":                        "8e3af657-a8ff-443c-a75c-2fe8c4bcb635",
	"monitoring metrics publisher": "3913510d-42f4-4e42-8a64-420c390055eb",
}

// RoleDefinitionID resolves a role name, GUID or role definition resource ID
// to the role definition GUID.
func RoleDefinitionID(role string) (string, error) {
	role = strings.TrimSpace(role)
	if role == "" {
		role = DefaultRole
	}
	if id, ok := builtinRoles[strings.ToLower(role)]; ok {
		return id, nil
	}

	candidate := role
	if strings.Contains(role, "/") {
		candidate = path.Base(role)
	}
	id, err := uuid.Parse(candidate)
	if err != nil {
		return "", fmt.Errorf("unknown role %q: use a built-in role name or a role definition GUID", role)
	}
	return id.String(), nil
}

func sameRoleDefinition(roleDefinitionID, guid string) bool {
	return strings.EqualFold(path.Base(roleDefinitionID), guid)
}
