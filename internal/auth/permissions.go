package auth

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Permission names checked by the patient routes.
const (
	PermissionPatientView   = "patient:view"
	PermissionPatientCreate = "patient:create"
	PermissionPatientUpdate = "patient:update"
	PermissionPatientDelete = "patient:delete"
)

// Permissions maps role -> []permission
type Permissions map[string][]string

type permissionsFile struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadPermissions loads a permissions.yml file and returns a role->permissions map.
func LoadPermissions(path string) (Permissions, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read permissions file: %w", err)
	}
	var pf permissionsFile
	if err := yaml.Unmarshal(b, &pf); err != nil {
		return nil, fmt.Errorf("parse permissions file: %w", err)
	}
	return Permissions(pf.Roles), nil
}

// HasPermission reports whether any of the principal's roles grants permission.
// Roles are matched exactly first, then upper-cased, so realm roles such as
// "doctor" match a DOCTOR entry.
func HasPermission(pr *Principal, permission string, perms Permissions) bool {
	for _, role := range pr.Roles {
		pList, ok := perms[role]
		if !ok {
			pList, ok = perms[strings.ToUpper(role)]
		}
		if !ok {
			continue
		}
		for _, p := range pList {
			if p == permission {
				return true
			}
		}
	}
	return false
}
