package auth

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadPermissions_Success tests successfully loading permissions from YAML
func TestLoadPermissions_Success(t *testing.T) {
	tmpDir := t.TempDir()
	permFile := filepath.Join(tmpDir, "permissions.yml")

	content := `roles:
  ORGANIZER:
    - patient:view
    - patient:create
    - patient:update
    - patient:delete
  DOCTOR:
    - patient:view
`
	if err := os.WriteFile(permFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write test permissions file: %v", err)
	}

	perms, err := LoadPermissions(permFile)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(perms["ORGANIZER"]) != 4 {
		t.Errorf("Expected 4 permissions for ORGANIZER, got %d", len(perms["ORGANIZER"]))
	}
	if len(perms["DOCTOR"]) != 1 || perms["DOCTOR"][0] != PermissionPatientView {
		t.Errorf("Expected DOCTOR to hold only patient:view, got %v", perms["DOCTOR"])
	}
}

// TestLoadPermissions_FileNotFound tests error when file doesn't exist
func TestLoadPermissions_FileNotFound(t *testing.T) {
	perms, err := LoadPermissions("/nonexistent/permissions.yml")
	if err == nil {
		t.Error("Expected error for nonexistent file, got nil")
	}
	if perms != nil {
		t.Error("Expected nil permissions")
	}
}

// TestLoadPermissions_InvalidYAML tests error on malformed YAML
func TestLoadPermissions_InvalidYAML(t *testing.T) {
	permFile := filepath.Join(t.TempDir(), "permissions.yml")
	if err := os.WriteFile(permFile, []byte("roles: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write test permissions file: %v", err)
	}

	if _, err := LoadPermissions(permFile); err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}

// TestLoadPermissions_RepositoryFile loads the permissions file shipped with the service
func TestLoadPermissions_RepositoryFile(t *testing.T) {
	perms, err := LoadPermissions(filepath.Join("..", "..", "permissions.yml"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	for _, p := range []string{PermissionPatientView, PermissionPatientCreate, PermissionPatientUpdate, PermissionPatientDelete} {
		if !HasPermission(&Principal{Roles: []string{"ORGANIZER"}}, p, perms) {
			t.Errorf("Expected ORGANIZER to hold %s", p)
		}
	}
}

func TestHasPermission(t *testing.T) {
	perms := Permissions{
		"ORGANIZER": {PermissionPatientView, PermissionPatientCreate, PermissionPatientUpdate, PermissionPatientDelete},
		"DOCTOR":    {PermissionPatientView},
	}

	tests := []struct {
		name       string
		roles      []string
		permission string
		want       bool
	}{
		{"organizer can delete", []string{"ORGANIZER"}, PermissionPatientDelete, true},
		{"doctor can view", []string{"DOCTOR"}, PermissionPatientView, true},
		{"doctor cannot create", []string{"DOCTOR"}, PermissionPatientCreate, false},
		{"lower-case role matches", []string{"doctor"}, PermissionPatientView, true},
		{"any role grants", []string{"offline_access", "DOCTOR"}, PermissionPatientView, true},
		{"unknown role", []string{"GUEST"}, PermissionPatientView, false},
		{"no roles", nil, PermissionPatientView, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HasPermission(&Principal{UserID: "u", Roles: tt.roles}, tt.permission, perms)
			if got != tt.want {
				t.Errorf("HasPermission(%v, %s) = %v, want %v", tt.roles, tt.permission, got, tt.want)
			}
		})
	}
}
