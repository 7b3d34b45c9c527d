package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"kaziflow/internal/config"
	"kaziflow/internal/domain"
)

func TestStoredLoginRoundTrip(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")

	// login stores the identity
	for key, value := range map[string]string{
		"KAZIFLOW_EMAIL": "amina@kazidesign.com",
		"KAZIFLOW_NAME":  "Amina",
		"KAZIFLOW_ROLE":  "DESIGNER",
	} {
		if err := setEnvValue(envPath, key, value); err != nil {
			t.Fatalf("store %s: %v", key, err)
		}
	}

	// a later invocation sees it
	if err := loadWorkspaceEnv(dir); err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := viper.GetString("email"); got != "amina@kazidesign.com" {
		t.Fatalf("email: %q", got)
	}
	if got := viper.GetString("name"); got != "Amina" {
		t.Fatalf("name: %q", got)
	}
	actor, err := buildActor(config.Default(), viper.GetString("email"), viper.GetString("name"), domain.UserRole(viper.GetString("role")))
	if err != nil {
		t.Fatalf("actor from stored login: %v", err)
	}
	if actor.Role != domain.RoleDesigner || actor.Name != "Amina" {
		t.Fatalf("actor: %+v", actor)
	}

	// logout clears the stored identity
	for _, key := range []string{"KAZIFLOW_EMAIL", "KAZIFLOW_NAME", "KAZIFLOW_ROLE"} {
		if err := setEnvValue(envPath, key, ""); err != nil {
			t.Fatalf("clear %s: %v", key, err)
		}
	}
	viper.Reset()
	if err := loadWorkspaceEnv(dir); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := viper.GetString("email"); got != "" {
		t.Fatalf("email should be cleared, got %q", got)
	}
	if _, err := buildActor(config.Default(), viper.GetString("email"), viper.GetString("name"), domain.RoleDesigner); err == nil {
		t.Fatalf("actor should not resolve after logout")
	}
}

func TestLoadWorkspaceEnvMissingFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	if err := loadWorkspaceEnv(t.TempDir()); err != nil {
		t.Fatalf("missing .env should be fine: %v", err)
	}
	if got := viper.GetString("email"); got != "" {
		t.Fatalf("email: %q", got)
	}
}
