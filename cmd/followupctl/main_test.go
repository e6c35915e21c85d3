package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/followup-api/internal/app"
	"github.com/jwalitptl/followup-api/internal/config"
	"github.com/jwalitptl/followup-api/internal/model"
	"github.com/jwalitptl/followup-api/internal/repository/memory"
	"github.com/jwalitptl/followup-api/pkg/logger"
)

func memoryEnv() *env {
	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: "memory"},
		JWT:      config.JWTConfig{Secret: "test", Issuer: "test", ExpiryHours: 1},
	}
	repos := app.NewMemoryRepositories(memory.NewStore())
	return &env{cfg: cfg, repos: repos, svc: app.NewServices(cfg, repos, nil, logger.Nop())}
}

func run(e *env, args ...string) (string, error) {
	root := newRootCommand(func(context.Context, string) (*env, error) { return e, nil })
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestImportCommand(t *testing.T) {
	e := memoryEnv()
	ctx := context.Background()

	out, err := run(e, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Migrations executed successfully.")

	out, err = run(e, "clinic", "create", "--name", "Sunrise Clinic")
	require.NoError(t, err)
	assert.Contains(t, out, "Sunrise Clinic")

	clinics, err := e.repos.Clinics.List(ctx, model.ClinicFilter{})
	require.NoError(t, err)
	require.Len(t, clinics, 1)

	_, err = run(e, "user", "create", "--username", "nurse", "--password", "password1", "--clinic-code", clinics[0].ClinicCode)
	require.NoError(t, err)

	csvPath := filepath.Join(t.TempDir(), "followups.csv")
	csv := "patient_name,phone,language,due_date,notes\n" +
		"Alice,98765 43210,en,2025-01-10,first visit\n" +
		"Bob,,en,2025-01-11,\n" +
		"Carol,12345,hi,11/01/2025,\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(csv), 0o600))

	out, err = run(e, "import", "--csv", csvPath, "--username", "nurse")
	require.NoError(t, err)
	assert.Contains(t, out, "Row 2: Skipped - missing mandatory fields")
	assert.Contains(t, out, "Row 3: Skipped")
	assert.Contains(t, out, "Created: 1")
	assert.Contains(t, out, "Skipped: 2")

	items, err := e.repos.FollowUps.ListByClinic(ctx, clinics[0].ID, model.FollowUpFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Alice", items[0].PatientName)
}

func TestImportCommandUnknownUser(t *testing.T) {
	e := memoryEnv()

	csvPath := filepath.Join(t.TempDir(), "followups.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("patient_name,phone,language,due_date,notes\n"), 0o600))

	_, err := run(e, "import", "--csv", csvPath, "--username", "ghost")
	assert.Error(t, err)
}

func TestImportCommandRequiresFlags(t *testing.T) {
	_, err := run(memoryEnv(), "import", "--username", "nurse")
	assert.Error(t, err)
}

func TestUserCreateUnknownClinicCode(t *testing.T) {
	_, err := run(memoryEnv(), "user", "create", "--username", "nurse", "--password", "password1", "--clinic-code", "deadbeef")
	assert.EqualError(t, err, `no clinic with code "deadbeef"`)
}
