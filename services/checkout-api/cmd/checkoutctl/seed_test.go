package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orders.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadSeedFile(t *testing.T) {
	path := writeSeed(t, `
orders:
  - reference: ORD-1001
    customer: {name: Ana Silva, email: ana@example.com, phone: "+5511999990000"}
    items:
      - {name: Widget, quantity: 2, unit_value: "19.99"}
      - {name: Gift wrap, quantity: 1, unit_value: "2.5"}
  - reference: ORD-1002
    items:
      - {name: Gadget, quantity: 1, unit_value: "10"}
`)

	orders, err := loadSeedFile(path)

	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "ORD-1001", orders[0].Reference)
	assert.Equal(t, "Ana Silva", orders[0].Customer.Name)
	require.Len(t, orders[0].Items, 2)
	assert.Equal(t, 2, orders[0].Items[1].Position)
	assert.Equal(t, "2.50", orders[0].Items[1].UnitValue.StringFixed(2))
	assert.Equal(t, "10.00", orders[1].Items[0].UnitValue.StringFixed(2))
}

func TestLoadSeedFile_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":        `orders: []`,
		"no reference": "orders:\n  - items: [{name: A, quantity: 1, unit_value: \"1\"}]\n",
		"bad value":    "orders:\n  - reference: ORD-1\n    items: [{name: A, quantity: 1, unit_value: \"one\"}]\n",
		"invalid yaml": "orders: [",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := loadSeedFile(writeSeed(t, content))
			assert.Error(t, err)
		})
	}

	_, err := loadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRootCmd_RequiresDSN(t *testing.T) {
	t.Setenv("APP_PRIMARY_DB_ADDR", "")
	cmd := newRootCmd(zap.NewNop())
	cmd.SetArgs([]string{"audit"})
	cmd.SetOut(&bytes.Buffer{})

	err := cmd.Execute()

	assert.ErrorContains(t, err, "database DSN is required")
}

func TestAuditCmd_RejectsLimit(t *testing.T) {
	cmd := newRootCmd(zap.NewNop())
	cmd.SetArgs([]string{"audit", "--limit", "500", "--dsn", "unused"})

	err := cmd.Execute()

	assert.ErrorContains(t, err, "--limit")
}
