package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("MONGODB_URI", "")
	t.Setenv("WHATSAPP_TOKEN", "")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "")
	t.Setenv("GOOGLE_SHEETS_CREDENTIALS_PATH", "")
	t.Setenv("GOOGLE_SHEET_DATABASE_ID", "")
	t.Setenv("LEDGER_MAX_ATTEMPTS", "")
	t.Setenv("TIMEZONE", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load("testdata/missing.env")
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, 5, cfg.Ledger.MaxAttempts)
	assert.Equal(t, "Asia/Kolkata", cfg.Reporting.Timezone)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.WhatsApp.Enabled())
	assert.False(t, cfg.Sheets.Enabled())
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "MongoDB")
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/?replicaSet=rs0")
	t.Setenv("LEDGER_MAX_ATTEMPTS", "8")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("WHATSAPP_TOKEN", "token")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "123")

	cfg, err := Load("testdata/missing.env")
	require.NoError(t, err)

	assert.Equal(t, StoreMongoDB, cfg.Store.Driver)
	assert.Equal(t, 8, cfg.Ledger.MaxAttempts)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.WhatsApp.Enabled())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"mongodb without uri", map[string]string{"STORE_DRIVER": "mongodb"}},
		{"unknown driver", map[string]string{"STORE_DRIVER": "postgres"}},
		{"attempts not a number", map[string]string{"LEDGER_MAX_ATTEMPTS": "many"}},
		{"attempts zero", map[string]string{"LEDGER_MAX_ATTEMPTS": "0"}},
		{"token without phone id", map[string]string{"WHATSAPP_TOKEN": "token"}},
		{"half sheets config", map[string]string{"GOOGLE_SHEET_DATABASE_ID": "sheet"}},
		{"bad timezone", map[string]string{"TIMEZONE": "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("testdata/missing.env")
			assert.Error(t, err)
		})
	}
}
