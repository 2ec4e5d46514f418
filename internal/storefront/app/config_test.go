package app

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("STOREFRONT_API_URL", "http://api.local")

		cfg := LoadConfig()
		require.Equal(t, "http://api.local", cfg.APIURL)
		require.Equal(t, "file", cfg.StoreDriver)
		require.Equal(t, filepath.Join(".storefront", "master.key"), cfg.MasterKeyPath)
		require.Equal(t, "/oauth-callback", cfg.OAuthCallbackPath)
		require.Equal(t, "/", cfg.InitialPath)
		require.Equal(t, 10*time.Second, cfg.APITimeout)
		require.Zero(t, cfg.APIRateLimit)
		require.NoError(t, cfg.Validate())
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("STOREFRONT_API_URL", "http://api.local")
		t.Setenv("STORE_DRIVER", "sqlite")
		t.Setenv("STORE_DIR", "/var/lib/storefront")
		t.Setenv("API_RATE_LIMIT", "2.5")
		t.Setenv("API_TIMEOUT", "3")
		t.Setenv("SHUTDOWN_GRACE_PERIOD", "1m")
		t.Setenv("INITIAL_PATH", "/orders")

		cfg := LoadConfig()
		require.Equal(t, "sqlite", cfg.StoreDriver)
		require.Equal(t, filepath.Join("/var/lib/storefront", "master.key"), cfg.MasterKeyPath)
		require.Equal(t, 2.5, cfg.APIRateLimit)
		require.Equal(t, 3*time.Second, cfg.APITimeout)
		require.Equal(t, time.Minute, cfg.ShutdownGracePeriod)
		require.Equal(t, "/orders", cfg.InitialPath)
	})

	t.Run("bad values fall back", func(t *testing.T) {
		t.Setenv("API_RATE_LIMIT", "fast")
		t.Setenv("API_TIMEOUT", "soon")

		cfg := LoadConfig()
		require.Zero(t, cfg.APIRateLimit)
		require.Equal(t, 10*time.Second, cfg.APITimeout)
	})
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"ok", Config{APIURL: "http://x", StoreDriver: "memory"}, ""},
		{"missing url", Config{StoreDriver: "memory"}, "STOREFRONT_API_URL"},
		{"unknown driver", Config{APIURL: "http://x", StoreDriver: "etcd"}, `unknown STORE_DRIVER "etcd"`},
		{"file without dir", Config{APIURL: "http://x", StoreDriver: "file"}, "STORE_DIR"},
		{"negative rate", Config{APIURL: "http://x", StoreDriver: "redis", APIRateLimit: -1}, "API_RATE_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}
