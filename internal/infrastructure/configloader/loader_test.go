package configloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
token:
  address: "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"
escrow:
  address: "0x0000000000000000000000000000000000000001"
`

func TestParseAppliesDefaults(t *testing.T) {
	t.Setenv(PrivateKeyEnv, "")

	cfg, err := Parse([]byte(minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Empty(t, cfg.Server.AllowedOrigins)
	assert.True(t, cfg.Approval.WaitForReceipt)
	assert.Equal(t, "sepolia", cfg.Network.Identifier)
	assert.Equal(t, "0.1", cfg.Approval.DefaultPromptAmount)
	assert.Equal(t, 10, cfg.Performance.RPCCallTimeoutSeconds)
	assert.Equal(t, 15, cfg.Cache.StateTTLSeconds)
	assert.Equal(t, 60, cfg.Cache.MetadataTTLMinutes)
	assert.Equal(t, 15, cfg.Sessions.TTLMinutes)
	assert.Equal(t, "https://api.dexscreener.com", cfg.DEXScreener.BaseURL)
	assert.True(t, cfg.ReadOnly())
}

func TestParsePrivateKeyFromEnv(t *testing.T) {
	t.Setenv(PrivateKeyEnv, "0xabc")

	cfg, err := Parse([]byte(minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "0xabc", cfg.Wallet.PrivateKey)
	assert.False(t, cfg.ReadOnly())
}

func TestParseRequiresAddresses(t *testing.T) {
	_, err := Parse([]byte("network:\n  identifier: ethereum\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token.address is required")
	assert.Contains(t, err.Error(), "escrow.address is required")
}

func TestParseRejectsMalformedYAML(t *testing.T) {
	_, err := Parse([]byte("server: [unclosed"))
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv(PrivateKeyEnv, "")
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(minimalConfig+"rpcClient:\n  rateLimit: 5\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5.0, cfg.RPCClient.RateLimit)
	assert.Equal(t, 1, cfg.RPCClient.BurstLimit)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestParseWaitForReceiptCanBeDisabled(t *testing.T) {
	t.Setenv(PrivateKeyEnv, "")

	cfg, err := Parse([]byte(minimalConfig + "approval:\n  waitForReceipt: false\n"))
	require.NoError(t, err)
	assert.False(t, cfg.Approval.WaitForReceipt)
	assert.Equal(t, 120, cfg.Approval.ReceiptTimeoutSeconds)
}

func TestParseSigningServerExposure(t *testing.T) {
	testCases := []struct {
		description string
		server      string
		apiToken    string
		expectErr   bool
	}{
		{description: "loopback default", server: ""},
		{description: "localhost", server: "server:\n  host: localhost\n"},
		{description: "ipv6 loopback", server: "server:\n  host: \"::1\"\n"},
		{description: "all interfaces without token", server: "server:\n  host: 0.0.0.0\n", expectErr: true},
		{description: "all interfaces with token in file", server: "server:\n  host: 0.0.0.0\n  apiToken: s3cret\n"},
		{description: "all interfaces with token from env", server: "server:\n  host: 0.0.0.0\n", apiToken: "s3cret"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			t.Setenv(PrivateKeyEnv, "0xabc")
			t.Setenv(APITokenEnv, testCase.apiToken)

			_, err := Parse([]byte(minimalConfig + testCase.server))
			if testCase.expectErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "server.apiToken")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParseReadOnlyServerMayListenEverywhere(t *testing.T) {
	t.Setenv(PrivateKeyEnv, "")
	t.Setenv(APITokenEnv, "")

	cfg, err := Parse([]byte(minimalConfig + "server:\n  host: 0.0.0.0\n  allowedOrigins: [\"http://localhost:3000\"]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.AllowedOrigins)
}
