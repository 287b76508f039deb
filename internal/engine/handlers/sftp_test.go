package handlers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadSftpHandler_Validate(t *testing.T) {
	h := NewUploadSftpHandler(testLogger())

	tests := []struct {
		name    string
		config  string
		wantErr bool
	}{
		{
			name:   "valid",
			config: `{"host":"sftp.example.com","username":"etl","password":"pw","remote_path":"/in/data.zip"}`,
		},
		{
			name:    "missing host",
			config:  `{"username":"etl","remote_path":"/in/data.zip"}`,
			wantErr: true,
		},
		{
			name:    "missing username",
			config:  `{"host":"sftp.example.com","remote_path":"/in/data.zip"}`,
			wantErr: true,
		},
		{
			name:    "missing remote path",
			config:  `{"host":"sftp.example.com","username":"etl"}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			config:  `{`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Validate(tt.config)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseSftpConfig_DefaultPort(t *testing.T) {
	cfg, err := parseSftpConfig(`{"host":"sftp.example.com","username":"etl","remote_path":"/in/x"}`)
	assert.NoError(t, err)
	assert.Equal(t, 22, cfg.Port)
}

func TestHostKeyCallback(t *testing.T) {
	t.Run("no known_hosts skips verification", func(t *testing.T) {
		callback, err := hostKeyCallback("")
		require.NoError(t, err)
		assert.NotNil(t, callback)
	})

	t.Run("loads known_hosts file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "known_hosts")
		line := "github.com ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIOMqqnkVzrm0SdG6UOoqKLsabgH5C9okWi0dh2l9GKJl\n"
		require.NoError(t, os.WriteFile(path, []byte(line), 0o600))

		callback, err := hostKeyCallback(path)
		require.NoError(t, err)
		assert.NotNil(t, callback)
	})

	t.Run("missing known_hosts file fails", func(t *testing.T) {
		_, err := hostKeyCallback(filepath.Join(t.TempDir(), "absent"))
		assert.Error(t, err)
	})
}
