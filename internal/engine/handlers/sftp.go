package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/jobflowhq/jobflow/internal/domain"
	"github.com/jobflowhq/jobflow/internal/engine"
)

// UploadSftpConfig configures the UPLOAD_SFTP task type. When FilePath is
// empty, the upstream archive artifact (or the file artifact) is uploaded.
// KnownHostsPath enables host key verification against an OpenSSH
// known_hosts file; when empty, host keys are not checked.
type UploadSftpConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Username       string `json:"username"`
	Password       string `json:"password"`
	RemotePath     string `json:"remote_path"`
	FilePath       string `json:"file_path"`
	KnownHostsPath string `json:"known_hosts_path"`
}

// UploadSftpHandler transmits a local file to a remote SFTP endpoint.
type UploadSftpHandler struct {
	logger *slog.Logger
}

// NewUploadSftpHandler creates the UPLOAD_SFTP handler.
func NewUploadSftpHandler(logger *slog.Logger) *UploadSftpHandler {
	return &UploadSftpHandler{logger: logger}
}

// Validate parses the config and checks the connection fields.
func (h *UploadSftpHandler) Validate(config string) error {
	_, err := parseSftpConfig(config)
	return err
}

// Execute uploads the file over SFTP. It fails when the local file is
// absent or the transfer is rejected.
func (h *UploadSftpHandler) Execute(ctx context.Context, config string, artifacts *engine.Artifacts) error {
	cfg, err := parseSftpConfig(config)
	if err != nil {
		return err
	}

	path, err := resolveLocalFile(cfg.FilePath, artifacts)
	if err != nil {
		return err
	}
	local, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("local file %s: %w", path, err)
	}
	defer local.Close()

	hostKeys, err := hostKeyCallback(cfg.KnownHostsPath)
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	sshConfig := &ssh.ClientConfig{
		User: cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(cfg.Password),
		},
		HostKeyCallback: hostKeys,
		Timeout:         30 * time.Second,
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
	if err != nil {
		conn.Close()
		return fmt.Errorf("ssh handshake with %s failed: %w", addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return fmt.Errorf("failed to open sftp session: %w", err)
	}
	defer sftpClient.Close()

	remote, err := sftpClient.Create(cfg.RemotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s: %w", cfg.RemotePath, err)
	}
	defer remote.Close()

	written, err := io.Copy(remote, local)
	if err != nil {
		return fmt.Errorf("transfer to %s rejected: %w", cfg.RemotePath, err)
	}

	h.logger.Debug("File uploaded over SFTP",
		slog.String("host", addr),
		slog.String("remote_path", cfg.RemotePath),
		slog.Int64("bytes", written),
	)

	return nil
}

// hostKeyCallback builds the host key check for the connection. With no
// known_hosts file configured, verification is skipped.
func hostKeyCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if knownHostsPath == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	callback, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts %s: %w", knownHostsPath, err)
	}
	return callback, nil
}

func parseSftpConfig(config string) (*UploadSftpConfig, error) {
	var cfg UploadSftpConfig
	if err := json.Unmarshal([]byte(config), &cfg); err != nil {
		return nil, domain.NewValidationError(TypeUploadSftp, err.Error())
	}
	if cfg.Host == "" {
		return nil, domain.NewValidationError(TypeUploadSftp, "host is required")
	}
	if cfg.Username == "" {
		return nil, domain.NewValidationError(TypeUploadSftp, "username is required")
	}
	if cfg.RemotePath == "" {
		return nil, domain.NewValidationError(TypeUploadSftp, "remote_path is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	return &cfg, nil
}
