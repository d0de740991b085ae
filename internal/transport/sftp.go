package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/logging"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Dialer opens sessions.
type Dialer interface {
	Dial(ctx context.Context, ep Endpoint) (Session, error)
}

// SFTPDialer dials SSH and starts the sftp subsystem.
type SFTPDialer struct {
	Timeout time.Duration
	logger  logging.Logger
}

func NewSFTPDialer(timeout time.Duration, logger logging.Logger) *SFTPDialer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &SFTPDialer{Timeout: timeout, logger: logger.With("module", "sftp")}
}

func (d *SFTPDialer) clientConfig(ctx context.Context, ep Endpoint) (*ssh.ClientConfig, error) {
	var auth []ssh.AuthMethod
	if len(ep.PrivateKey) > 0 {
		signer, err := ssh.ParsePrivateKey(ep.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		auth = append(auth, ssh.PublicKeys(signer))
	}
	if ep.Password != "" {
		auth = append(auth, ssh.Password(ep.Password))
	}
	if ep.Password != "" || ep.OTP != "" || len(ep.Challenges) > 0 {
		auth = append(auth, ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
			answers := make([]string, len(questions))
			for i, q := range questions {
				a, err := ep.Answer(q)
				if err != nil {
					return nil, err
				}
				answers[i] = a
			}
			return answers, nil
		}))
	}

	hostKey := ssh.InsecureIgnoreHostKey()
	if ep.HostKey != "" {
		pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(ep.HostKey))
		if err != nil {
			return nil, fmt.Errorf("parse host key: %w", err)
		}
		hostKey = ssh.FixedHostKey(pub)
	} else {
		d.logger.Warn(ctx, "host key not pinned", "endpoint", ep.String())
	}

	return &ssh.ClientConfig{
		User:            ep.Username,
		Auth:            auth,
		HostKeyCallback: hostKey,
		Timeout:         d.Timeout,
	}, nil
}

func (d *SFTPDialer) Dial(ctx context.Context, ep Endpoint) (Session, error) {
	cfg, err := d.clientConfig(ctx, ep)
	if err != nil {
		return nil, err
	}

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	nd := net.Dialer{}
	conn, err := nd.DialContext(ctx, "tcp", ep.Addr())
	if err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, ep.Addr(), cfg)
	if err != nil {
		conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})

	sshClient := ssh.NewClient(c, chans, reqs)
	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		sshClient.Close()
		return nil, fmt.Errorf("start sftp: %w", err)
	}

	d.logger.Debug(ctx, "session opened", "endpoint", ep.String())
	return &sftpSession{ssh: sshClient, sftp: sftpClient}, nil
}

type sftpSession struct {
	ssh  *ssh.Client
	sftp *sftp.Client
}

func (s *sftpSession) Put(remotePath string, content []byte) error {
	if dir := path.Dir(remotePath); dir != "." && dir != "/" {
		if err := s.sftp.MkdirAll(dir); err != nil {
			return fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}
	f, err := s.sftp.OpenFile(remotePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (s *sftpSession) List(dir string) ([]Entry, error) {
	infos, err := s.sftp.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(infos))
	for _, fi := range infos {
		out = append(out, Entry{Name: fi.Name(), IsDir: fi.IsDir(), Size: fi.Size(), ModTime: fi.ModTime()})
	}
	return out, nil
}

func (s *sftpSession) Get(remotePath string) ([]byte, error) {
	f, err := s.sftp.Open(remotePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *sftpSession) Close() error {
	return errors.Join(s.sftp.Close(), s.ssh.Close())
}
