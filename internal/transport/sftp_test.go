package transport

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/dmitrijs2005/wotcsync/internal/common"
	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// startSFTPServer runs an in-memory sftp server on loopback. All sessions
// share one file tree.
func startSFTPServer(t *testing.T) Endpoint {
	t.Helper()
	return startSFTPServerWith(t, nil)
}

// startSFTPServerWith lets a test replace the server's auth callbacks.
func startSFTPServerWith(t *testing.T, configure func(*ssh.ServerConfig)) Endpoint {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == "wotc" && string(pass) == "s3cret" {
				return nil, nil
			}
			return nil, errors.New("denied")
		},
	}
	if configure != nil {
		configure(cfg)
	}
	cfg.AddHostKey(signer)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	handlers := sftp.InMemHandler()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go serveSSH(conn, cfg, handlers)
		}
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	return Endpoint{
		Host:     host,
		Port:     port,
		Username: "wotc",
		Password: "s3cret",
		HostKey:  string(ssh.MarshalAuthorizedKey(signer.PublicKey())),
	}
}

func serveSSH(conn net.Conn, cfg *ssh.ServerConfig, handlers sftp.Handlers) {
	_, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		conn.Close()
		return
	}
	go ssh.DiscardRequests(reqs)

	for nc := range chans {
		if nc.ChannelType() != "session" {
			nc.Reject(ssh.UnknownChannelType, "unsupported")
			continue
		}
		ch, requests, err := nc.Accept()
		if err != nil {
			continue
		}
		go func(in <-chan *ssh.Request) {
			for req := range in {
				ok := req.Type == "subsystem" && len(req.Payload) > 4 && string(req.Payload[4:]) == "sftp"
				req.Reply(ok, nil)
			}
		}(requests)

		srv := sftp.NewRequestServer(ch, handlers)
		go func() {
			_ = srv.Serve()
			srv.Close()
		}()
	}
}

func TestSFTPDialer_RoundTrip(t *testing.T) {
	ep := startSFTPServer(t)
	d := NewSFTPDialer(5*time.Second, nil)
	ctx := context.Background()

	s, err := d.Dial(ctx, ep)
	require.NoError(t, err)
	require.NoError(t, s.Put("/wotc/tx/inbound/a.txt", []byte("hello\n")))
	require.NoError(t, s.Put("/wotc/tx/outbound/determination_1.txt", []byte("certified")))
	require.NoError(t, s.Close())

	s, err = d.Dial(ctx, ep)
	require.NoError(t, err)
	defer s.Close()

	entries, err := s.List("/wotc/tx/inbound")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Name)
	assert.Equal(t, int64(6), entries[0].Size)

	data, err := s.Get("/wotc/tx/inbound/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))
}

func TestSFTPDialer_ClientDownload(t *testing.T) {
	ep := startSFTPServer(t)
	d := NewSFTPDialer(5*time.Second, nil)

	s, err := d.Dial(context.Background(), ep)
	require.NoError(t, err)
	require.NoError(t, s.Put("/wotc/tx/outbound/determination_1.txt", []byte("certified")))
	require.NoError(t, s.Close())

	c := newTestClient(t, d)
	c.endpoint = ep
	files, err := c.DownloadDeterminations(context.Background(), "TX")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "certified", string(files[0].Content))
}

func TestSFTPDialer_AuthFailure(t *testing.T) {
	ep := startSFTPServer(t)
	ep.Password = "wrong"

	c := newTestClient(t, NewSFTPDialer(5*time.Second, nil))
	c.endpoint = ep
	_, err := c.Upload(context.Background(), "TX", "x")
	assert.True(t, errors.Is(err, common.ErrConnection))
}

func TestSFTPDialer_HostKeyMismatch(t *testing.T) {
	ep := startSFTPServer(t)
	other := startSFTPServer(t)
	ep.HostKey = other.HostKey

	_, err := NewSFTPDialer(5*time.Second, nil).Dial(context.Background(), ep)
	assert.Error(t, err)
}

func TestSFTPDialer_KeyboardInteractiveMFA(t *testing.T) {
	ep := startSFTPServerWith(t, func(cfg *ssh.ServerConfig) {
		cfg.PasswordCallback = nil
		cfg.KeyboardInteractiveCallback = func(c ssh.ConnMetadata, ask ssh.KeyboardInteractiveChallenge) (*ssh.Permissions, error) {
			answers, err := ask("wotc", "", []string{"Password: ", "Verification code: ", "First pet?"}, []bool{false, true, true})
			if err != nil {
				return nil, err
			}
			if len(answers) == 3 && answers[0] == "s3cret" && answers[1] == "123456" && answers[2] == "Rex" {
				return nil, nil
			}
			return nil, errors.New("denied")
		}
	})
	ep.OTP = "123456"
	ep.Challenges = map[string]string{"first pet?": "Rex"}

	s, err := NewSFTPDialer(5*time.Second, nil).Dial(context.Background(), ep)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestEndpoint_Answer(t *testing.T) {
	ep := Endpoint{Password: "pw", OTP: "654321", Challenges: map[string]string{"Mother's maiden name?": "Diaz"}}

	tests := []struct {
		prompt  string
		want    string
		wantErr bool
	}{
		{prompt: "Password:", want: "pw"},
		{prompt: "Enter your OTP", want: "654321"},
		{prompt: "  mother's maiden name?  ", want: "Diaz"},
		{prompt: "Favorite color?", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ep.Answer(tt.prompt)
		if tt.wantErr {
			assert.Error(t, err, tt.prompt)
			continue
		}
		require.NoError(t, err, tt.prompt)
		assert.Equal(t, tt.want, got, tt.prompt)
	}

	_, err := Endpoint{}.Answer("Verification code")
	assert.Error(t, err)
}
