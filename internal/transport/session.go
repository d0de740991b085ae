// Package transport moves submission files to and from state agency SFTP
// hosts. Every operation brackets its work in one session that is closed on
// every exit path.
package transport

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"
)

// Endpoint identifies one remote host and the credentials used to log in.
// PrivateKey is a PEM block; HostKey is an authorized_keys style line. When
// HostKey is empty the host key is not verified.
//
// OTP and Challenges answer keyboard-interactive prompts: password prompts
// get Password, code prompts get OTP, and any other prompt is looked up in
// Challenges by question text, ignoring case.
type Endpoint struct {
	Host       string
	Port       int
	Username   string
	Password   string
	PrivateKey []byte
	HostKey    string
	OTP        string
	Challenges map[string]string
}

func (e Endpoint) Addr() string {
	port := e.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(e.Host, strconv.Itoa(port))
}

func (e Endpoint) String() string {
	return fmt.Sprintf("%s@%s", e.Username, e.Addr())
}

var codePrompts = []string{"code", "token", "otp", "passcode", "verification"}

// Answer returns the reply to one keyboard-interactive prompt.
func (e Endpoint) Answer(question string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(question))
	if strings.Contains(q, "password") {
		return e.Password, nil
	}
	for k, v := range e.Challenges {
		if strings.EqualFold(strings.TrimSpace(k), q) {
			return v, nil
		}
	}
	for _, p := range codePrompts {
		if strings.Contains(q, p) {
			if e.OTP == "" {
				return "", fmt.Errorf("prompt %q needs a one-time code", question)
			}
			return e.OTP, nil
		}
	}
	return "", fmt.Errorf("no answer for prompt %q", question)
}

// Entry is one directory listing item.
type Entry struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// Session is an open connection to a remote file store.
type Session interface {
	Put(remotePath string, content []byte) error
	List(dir string) ([]Entry, error)
	Get(remotePath string) ([]byte, error)
	Close() error
}
