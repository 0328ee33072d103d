package ssh

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/sftp"
	"github.com/ruffel/wslkit"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	testUser     = "dev"
	testPassword = "hunter2"
)

// fakeCommand is the canned behaviour of one exec request.
type fakeCommand struct {
	stdout   string
	stderr   string
	exit     int
	hang     bool // block until signalled or the channel closes
	noStatus bool // close without sending exit-status
}

// testServer is a minimal in-process SSH server answering exec requests from
// a fixed table and serving the sftp subsystem on the local filesystem.
type testServer struct {
	addr     *net.TCPAddr
	commands map[string]fakeCommand
	hostKey  ssh.PublicKey
	key      ssh.PublicKey

	mu    sync.Mutex
	execs []string
	conns []*ssh.ServerConn
}

func newTestServer(t *testing.T, commands map[string]fakeCommand) *testServer {
	t.Helper()

	_, hostKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	hostSigner, err := ssh.NewSignerFromKey(hostKey)
	require.NoError(t, err)

	srv := &testServer{commands: commands, hostKey: hostSigner.PublicKey()}

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if c.User() == testUser && string(pass) == testPassword {
				return nil, nil
			}

			return nil, errors.New("access denied")
		},
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			srv.mu.Lock()
			defer srv.mu.Unlock()

			if srv.key != nil && string(srv.key.Marshal()) == string(key.Marshal()) {
				return nil, nil
			}

			return nil, errors.New("unknown key")
		},
	}
	cfg.AddHostKey(hostSigner)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv.addr = ln.Addr().(*net.TCPAddr)

	t.Cleanup(func() {
		_ = ln.Close()
		srv.dropConnections()
	})

	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				return
			}

			go srv.handleConn(nc, cfg)
		}
	}()

	return srv
}

// connection returns password credentials for the server.
func (s *testServer) connection() wslkit.Connection {
	return wslkit.Connection{
		Host:     "127.0.0.1",
		Port:     s.addr.Port,
		Username: testUser,
		Password: testPassword,
	}
}

// authorizeKey generates a client key, trusts it and writes it to dir.
func (s *testServer) authorizeKey(t *testing.T, dir string) string {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)

	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)

	path := filepath.Join(dir, "id_ed25519")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))

	s.mu.Lock()
	s.key = sshPub
	s.mu.Unlock()

	return path
}

// knownHosts writes a known_hosts file trusting key for the server address.
func (s *testServer) knownHosts(t *testing.T, key ssh.PublicKey) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "known_hosts")
	line := knownhosts.Line([]string{knownhosts.Normalize(s.addr.String())}, key)
	require.NoError(t, os.WriteFile(path, []byte(line+"\n"), 0o600))

	return path
}

func (s *testServer) executed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.execs...)
}

func (s *testServer) dropConnections() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

func (s *testServer) handleConn(nc net.Conn, cfg *ssh.ServerConfig) {
	sconn, chans, reqs, err := ssh.NewServerConn(nc, cfg)
	if err != nil {
		_ = nc.Close()

		return
	}

	s.mu.Lock()
	s.conns = append(s.conns, sconn)
	s.mu.Unlock()

	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "unsupported channel type")

			continue
		}

		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}

		go s.handleSession(ch, chReqs)
	}
}

func (s *testServer) handleSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	killed := make(chan struct{})

	var once sync.Once

	stop := func() { once.Do(func() { close(killed) }) }
	defer stop()

	for req := range reqs {
		switch req.Type {
		case "exec":
			var payload struct{ Command string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
				_ = req.Reply(false, nil)

				continue
			}

			_ = req.Reply(true, nil)

			go s.run(ch, payload.Command, killed)
		case "subsystem":
			var payload struct{ Name string }
			if err := ssh.Unmarshal(req.Payload, &payload); err != nil || payload.Name != "sftp" {
				_ = req.Reply(false, nil)

				continue
			}

			_ = req.Reply(true, nil)

			go func() {
				defer func() { _ = ch.Close() }()

				server, err := sftp.NewServer(ch)
				if err != nil {
					return
				}

				_ = server.Serve()
			}()
		case "signal":
			stop()
			_ = req.Reply(true, nil)
		default:
			_ = req.Reply(false, nil)
		}
	}
}

func (s *testServer) run(ch ssh.Channel, command string, killed <-chan struct{}) {
	defer func() { _ = ch.Close() }()

	s.mu.Lock()
	s.execs = append(s.execs, command)
	s.mu.Unlock()

	fc, ok := s.commands[command]
	if !ok {
		_, _ = io.WriteString(ch.Stderr(), "sh: "+command+": not found")
		sendExitStatus(ch, 127)

		return
	}

	if fc.hang {
		<-killed

		return
	}

	_, _ = io.WriteString(ch, fc.stdout)
	_, _ = io.WriteString(ch.Stderr(), fc.stderr)

	if fc.noStatus {
		return
	}

	sendExitStatus(ch, fc.exit)
}

func sendExitStatus(ch ssh.Channel, code int) {
	status := struct{ Status uint32 }{Status: uint32(code)} //nolint:gosec // test exit codes are small
	_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(&status))
}
