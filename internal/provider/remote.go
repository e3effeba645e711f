package provider

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"

	"horus-go/internal/horus"
)

// exitMissing is the exit status the remote commands use for a missing path.
const exitMissing = 3

// RemoteConfig describes the SSH endpoint that serves the project tree.
type RemoteConfig struct {
	Host           string
	Port           int
	User           string
	KeyPath        string
	KnownHostsPath string
	// InsecureIgnoreHostKey skips host key verification.
	InsecureIgnoreHostKey bool
	Root                  string
	// Sudo runs mutating commands through "sudo -n" for servers where the
	// review user cannot write the project tree directly.
	Sudo    bool
	Timeout time.Duration
	// Passphrase is asked for when the key is encrypted. Nil prompts on the
	// terminal.
	Passphrase func() ([]byte, error)
}

// commandRunner executes one shell command on the remote host.
type commandRunner interface {
	run(cmd string, stdin []byte) (stdout, stderr []byte, exit int, err error)
	close() error
}

// RemoteProvider serves the project tree over a single SSH connection by
// running POSIX shell commands on the file server.
type RemoteProvider struct {
	root    string
	sudo    bool
	runner  commandRunner
	timeout time.Duration
}

// NewRemoteProvider connects to the host. A failed dial is ErrConnection.
func NewRemoteProvider(cfg RemoteConfig) (*RemoteProvider, error) {
	if cfg.Host == "" || cfg.User == "" || cfg.KeyPath == "" {
		return nil, fmt.Errorf("remote provider requires host, user and key_path")
	}
	if cfg.Root == "" {
		return nil, fmt.Errorf("remote provider requires a root directory")
	}
	if cfg.Port == 0 {
		cfg.Port = 22
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultRemoteTimeout
	}

	signer, err := loadSigner(cfg.KeyPath, cfg.Passphrase)
	if err != nil {
		return nil, err
	}
	hostKey, err := hostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	client, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKey,
		Timeout:         cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", horus.ErrConnection, addr, err)
	}

	r := newRemoteProvider(cfg.Root, cfg.Sudo, &sshRunner{client: client})
	r.timeout = cfg.Timeout
	return r, nil
}

func newRemoteProvider(root string, sudo bool, runner commandRunner) *RemoteProvider {
	return &RemoteProvider{root: path.Clean(root), sudo: sudo, runner: runner, timeout: defaultRemoteTimeout}
}

func loadSigner(keyPath string, passphrase func() ([]byte, error)) (ssh.Signer, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading ssh key: %w", err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	var missing *ssh.PassphraseMissingError
	if !errors.As(err, &missing) {
		if err != nil {
			return nil, fmt.Errorf("parsing ssh key: %w", err)
		}
		return signer, nil
	}

	if passphrase == nil {
		passphrase = promptPassphrase(keyPath)
	}
	pass, err := passphrase()
	if err != nil {
		return nil, fmt.Errorf("reading key passphrase: %w", err)
	}
	signer, err = ssh.ParsePrivateKeyWithPassphrase(key, pass)
	if err != nil {
		return nil, fmt.Errorf("parsing ssh key: %w", err)
	}
	return signer, nil
}

func promptPassphrase(keyPath string) func() ([]byte, error) {
	return func() ([]byte, error) {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return nil, fmt.Errorf("key %s is encrypted and stdin is not a terminal", keyPath)
		}
		fmt.Fprintf(os.Stderr, "Passphrase for %s: ", keyPath)
		pass, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		return pass, err
	}
}

func hostKeyCallback(cfg RemoteConfig) (ssh.HostKeyCallback, error) {
	if cfg.InsecureIgnoreHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	known := cfg.KnownHostsPath
	if known == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		known = filepath.Join(home, ".ssh", "known_hosts")
	}
	cb, err := knownhosts.New(known)
	if err != nil {
		return nil, fmt.Errorf("loading known hosts %s: %w", known, err)
	}
	return cb, nil
}

// shellQuote wraps s in single quotes for a POSIX shell.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (r *RemoteProvider) resolve(p string) string {
	return path.Join(r.root, cleanPath(p))
}

func (r *RemoteProvider) privileged(cmd string) string {
	if r.sudo {
		return "sudo -n " + cmd
	}
	return cmd
}

// exec runs cmd and maps failures. A nil error means exit status 0.
func (r *RemoteProvider) exec(p, cmd string, stdin []byte) ([]byte, error) {
	stdout, stderr, exit, err := r.runner.run(cmd, stdin)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", horus.ErrConnection, err)
	}
	switch {
	case exit == 0:
		return stdout, nil
	case exit == exitMissing:
		return nil, fmt.Errorf("%w: %s", horus.ErrNotFound, p)
	case bytes.Contains(stderr, []byte("Permission denied")),
		bytes.Contains(stderr, []byte("Read-only file system")),
		bytes.Contains(stderr, []byte("sudo:")):
		return nil, fmt.Errorf("%w: %s: %s", horus.ErrPermission, p, strings.TrimSpace(string(stderr)))
	default:
		return nil, fmt.Errorf("remote command failed on %s (exit %d): %s", p, exit, strings.TrimSpace(string(stderr)))
	}
}

func (r *RemoteProvider) ListDirectory(p string) ([]horus.DirEntry, error) {
	q := shellQuote(r.resolve(p))
	out, err := r.exec(p, fmt.Sprintf("test -d %s || exit %d; ls -1Ap -- %s", q, exitMissing, q), nil)
	if err != nil {
		return nil, err
	}
	var entries []horus.DirEntry
	for _, line := range strings.Split(string(out), "\n") {
		if line == "" {
			continue
		}
		if strings.HasSuffix(line, "/") {
			entries = append(entries, horus.DirEntry{Name: strings.TrimSuffix(line, "/"), IsDir: true})
			continue
		}
		entries = append(entries, horus.DirEntry{Name: line})
	}
	return entries, nil
}

func (r *RemoteProvider) FileExists(p string) (bool, error) {
	_, err := r.exec(p, fmt.Sprintf("test -e %s || exit %d", shellQuote(r.resolve(p)), exitMissing), nil)
	if errors.Is(err, horus.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *RemoteProvider) ReadFile(p string) ([]byte, error) {
	q := shellQuote(r.resolve(p))
	return r.exec(p, fmt.Sprintf("test -f %s || exit %d; cat -- %s", q, exitMissing, q), nil)
}

// WriteFile streams data into a temp file next to the target and renames
// it over the target.
func (r *RemoteProvider) WriteFile(p string, data []byte) error {
	dest := r.resolve(p)
	tmp := fmt.Sprintf("%s/.tmp-%s", path.Dir(dest), uuid.NewString()[:8])

	var sink string
	if r.sudo {
		sink = fmt.Sprintf("sudo -n tee %s > /dev/null", shellQuote(tmp))
	} else {
		sink = fmt.Sprintf("cat > %s", shellQuote(tmp))
	}
	cmd := fmt.Sprintf("%s && %s && %s",
		r.privileged("mkdir -p "+shellQuote(path.Dir(dest))),
		sink,
		r.privileged(fmt.Sprintf("mv -f %s %s", shellQuote(tmp), shellQuote(dest))),
	)
	_, err := r.exec(p, cmd, data)
	return err
}

func (r *RemoteProvider) GetFileInfo(p string) (*horus.FileInfo, error) {
	q := shellQuote(r.resolve(p))
	out, err := r.exec(p, fmt.Sprintf("test -e %s || exit %d; stat -c '%%s %%Y %%F' -- %s", q, exitMissing, q), nil)
	if err != nil {
		return nil, err
	}
	return parseStat(strings.TrimSpace(string(out)))
}

// parseStat reads the "size mtime type" line printed by stat -c '%s %Y %F'.
func parseStat(line string) (*horus.FileInfo, error) {
	fields := strings.SplitN(line, " ", 3)
	if len(fields) != 3 {
		return nil, fmt.Errorf("unexpected stat output %q", line)
	}
	size, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing size from %q: %w", line, err)
	}
	mtime, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parsing mtime from %q: %w", line, err)
	}
	return &horus.FileInfo{
		Size:    size,
		ModTime: time.Unix(mtime, 0).UTC(),
		IsDir:   fields[2] == "directory",
	}, nil
}

func (r *RemoteProvider) AbsolutePath(p string) string {
	return r.resolve(p)
}

// Probe runs a trivial command to confirm the session works. A server that
// accepts the connection but does not answer within the timeout gets the
// connection closed.
func (r *RemoteProvider) Probe() error {
	type reply struct {
		out []byte
		err error
	}
	done := make(chan reply, 1)
	go func() {
		out, err := r.exec(".", "echo ok", nil)
		done <- reply{out: out, err: err}
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil {
			return res.err
		}
		if strings.TrimSpace(string(res.out)) != "ok" {
			return fmt.Errorf("%w: unexpected probe reply %q", horus.ErrConnection, res.out)
		}
		return nil
	case <-timer.C:
		r.runner.close()
		return fmt.Errorf("%w: no probe reply within %s", horus.ErrConnection, r.timeout)
	}
}

func (r *RemoteProvider) Close() error {
	return r.runner.close()
}

// sshRunner runs each command in its own session on a shared client.
type sshRunner struct {
	client *ssh.Client
}

func (s *sshRunner) run(cmd string, stdin []byte) ([]byte, []byte, int, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return nil, nil, 0, fmt.Errorf("opening session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if stdin != nil {
		session.Stdin = bytes.NewReader(stdin)
	}

	err = session.Run(cmd)
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), stderr.Bytes(), exitErr.ExitStatus(), nil
	}
	if err != nil {
		return nil, nil, 0, err
	}
	return stdout.Bytes(), stderr.Bytes(), 0, nil
}

func (s *sshRunner) close() error {
	return s.client.Close()
}

// Compile-time check that RemoteProvider implements horus.Provider
var _ horus.Provider = (*RemoteProvider)(nil)
