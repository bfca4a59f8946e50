package device

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/voidnx/fortress/internal/install"
	"github.com/voidnx/fortress/internal/system"
)

// AuthMethod represents a way to authenticate to a LUKS volume
type AuthMethod interface {
	Apply(cmd *exec.Cmd) error
}

// PasswordAuth authenticates using a passphrase
type PasswordAuth struct {
	Password *system.SecureBytes
}

// Apply applies password authentication to a command
func (a *PasswordAuth) Apply(cmd *exec.Cmd) error {
	if a.Password == nil {
		return fmt.Errorf("password is nil")
	}
	cmd.Stdin = strings.NewReader(string(a.Password.Bytes()) + "\n")
	return nil
}

// KeyfileAuth authenticates using a keyfile
type KeyfileAuth struct {
	KeyfilePath string
}

// Apply applies keyfile authentication to a command
func (a *KeyfileAuth) Apply(cmd *exec.Cmd) error {
	cmd.Args = append(cmd.Args, "--key-file", a.KeyfilePath)
	return nil
}

// InteractiveAuth lets cryptsetup drive its own terminal prompts
type InteractiveAuth struct{}

// Apply applies interactive authentication to a command
func (a *InteractiveAuth) Apply(cmd *exec.Cmd) error {
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return nil
}

// LUKS drives cryptsetup for the two encrypted volumes. Credentials
// are bound per generation, so callers address volumes without
// carrying key material. Implements install.Encrypter.
type LUKS struct {
	exec *system.Executor
	auth map[install.VolumeGeneration]AuthMethod
}

// NewLUKS creates a LUKS manager.
func NewLUKS(executor *system.Executor) *LUKS {
	return &LUKS{
		exec: executor,
		auth: make(map[install.VolumeGeneration]AuthMethod),
	}
}

// SetCredential binds the credential used for a volume generation.
func (m *LUKS) SetCredential(gen install.VolumeGeneration, auth AuthMethod) {
	m.auth[gen] = auth
}

// formatArgs returns the cryptsetup luksFormat parameters for a
// generation. Root stays LUKS1/pbkdf2 so GRUB can unlock it; home is
// LUKS2/argon2id.
func formatArgs(gen install.VolumeGeneration) ([]string, error) {
	switch gen {
	case install.RootGeneration:
		return []string{
			"--type", "luks1",
			"--cipher", "aes-xts-plain64",
			"--key-size", "512",
			"--hash", "sha512",
			"--iter-time", "5000",
		}, nil
	case install.HomeGeneration:
		return []string{
			"--type", "luks2",
			"--cipher", "aes-xts-plain64",
			"--key-size", "512",
			"--pbkdf", "argon2id",
		}, nil
	}
	return nil, fmt.Errorf("unknown volume generation %d", gen)
}

// IsFormatted checks if a device is a LUKS container. Non-existent
// devices simply answer false.
func (m *LUKS) IsFormatted(device string) bool {
	return m.exec.Succeeds("cryptsetup", "isLuks", device)
}

// IsOpen checks if a mapping with the given logical name is active.
func (m *LUKS) IsOpen(name string) bool {
	_, err := os.Stat(install.MapperPath(name))
	return err == nil
}

// Format formats a device with the parameters of its generation.
func (m *LUKS) Format(device string, gen install.VolumeGeneration) error {
	args, err := formatArgs(gen)
	if err != nil {
		return err
	}
	auth, ok := m.auth[gen]
	if !ok {
		return fmt.Errorf("no credential bound for %s volume", gen)
	}

	cmdArgs := append([]string{"luksFormat", "--batch-mode"}, args...)
	cmd := exec.Command("cryptsetup", append(cmdArgs, device)...)
	if err := auth.Apply(cmd); err != nil {
		return err
	}
	if _, err := m.runAuthCmd(cmd, auth); err != nil {
		return fmt.Errorf("failed to format %s: %w", device, err)
	}
	return nil
}

// Open unlocks a device under its stable mapper name.
func (m *LUKS) Open(device, name string, gen install.VolumeGeneration) error {
	auth, ok := m.auth[gen]
	if !ok {
		return fmt.Errorf("no credential bound for %s volume", gen)
	}
	cmd := exec.Command("cryptsetup", "open", device, name)
	if err := auth.Apply(cmd); err != nil {
		return err
	}
	if _, err := m.runAuthCmd(cmd, auth); err != nil {
		return fmt.Errorf("failed to open %s as %s: %w", device, name, err)
	}
	return nil
}

// Close tears down an open mapping.
func (m *LUKS) Close(name string) error {
	if err := m.exec.Run("cryptsetup", "close", name); err != nil {
		return fmt.Errorf("failed to close volume %s: %w", name, err)
	}
	return nil
}

// AddRecoveryCredential enrolls a keyfile as an additional credential,
// authenticating with the generation's bound credential.
func (m *LUKS) AddRecoveryCredential(device string, gen install.VolumeGeneration, keyfile string) error {
	auth, ok := m.auth[gen]
	if !ok {
		return fmt.Errorf("no credential bound for %s volume", gen)
	}
	cmd := exec.Command("cryptsetup", "luksAddKey", device, keyfile)
	if err := auth.Apply(cmd); err != nil {
		return err
	}
	if _, err := m.runAuthCmd(cmd, auth); err != nil {
		return fmt.Errorf("failed to add recovery credential to %s: %w", device, err)
	}
	return nil
}

// ChangeKey replaces a volume credential. Passphrases are fed on
// stdin (current, then new) unless keyfiles take their place.
func (m *LUKS) ChangeKey(device string, current, next AuthMethod) error {
	cmd := exec.Command("cryptsetup", "luksChangeKey", device)

	var stdin strings.Builder
	switch a := current.(type) {
	case *KeyfileAuth:
		cmd.Args = append(cmd.Args, "--key-file", a.KeyfilePath)
	case *PasswordAuth:
		stdin.Write(a.Password.Bytes())
		stdin.WriteByte('\n')
	case *InteractiveAuth:
		return m.changeKeyInteractive(cmd)
	}
	switch a := next.(type) {
	case *KeyfileAuth:
		cmd.Args = append(cmd.Args, a.KeyfilePath)
	case *PasswordAuth:
		stdin.Write(a.Password.Bytes())
		stdin.WriteByte('\n')
	}
	cmd.Stdin = strings.NewReader(stdin.String())

	if _, err := m.exec.RunCmd(cmd); err != nil {
		return fmt.Errorf("failed to change credential on %s: %w", device, err)
	}
	return nil
}

func (m *LUKS) changeKeyInteractive(cmd *exec.Cmd) error {
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to change credential: %w", err)
	}
	return nil
}

// runAuthCmd runs a cryptsetup command, respecting interactive auth
// which already owns the terminal.
func (m *LUKS) runAuthCmd(cmd *exec.Cmd, auth AuthMethod) (string, error) {
	if _, ok := auth.(*InteractiveAuth); ok {
		if err := cmd.Run(); err != nil {
			return "", err
		}
		return "", nil
	}
	return m.exec.RunCmd(cmd)
}
