package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// resetViper gives each test the registered defaults and nothing else.
func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	setDefaults()
	t.Cleanup(viper.Reset)
}

// newTestCmd returns a bare command wired to the given buffers and stdin.
func newTestCmd(use string, out, errOut *bytes.Buffer, stdin string) *cobra.Command {
	cmd := &cobra.Command{Use: use}
	cmd.SetOut(out)
	if errOut != nil {
		cmd.SetErr(errOut)
	} else {
		cmd.SetErr(&bytes.Buffer{})
	}
	cmd.SetIn(strings.NewReader(stdin))
	return cmd
}

func setFlag(t *testing.T, cmd *cobra.Command, name, value string) {
	t.Helper()
	if err := cmd.Flags().Set(name, value); err != nil {
		t.Fatalf("Set(%s) error = %v", name, err)
	}
}

func writeTempFile(t *testing.T, dir string, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(joinLines(lines)), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
