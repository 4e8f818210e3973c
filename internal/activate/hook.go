package activate

import (
	"fmt"
	"os/exec"
	"strings"
)

// ShellHook wraps a declared 'run:' command into a Hook executed in the
// plugin's install directory.
func ShellHook(dir, command string) Hook {
	return func() error {
		cmd := exec.Command("sh", "-c", command)
		cmd.Dir = dir
		output, err := cmd.CombinedOutput()
		if err != nil {
			return fmt.Errorf("run '%s': %s: %w", command, strings.TrimSpace(string(output)), err)
		}
		return nil
	}
}
