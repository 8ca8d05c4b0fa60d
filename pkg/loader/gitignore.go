package loader

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StateDirPattern is the .gitignore entry covering pscope's local state
// (tree expansion state, payload cache). Fixture files under .pscope/ stay
// tracked.
const StateDirPattern = ".pscope/state/"

const gitignoreHeader = "# pscope local state and caches"

// EnsureStateInGitignore ensures that .pscope/state/ is listed in the
// project's .gitignore file.
//
// The function is idempotent. It creates .gitignore when missing, adds the
// pattern only if no equivalent entry exists (.pscope, .pscope/,
// .pscope/state, ...), and preserves existing content.
func EnsureStateInGitignore(projectDir string) error {
	if projectDir == "" {
		var err error
		projectDir, err = os.Getwd()
		if err != nil {
			return err
		}
	}

	gitignorePath := filepath.Join(projectDir, ".gitignore")

	alreadyPresent, err := isStateInGitignore(gitignorePath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", gitignorePath, err)
	}
	if alreadyPresent {
		return nil
	}

	if err := appendToGitignore(gitignorePath, StateDirPattern); err != nil {
		return fmt.Errorf("updating %s: %w", gitignorePath, err)
	}
	return nil
}

// isStateInGitignore checks if the state directory is already covered.
func isStateInGitignore(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if matchesStatePattern(line) {
			return true, nil
		}
	}

	return false, scanner.Err()
}

// matchesStatePattern checks if a gitignore line covers .pscope/state,
// either directly or by ignoring all of .pscope.
func matchesStatePattern(line string) bool {
	normalized := strings.TrimPrefix(line, "/")

	for _, dir := range []string{".pscope", ".pscope/state"} {
		for _, suffix := range []string{"", "/", "/*", "/**", "/**/*"} {
			if normalized == dir+suffix {
				return true
			}
		}
	}
	return false
}

// appendToGitignore appends a pattern to the .gitignore file, creating it
// if needed. A newline is inserted first when the file lacks a trailing one.
func appendToGitignore(path string, pattern string) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	var toWrite string
	if len(content) == 0 {
		toWrite = gitignoreHeader + "\n" + pattern + "\n"
	} else {
		if content[len(content)-1] != '\n' {
			toWrite = "\n"
		}
		toWrite += "\n" + gitignoreHeader + "\n" + pattern + "\n"
	}

	_, err = file.WriteString(toWrite)
	return err
}
