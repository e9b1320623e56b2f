package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
)

// PathResolver locates user supplied files such as dictionaries.
type PathResolver struct {
	executableDir string
	configDir     string
}

// NewPathResolver returns a resolver anchored at the running binary and configDir.
func NewPathResolver(configDir string) (*PathResolver, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, err
	}
	// the real binary location, not a symlink to it
	if resolved, err := filepath.EvalSymlinks(execPath); err == nil {
		execPath = resolved
	}
	pr := &PathResolver{
		executableDir: filepath.Dir(execPath),
		configDir:     configDir,
	}
	log.Debugf("PathResolver initialized: execDir=%s, configDir=%s", pr.executableDir, configDir)
	return pr, nil
}

// Candidates lists where a relative path is looked up, in order:
// the working directory, the executable directory, then the config directory.
func (pr *PathResolver) Candidates(path string) []string {
	if filepath.IsAbs(path) {
		return []string{path}
	}
	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, path))
	}
	candidates = append(candidates, filepath.Join(pr.executableDir, path))
	if pr.configDir != "" {
		candidates = append(candidates, filepath.Join(pr.configDir, path))
	}
	return candidates
}

// ResolveFile returns the first candidate for path that is an existing regular file.
func (pr *PathResolver) ResolveFile(path string) (string, error) {
	candidates := pr.Candidates(path)
	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			log.Debugf("Resolved %s to %s", path, candidate)
			return candidate, nil
		}
		log.Debugf("File candidate not valid: %s", candidate)
	}
	return "", fmt.Errorf("%s not found in any of %v", path, candidates)
}
