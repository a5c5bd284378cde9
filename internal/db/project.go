package db

import (
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/opencode-ai/lspbridge/internal/logging"
)

var projectIDs sync.Map

// ProjectID names the project a workspace belongs to so that history from
// different checkouts of the same repository lines up. It is the normalized
// git origin when there is one and the directory name otherwise.
func ProjectID(workingDir string) string {
	if id, ok := projectIDs.Load(workingDir); ok {
		return id.(string)
	}

	id := gitOrigin(workingDir)
	if id == "" {
		id = filepath.Base(workingDir)
	}
	logging.Debug("resolved project id", "project_id", id, "working_dir", workingDir)

	actual, _ := projectIDs.LoadOrStore(workingDir, id)
	return actual.(string)
}

func gitOrigin(workingDir string) string {
	cmd := exec.Command("git", "config", "--get", "remote.origin.url")
	cmd.Dir = workingDir
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return normalizeGitURL(strings.TrimSpace(string(out)))
}

// normalizeGitURL reduces ssh and http(s) remotes to host/owner/repo.
func normalizeGitURL(url string) string {
	url = strings.TrimSuffix(strings.TrimRight(url, "/"), ".git")
	if rest, ok := strings.CutPrefix(url, "git@"); ok {
		return strings.Replace(rest, ":", "/", 1)
	}
	for _, scheme := range []string{"https://", "http://", "ssh://"} {
		if rest, ok := strings.CutPrefix(url, scheme); ok {
			return rest
		}
	}
	return url
}
