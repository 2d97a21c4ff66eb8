package utils

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseRepo splits a repository reference into owner and name. Both the
// "owner/name" shorthand and full GitHub URLs are accepted.
func ParseRepo(repo string) (owner, name string, err error) {
	path := repo
	if strings.Contains(repo, "://") {
		u, err := url.Parse(repo)
		if err != nil {
			return "", "", err
		}
		path = u.Path
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GitHub repository reference")
	}

	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
