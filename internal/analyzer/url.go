package analyzer

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseRepositoryURL validates a submitted repository URL against the
// accepted host and returns the project path (namespace/project).
//
// Accepted form: https://<host>/<namespace>/<project>[/...][.git]
// Everything else (http, other hosts, userinfo, explicit ports, bare
// hosts) is rejected with ErrInvalidRepositoryURL.
func ParseRepositoryURL(raw, acceptedHost string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRepositoryURL, err)
	}

	if u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q not allowed", ErrInvalidRepositoryURL, u.Scheme)
	}
	if u.User != nil {
		return "", fmt.Errorf("%w: userinfo not allowed", ErrInvalidRepositoryURL)
	}
	if u.Port() != "" {
		return "", fmt.Errorf("%w: explicit port not allowed", ErrInvalidRepositoryURL)
	}
	if !strings.EqualFold(u.Hostname(), acceptedHost) {
		return "", fmt.Errorf("%w: host %q not accepted", ErrInvalidRepositoryURL, u.Hostname())
	}

	path := strings.Trim(u.EscapedPath(), "/")
	path = strings.TrimSuffix(path, ".git")
	segments := strings.Split(path, "/")
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return "", fmt.Errorf("%w: path %q is not namespace/project", ErrInvalidRepositoryURL, u.Path)
	}

	// Subgroups are legal on GitLab; keep the full project path.
	return path, nil
}
