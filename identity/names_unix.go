//go:build unix

package identity

import (
	"os/user"
	"strings"
)

// resolveUserNames reads the login name and the GECOS full-name field.
func resolveUserNames() (login, display string, err error) {
	u, err := user.Current()
	if err != nil {
		return "", "", err
	}

	display = u.Name
	if i := strings.IndexByte(display, ','); i >= 0 {
		display = display[:i]
	}

	return u.Username, strings.TrimSpace(display), nil
}
