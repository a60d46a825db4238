//go:build windows

package identity

import (
	"os/user"
	"strings"
)

// resolveUserNames strips the DOMAIN\ prefix Windows puts on the login name.
func resolveUserNames() (login, display string, err error) {
	u, err := user.Current()
	if err != nil {
		return "", "", err
	}

	login = u.Username
	if i := strings.LastIndexByte(login, '\\'); i >= 0 {
		login = login[i+1:]
	}

	return login, strings.TrimSpace(u.Name), nil
}
