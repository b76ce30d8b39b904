package syncengine

import (
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"github.com/sosuisen/gitdocdb/internal/config"
	"github.com/sosuisen/gitdocdb/internal/kinds"
)

// BuildAuth turns a connection's configuration into the transport
// credentials go-git needs for fetch/push, or nil for ConnectionNone.
func BuildAuth(c config.Connection) (transport.AuthMethod, error) {
	switch c.Type {
	case config.ConnectionNone, "":
		return nil, nil
	case config.ConnectionGitHub:
		if c.PersonalAccessToken == "" {
			return nil, kinds.New(kinds.UndefinedPersonalAccessToken, "syncengine.BuildAuth", nil)
		}
		return &http.BasicAuth{Username: "x-access-token", Password: c.PersonalAccessToken}, nil
	case config.ConnectionSSH:
		auth, err := ssh.NewPublicKeysFromFile("git", c.PrivateKeyPath, "")
		if err != nil {
			return nil, kinds.New(kinds.CannotConnect, "syncengine.BuildAuth", err)
		}
		return auth, nil
	default:
		return nil, kinds.New(kinds.AuthenticationTypeNotAllowCreate, "syncengine.BuildAuth", nil)
	}
}
