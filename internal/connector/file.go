package connector

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edap/edap-server/internal/model"
	"github.com/edap/edap-server/internal/token"
)

// fixture is the on-disk layout of one user for FileConnector.
type fixture struct {
	Secret   string                `json:"secret"`
	Snapshot model.ProfileSnapshot `json:"snapshot"`
}

// FileConnector serves users from <dir>/<normalized username>.json. The file is
// read again on every call, so editing it stands in for upstream changes.
type FileConnector struct {
	dir string
}

// NewFileConnector creates a FileConnector rooted at dir.
func NewFileConnector(dir string) *FileConnector {
	return &FileConnector{dir: dir}
}

func (c *FileConnector) load(username string) (*fixture, error) {
	name := token.Normalize(username)
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return nil, errWrongCredentials("login")
	}

	data, err := os.ReadFile(filepath.Join(c.dir, name+".json"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, errWrongCredentials("login")
	}
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Op: "read", Err: err}
	}

	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, &Error{Kind: KindParse, Op: "read", Err: fmt.Errorf("%s: %w", name, err)}
	}
	return &f, nil
}

// Login implements Connector.
func (c *FileConnector) Login(_ context.Context, username, secret string) (Session, error) {
	f, err := c.load(username)
	if err != nil {
		return Session{}, err
	}
	if subtle.ConstantTimeCompare([]byte(f.Secret), []byte(secret)) != 1 {
		return Session{}, errWrongCredentials("login")
	}
	return Session{Username: token.Normalize(username)}, nil
}

// FetchSnapshot implements Connector.
func (c *FileConnector) FetchSnapshot(_ context.Context, s Session) (*model.ProfileSnapshot, error) {
	f, err := c.load(s.Username)
	if err != nil {
		return nil, err
	}
	return &f.Snapshot, nil
}

func errWrongCredentials(op string) error {
	return &Error{Kind: KindWrongCredentials, Op: op}
}
