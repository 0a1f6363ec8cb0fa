package verifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

type DirectoryConfig struct {
	Address     string `yaml:"address"`
	BaseDn      string `yaml:"baseDn"`
	BindDn      string `yaml:"bindDn"`
	Password    string `yaml:"password"`
	UserFilter  string `yaml:"userFilter"`
	GroupFilter string `yaml:"groupFilter"`
}

const (
	defaultUserFilter  = "(uid=%s)"
	defaultGroupFilter = "(&(objectClass=groupOfNames)(member=%s))"
)

// DirectoryVerifier authenticates by binding against an LDAP directory and
// resolves group membership. Group DNs are normalized to their short names
// here so callers never see directory path encodings.
type DirectoryVerifier struct {
	config DirectoryConfig
}

func NewDirectoryVerifier(config DirectoryConfig) *DirectoryVerifier {
	if config.UserFilter == "" {
		config.UserFilter = defaultUserFilter
	}
	if config.GroupFilter == "" {
		config.GroupFilter = defaultGroupFilter
	}
	return &DirectoryVerifier{config: config}
}

func (v *DirectoryVerifier) connect() (*ldap.Conn, error) {
	conn, err := ldap.DialURL(v.config.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to directory: %w", err)
	}
	if err := conn.Bind(v.config.BindDn, v.config.Password); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to bind to directory: %w", err)
	}
	return conn, nil
}

func (v *DirectoryVerifier) findUserDn(conn *ldap.Conn, username string) (string, error) {
	req := ldap.NewSearchRequest(
		v.config.BaseDn,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, 0, false,
		fmt.Sprintf(v.config.UserFilter, ldap.EscapeFilter(username)),
		[]string{"dn"},
		nil,
	)
	result, err := conn.Search(req)
	if err != nil {
		return "", err
	}
	if len(result.Entries) == 0 {
		return "", ErrInvalidCredentials
	}
	return result.Entries[0].DN, nil
}

func (v *DirectoryVerifier) searchGroups(conn *ldap.Conn, userDn string) ([]string, error) {
	req := ldap.NewSearchRequest(
		v.config.BaseDn,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		fmt.Sprintf(v.config.GroupFilter, ldap.EscapeFilter(userDn)),
		[]string{"dn"},
		nil,
	)
	result, err := conn.Search(req)
	if err != nil {
		return nil, err
	}
	groups := make([]string, 0, len(result.Entries))
	for _, entry := range result.Entries {
		groups = append(groups, shortGroupName(entry.DN))
	}
	return groups, nil
}

func (v *DirectoryVerifier) Authenticate(ctx context.Context, username string, password string) (*Identity, error) {
	conn, err := v.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	userDn, err := v.findUserDn(conn, username)
	if err != nil {
		return nil, err
	}
	if err := conn.Bind(userDn, password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	// Rebind the service account, user accounts usually cannot search.
	if err := conn.Bind(v.config.BindDn, v.config.Password); err != nil {
		return nil, err
	}
	groups, err := v.searchGroups(conn, userDn)
	if err != nil {
		return nil, err
	}
	return &Identity{Username: username, Groups: groups}, nil
}

func (v *DirectoryVerifier) GroupsOf(ctx context.Context, username string) ([]string, error) {
	conn, err := v.connect()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	userDn, err := v.findUserDn(conn, username)
	if err != nil {
		return nil, err
	}
	return v.searchGroups(conn, userDn)
}

// shortGroupName extracts the value of the first RDN from a group DN, e.g.
// "cn=editors,ou=groups,dc=example,dc=org" becomes "editors".
func shortGroupName(dn string) string {
	rdn := strings.SplitN(dn, ",", 2)[0]
	if i := strings.IndexByte(rdn, '='); i >= 0 {
		return rdn[i+1:]
	}
	return rdn
}
