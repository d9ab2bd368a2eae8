// Package perms maps a device account to the set of policy tokens its
// group grants. The dashboard uses the set to hide actions the device
// would reject anyway, such as reboot for read-only users.
package perms

import (
	"fmt"
	"strings"

	"routerdash/backend/rdashd/pkg/routeros"
)

// Set holds every policy token a group can grant. Tokens absent from the
// group's policy string stay false.
type Set struct {
	Read      bool `json:"read"`
	Write     bool `json:"write"`
	Test      bool `json:"test"`
	Web       bool `json:"web"`
	Password  bool `json:"password"`
	Sensitive bool `json:"sensitive"`
	API       bool `json:"api"`
	ROMON     bool `json:"romon"`
	Dude      bool `json:"dude"`
	TikApp    bool `json:"tikapp"`
	RestAPI   bool `json:"restApi"`
	FTP       bool `json:"ftp"`
	Winbox    bool `json:"winbox"`
	Reboot    bool `json:"reboot"`
	Policy    bool `json:"policy"`
	Sniff     bool `json:"sniff"`
	SSH       bool `json:"ssh"`
	Telnet    bool `json:"telnet"`
	Local     bool `json:"local"`
}

// CanReboot reports whether the account may reboot the device.
func (s Set) CanReboot() bool { return s.Reboot }

// ReadOnly reports whether the account can observe but not change state.
func (s Set) ReadOnly() bool { return s.Read && !s.Write }

// ResolutionError reports why a permission set could not be derived.
type ResolutionError struct {
	Username string
	Group    string // empty when the user itself was not found
}

func (e *ResolutionError) Error() string {
	if e.Group == "" {
		return fmt.Sprintf("perms: user %q not present in device user table", e.Username)
	}
	return fmt.Sprintf("perms: group %q for user %q not present in device group table", e.Group, e.Username)
}

// Derive resolves username through the device's user and group tables.
// Policy tokens are comma separated; a leading "!" negates a token on
// some firmware versions and is treated as absent.
func Derive(username string, users []routeros.User, groups []routeros.UserGroup) (Set, error) {
	var user *routeros.User
	for i := range users {
		if users[i].Name == username {
			user = &users[i]
			break
		}
	}
	if user == nil {
		return Set{}, &ResolutionError{Username: username}
	}
	for i := range groups {
		if groups[i].Name == user.Group {
			return Parse(groups[i].Policy), nil
		}
	}
	return Set{}, &ResolutionError{Username: username, Group: user.Group}
}

// Parse turns a policy string such as "read,write,!reboot" into a Set.
// Unknown tokens are ignored so new firmware doesn't break derivation.
func Parse(policy string) Set {
	var s Set
	for _, tok := range strings.Split(policy, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" || strings.HasPrefix(tok, "!") {
			continue
		}
		switch tok {
		case "read":
			s.Read = true
		case "write":
			s.Write = true
		case "test":
			s.Test = true
		case "web":
			s.Web = true
		case "password":
			s.Password = true
		case "sensitive":
			s.Sensitive = true
		case "api":
			s.API = true
		case "romon":
			s.ROMON = true
		case "dude":
			s.Dude = true
		case "tikapp":
			s.TikApp = true
		case "rest-api":
			s.RestAPI = true
		case "ftp":
			s.FTP = true
		case "winbox":
			s.Winbox = true
		case "reboot":
			s.Reboot = true
		case "policy":
			s.Policy = true
		case "sniff":
			s.Sniff = true
		case "ssh":
			s.SSH = true
		case "telnet":
			s.Telnet = true
		case "local":
			s.Local = true
		}
	}
	return s
}
