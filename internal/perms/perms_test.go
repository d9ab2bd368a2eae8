package perms

import (
	"errors"
	"testing"

	"routerdash/backend/rdashd/pkg/routeros"
)

func TestParseFullAdminPolicy(t *testing.T) {
	s := Parse("local,telnet,ssh,ftp,reboot,read,write,policy,test,winbox,password,web,sniff,sensitive,api,romon,dude,tikapp,rest-api")
	if !s.Read || !s.Write || !s.Reboot || !s.RestAPI || !s.Local {
		t.Fatalf("admin policy missing tokens: %+v", s)
	}
	if !s.CanReboot() {
		t.Fatal("admin should be allowed to reboot")
	}
	if s.ReadOnly() {
		t.Fatal("admin is not read only")
	}
}

func TestParseIgnoresNegatedAndUnknownTokens(t *testing.T) {
	s := Parse("read, !write, shiny-new-token, web")
	if !s.Read || !s.Web {
		t.Fatalf("positive tokens lost: %+v", s)
	}
	if s.Write {
		t.Fatal("negated token should not grant")
	}
	if !s.ReadOnly() {
		t.Fatal("read without write is read only")
	}
}

func TestDeriveResolvesThroughGroup(t *testing.T) {
	users := []routeros.User{
		{Name: "ops", Group: "read"},
	}
	groups := []routeros.UserGroup{
		{Name: "full", Policy: "read,write,reboot"},
		{Name: "read", Policy: "read,web,winbox"},
	}
	s, err := Derive("ops", users, groups)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !s.Read || !s.Web || !s.Winbox || s.Write || s.Reboot {
		t.Fatalf("wrong set: %+v", s)
	}
}

func TestDeriveMissingUser(t *testing.T) {
	_, err := Derive("ghost", nil, nil)
	var re *ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
	if re.Username != "ghost" || re.Group != "" {
		t.Fatalf("wrong detail: %+v", re)
	}
}

func TestDeriveMissingGroup(t *testing.T) {
	users := []routeros.User{{Name: "ops", Group: "vanished"}}
	_, err := Derive("ops", users, nil)
	var re *ResolutionError
	if !errors.As(err, &re) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
	if re.Group != "vanished" {
		t.Fatalf("wrong detail: %+v", re)
	}
}
