package core

import (
	"context"
	"testing"
)

type stubAgent struct {
	id   string
	role Role
}

func (s stubAgent) ID() string             { return s.id }
func (s stubAgent) Role() Role             { return s.role }
func (s stubAgent) Capabilities() []string { return nil }
func (s stubAgent) Respond(context.Context, []Fragment, string) (Response, error) {
	return Response{}, nil
}

func TestNewSwarm_RoleInvariants(t *testing.T) {
	starter := stubAgent{"starter", RoleResponsible}
	admin := stubAgent{"admin", RoleAccountable}
	helper := stubAgent{"helper", RoleConsulted}

	s, err := NewSwarm("files", []string{"file-generation"}, starter, admin, helper)
	if err != nil {
		t.Fatal(err)
	}
	if s.Initializer().ID() != "starter" || s.Admin().ID() != "admin" {
		t.Errorf("role lookup wrong: init=%v admin=%v", s.Initializer(), s.Admin())
	}
	if !s.Claims("file-generation") || s.Claims("excel") {
		t.Error("capability claims wrong")
	}
	if s.Member("helper") == nil || s.Member("nobody") != nil {
		t.Error("member lookup wrong")
	}

	if _, err := NewSwarm("noadmin", nil, starter, helper); err == nil {
		t.Error("swarm without accountable member should be rejected")
	}
	if _, err := NewSwarm("twoinit", nil, starter, stubAgent{"starter2", RoleResponsible}, admin); err == nil {
		t.Error("swarm with two responsible members should be rejected")
	}
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{
		"responsible": RoleResponsible,
		"r":           RoleResponsible,
		"a":           RoleAccountable,
		"consulted":   RoleConsulted,
		"i":           RoleInformed,
	} {
		got, ok := ParseRole(in)
		if !ok || got != want {
			t.Errorf("ParseRole(%q) = %v, %v", in, got, ok)
		}
	}
	if _, ok := ParseRole("boss"); ok {
		t.Error("unknown role should not parse")
	}
}
