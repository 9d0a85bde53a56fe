package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleOwner      Role = "OWNER"
	RoleGC         Role = "GC"
	RoleContractor Role = "CONTRACTOR"
	RoleArchitect  Role = "ARCHITECT"
)

func ParseRole(raw string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "OWNER":
		return RoleOwner, nil
	case "GC":
		return RoleGC, nil
	case "CONTRACTOR":
		return RoleContractor, nil
	case "ARCHITECT":
		return RoleArchitect, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

type Principal struct {
	UserID uuid.UUID
	OrgID  uuid.UUID
	Role   Role
	Name   string
}

func (p Principal) IsOwner() bool      { return p.Role == RoleOwner }
func (p Principal) IsGC() bool         { return p.Role == RoleGC }
func (p Principal) IsContractor() bool { return p.Role == RoleContractor }
func (p Principal) IsArchitect() bool  { return p.Role == RoleArchitect }
