package auth

import (
	"fmt"
	"time"
)

// DefaultTokenTTL is the session length used when a role sets none
const DefaultTokenTTL = 5 * time.Hour

// RoleDescriptor is the static configuration of a role. Role specific
// behaviour lives here as data so a single dispatcher serves all roles.
type RoleDescriptor struct {
	Role          Role
	SigningSecret []byte
	TokenTTL      time.Duration
	Store         AccountStore
	// IsActive decides whether a found record may authenticate. Nil uses
	// ActiveRecord.Active.
	IsActive func(*ActiveRecord) bool
	// Structural is an extra business rule beyond being active, e.g. a
	// tutor must have a classroom. Nil means no extra rule.
	Structural func(*ActiveRecord) bool
	// StructuralMessage is reported when Structural fails
	StructuralMessage string
}

func (d RoleDescriptor) active(rec *ActiveRecord) bool {
	if rec == nil {
		return false
	}
	if d.IsActive != nil {
		return d.IsActive(rec)
	}
	return rec.Active
}

func (d RoleDescriptor) satisfiesStructure(rec *ActiveRecord) bool {
	if d.Structural == nil {
		return true
	}
	return d.Structural(rec)
}

// HasClassroom is the structural rule for tutors
func HasClassroom(rec *ActiveRecord) bool {
	return rec != nil && len(rec.ClassroomIDs) > 0
}

// AlwaysActive is used by roles whose records have no status column
func AlwaysActive(rec *ActiveRecord) bool {
	return rec != nil
}

// RoleTable holds exactly one descriptor per role
type RoleTable struct {
	descriptors map[Role]RoleDescriptor
}

// NewRoleTable validates that every known role has exactly one descriptor
// with a signing secret and a store.
func NewRoleTable(descriptors ...RoleDescriptor) (*RoleTable, error) {
	table := &RoleTable{descriptors: make(map[Role]RoleDescriptor, len(descriptors))}

	for _, d := range descriptors {
		if !d.Role.IsValid() {
			return nil, fmt.Errorf("role table: unknown role %q", d.Role)
		}
		if _, exists := table.descriptors[d.Role]; exists {
			return nil, fmt.Errorf("role table: %w: %s", ErrDuplicateRole, d.Role)
		}
		if len(d.SigningSecret) == 0 {
			return nil, fmt.Errorf("role table: empty signing secret for %s", d.Role)
		}
		if d.Store == nil {
			return nil, fmt.Errorf("role table: no store for %s", d.Role)
		}
		if d.TokenTTL <= 0 {
			d.TokenTTL = DefaultTokenTTL
		}
		table.descriptors[d.Role] = d
	}

	for _, role := range AllRoles() {
		if _, ok := table.descriptors[role]; !ok {
			return nil, fmt.Errorf("role table: %w: %s", ErrMissingRole, role)
		}
	}

	return table, nil
}

// Lookup returns the descriptor for role
func (t *RoleTable) Lookup(role Role) (RoleDescriptor, bool) {
	if t == nil {
		return RoleDescriptor{}, false
	}
	d, ok := t.descriptors[role]
	return d, ok
}

// DefaultDescriptor returns the descriptor for role with the behaviour of
// the school platform: tutors need a classroom, directors and guardians
// have no status column.
func DefaultDescriptor(role Role, secret []byte, ttl time.Duration, store AccountStore) RoleDescriptor {
	d := RoleDescriptor{
		Role:          role,
		SigningSecret: secret,
		TokenTTL:      ttl,
		Store:         store,
	}

	switch role {
	case RoleTutor:
		d.Structural = HasClassroom
		d.StructuralMessage = "El profesor no tiene un aula asignada como tutor"
	case RoleDirectivo, RoleResponsable:
		d.IsActive = AlwaysActive
	}

	return d
}
