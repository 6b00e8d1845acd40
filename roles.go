package auth

// Role identifies one of the credential classes of the school platform.
// The string value is the wire value used in the `Rol` claim and the `Rol`
// query hint.
type Role string

const (
	RoleDirectivo              Role = "Directivo"
	RoleProfesorPrimaria       Role = "ProfesorPrimaria"
	RoleProfesorSecundaria     Role = "ProfesorSecundaria"
	RoleTutor                  Role = "Tutor"
	RoleAuxiliar               Role = "Auxiliar"
	RolePersonalAdministrativo Role = "PersonalAdministrativo"
	RoleResponsable            Role = "Responsable"
)

// RoleText holds the human readable names of a role.
type RoleText struct {
	Singular string
	Plural   string
}

var roleTexts = map[Role]RoleText{
	RoleDirectivo:              {Singular: "directivo", Plural: "directivos"},
	RoleProfesorPrimaria:       {Singular: "profesor de primaria", Plural: "profesores de primaria"},
	RoleProfesorSecundaria:     {Singular: "profesor de secundaria", Plural: "profesores de secundaria"},
	RoleTutor:                  {Singular: "tutor de secundaria", Plural: "tutores de secundaria"},
	RoleAuxiliar:               {Singular: "auxiliar", Plural: "auxiliares"},
	RolePersonalAdministrativo: {Singular: "personal administrativo", Plural: "personal administrativo"},
	RoleResponsable:            {Singular: "responsable", Plural: "responsables"},
}

var roleSlugs = map[Role]string{
	RoleDirectivo:              "directivo",
	RoleProfesorPrimaria:       "profesor-primaria",
	RoleProfesorSecundaria:     "profesor-secundaria",
	RoleTutor:                  "tutor",
	RoleAuxiliar:               "auxiliar",
	RolePersonalAdministrativo: "personal-administrativo",
	RoleResponsable:            "responsable",
}

// IsValid checks if the role is one of the seven known roles
func (r Role) IsValid() bool {
	_, ok := roleTexts[r]
	return ok
}

// Text returns the display names for the role
func (r Role) Text() RoleText {
	if t, ok := roleTexts[r]; ok {
		return t
	}
	return RoleText{Singular: string(r), Plural: string(r)}
}

// Slug returns the URL segment used by the login routes
func (r Role) Slug() string {
	return roleSlugs[r]
}

func (r Role) String() string {
	return string(r)
}

// AllRoles returns every known role in a stable order
func AllRoles() []Role {
	return []Role{
		RoleDirectivo,
		RoleProfesorPrimaria,
		RoleProfesorSecundaria,
		RoleTutor,
		RoleAuxiliar,
		RolePersonalAdministrativo,
		RoleResponsable,
	}
}

var rolesByName = func() map[string]Role {
	out := make(map[string]Role, len(roleTexts))
	for role := range roleTexts {
		out[string(role)] = role
	}
	return out
}()

// ParseRole safely parses a string into a Role. The returned Role is the
// package constant, it never shares memory with raw.
func ParseRole(raw string) (Role, bool) {
	role, ok := rolesByName[raw]
	return role, ok
}

// RoleFromSlug resolves a login route segment into its Role
func RoleFromSlug(slug string) (Role, bool) {
	for role, s := range roleSlugs {
		if s == slug {
			return role, true
		}
	}
	return "", false
}
