package auth

type UserType string
type OrgRole string

const (
	UserTypeSuperAdmin UserType = "SUPER_ADMIN"
	UserTypeOrgUser    UserType = "ORG_USER"

	OrgRoleAdmin    OrgRole = "ADMIN"
	OrgRoleOperator OrgRole = "OPERATOR"
)

// CurrentUser is the authenticated caller extracted from the bearer token.
// Field employees authenticate as ORG_USER/OPERATOR; identity and credential
// management live in the platform's account service, not here.
type CurrentUser struct {
	ID             int64
	UserType       UserType
	OrganizationID *int64 // nil for SUPER_ADMIN
	OrgRole        *OrgRole
}

const ContextUserKey = "currentUser"

func (cu CurrentUser) IsSuperAdmin() bool {
	return cu.UserType == UserTypeSuperAdmin
}

func (cu CurrentUser) IsOrgAdmin() bool {
	return cu.UserType == UserTypeOrgUser && cu.OrgRole != nil && *cu.OrgRole == OrgRoleAdmin
}

// OrgID returns the caller's organization id, or false for super-admins who
// are not bound to one.
func (cu CurrentUser) OrgID() (int64, bool) {
	if cu.OrganizationID == nil {
		return 0, false
	}
	return *cu.OrganizationID, true
}
