package enums

// UserRole separates storefront members from console admins.
type UserRole string

const (
	UserRoleMember UserRole = "member"
	UserRoleAdmin  UserRole = "admin"
)

func (u UserRole) String() string {
	return string(u)
}

func (u UserRole) IsValid() bool {
	return u == UserRoleMember || u == UserRoleAdmin
}
