package models

// Session is the capability object produced by the identity layer after a
// user token verifies. Registries and the coordinator receive it by value
// instead of re-deriving identity from raw credentials.
type Session struct {
	UserID string
	Name   string
	Phone  string
	Avatar string
	Color  string
}

// AdminSession is the staff-side capability object; Role and Permissions
// come from the admin token claims.
type AdminSession struct {
	AdminID     string
	Username    string
	Role        string
	Permissions []string
}

func (s AdminSession) HasPermission(perm string) bool {
	for _, p := range s.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}
