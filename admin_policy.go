package auth

// allowlistPolicy grants admin when the stored role says so or when the
// normalized email is on the configured allowlist.
type allowlistPolicy struct {
	allowlist map[string]struct{}
}

var _ AdminPolicy = (*allowlistPolicy)(nil)

// NewAdminPolicy builds an AdminPolicy from the configured admin emails.
func NewAdminPolicy(adminEmails []string) AdminPolicy {
	allowlist := make(map[string]struct{}, len(adminEmails))
	for _, email := range adminEmails {
		if normalized := NormalizeEmail(email); normalized != "" {
			allowlist[normalized] = struct{}{}
		}
	}
	return &allowlistPolicy{allowlist: allowlist}
}

func (p *allowlistPolicy) IsAdmin(user *User) bool {
	if user == nil {
		return false
	}
	if user.Role == RoleAdmin {
		return true
	}
	return p.IsAdminEmail(user.Email)
}

func (p *allowlistPolicy) IsAdminEmail(email string) bool {
	_, ok := p.allowlist[NormalizeEmail(email)]
	return ok
}
