package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAdminPolicyRoleSignal(t *testing.T) {
	policy := NewAdminPolicy(nil)

	admin := &User{Email: "ops@example.com", Role: RoleAdmin}
	regular := &User{Email: "user@example.com"}

	assert.True(t, policy.IsAdmin(admin))
	assert.False(t, policy.IsAdmin(regular))
}

func TestAdminPolicyAllowlistSignal(t *testing.T) {
	policy := NewAdminPolicy([]string{"Root@Example.com", "  ops@example.com "})

	assert.True(t, policy.IsAdminEmail("root@example.com"))
	assert.True(t, policy.IsAdminEmail("OPS@EXAMPLE.COM"))
	assert.False(t, policy.IsAdminEmail("user@example.com"))

	listed := &User{Email: "root@example.com"}
	assert.True(t, policy.IsAdmin(listed), "allowlisted email grants admin without the role")
}

func TestAdminPolicyNilUser(t *testing.T) {
	policy := NewAdminPolicy([]string{"root@example.com"})
	assert.False(t, policy.IsAdmin(nil))
}
