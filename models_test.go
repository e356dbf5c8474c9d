package aclkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPermissionType tests the permission type scale
func TestPermissionType(t *testing.T) {
	t.Run("IsValid accepts the defined scale", func(t *testing.T) {
		assert.True(t, PermissionRead.IsValid())
		assert.True(t, PermissionUpdate.IsValid())
		assert.True(t, PermissionOwner.IsValid())
	})

	t.Run("IsValid rejects everything else", func(t *testing.T) {
		assert.False(t, PermissionType(0).IsValid())
		assert.False(t, PermissionType(2).IsValid())
		assert.False(t, PermissionType(8).IsValid())
		assert.False(t, PermissionType(16).IsValid())
		assert.False(t, PermissionType(-1).IsValid())
	})

	t.Run("Stable integer encoding", func(t *testing.T) {
		assert.Equal(t, 1, int(PermissionRead))
		assert.Equal(t, 7, int(PermissionUpdate))
		assert.Equal(t, 15, int(PermissionOwner))
	})

	t.Run("Higher types imply lower capabilities", func(t *testing.T) {
		assert.True(t, PermissionOwner.Allows(PermissionRead))
		assert.True(t, PermissionOwner.Allows(PermissionUpdate))
		assert.True(t, PermissionOwner.Allows(PermissionOwner))
		assert.True(t, PermissionUpdate.Allows(PermissionRead))
		assert.True(t, PermissionRead.Allows(PermissionRead))
	})

	t.Run("Lower types never imply higher ones", func(t *testing.T) {
		assert.False(t, PermissionRead.Allows(PermissionUpdate))
		assert.False(t, PermissionRead.Allows(PermissionOwner))
		assert.False(t, PermissionUpdate.Allows(PermissionOwner))
	})

	t.Run("String names", func(t *testing.T) {
		assert.Equal(t, "read", PermissionRead.String())
		assert.Equal(t, "update", PermissionUpdate.String())
		assert.Equal(t, "owner", PermissionOwner.String())
		assert.Equal(t, "unknown", PermissionType(3).String())
	})
}

// TestAroKinds tests ARO kind validation
func TestAroKinds(t *testing.T) {
	assert.True(t, IsValidAro(AroUser))
	assert.True(t, IsValidAro(AroGroup))
	assert.False(t, IsValidAro("Resource"))
	assert.False(t, IsValidAro("user"))
	assert.False(t, IsValidAro(""))
}

// TestDisplayName tests ordering keys for share candidates
func TestDisplayName(t *testing.T) {
	u := User{Username: "ada@example.com", FirstName: "Ada", LastName: "Lovelace"}
	assert.Equal(t, "ada@example.com", u.DisplayName())

	g := Group{Name: "Accounting"}
	assert.Equal(t, "Accounting", g.DisplayName())
}

// TestNormalizeSlug tests tag slug normalization
func TestNormalizeSlug(t *testing.T) {
	assert.Equal(t, "alpha", NormalizeSlug("  Alpha "))
	assert.Equal(t, "two words", NormalizeSlug("Two Words"))
	assert.Equal(t, "", NormalizeSlug("   "))
}

// TestAuditEntryToModel tests conversion to the persisted model
func TestAuditEntryToModel(t *testing.T) {
	entry := AuditEntry{
		ActorID:        "actor123",
		Action:         AuditActionGranted,
		Aro:            AroUser,
		AroForeignKey:  "user456",
		AcoForeignKey:  "res789",
		PermissionType: PermissionUpdate,
		IPAddress:      "192.168.1.1",
		UserAgent:      "Mozilla/5.0",
		RequestID:      "req-123",
	}

	m := entry.ToModel()
	assert.Equal(t, "actor123", m.ActorID)
	assert.Equal(t, "granted", m.Action)
	assert.Equal(t, AroUser, m.Aro)
	assert.Equal(t, "user456", m.AroForeignKey)
	assert.Equal(t, "res789", m.AcoForeignKey)
	assert.Equal(t, PermissionUpdate, m.PermissionType)
	assert.Equal(t, "192.168.1.1", m.IPAddress)
	assert.Equal(t, "Mozilla/5.0", m.UserAgent)
	assert.Equal(t, "req-123", m.RequestID)
	assert.False(t, m.Timestamp.IsZero())
}

// TestIDs tests uuid helpers
func TestIDs(t *testing.T) {
	t.Run("NewID produces valid ids", func(t *testing.T) {
		id := NewID()
		assert.True(t, IsID(id))
		assert.NotEqual(t, id, NewID())
	})

	t.Run("IsID rejects junk", func(t *testing.T) {
		assert.False(t, IsID(""))
		assert.False(t, IsID("not-a-uuid"))
		assert.False(t, IsID("123"))
	})

	t.Run("validateID reports the field", func(t *testing.T) {
		err := validateID("junk", "user id")
		assert.Error(t, err)
		assert.True(t, IsInvalidID(err))
		assert.Contains(t, err.Error(), "user id")

		assert.NoError(t, validateID(NewID(), "user id"))
	})
}

// TestRoleNames tests role name validation
func TestRoleNames(t *testing.T) {
	assert.True(t, IsValidRoleName(RoleAdmin))
	assert.True(t, IsValidRoleName(RoleUser))
	assert.True(t, IsValidRoleName(RoleGuest))
	assert.False(t, IsValidRoleName("root"))
	assert.False(t, IsValidRoleName(""))
}
