package aclkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHasAccess tests direct and group-inherited access resolution
func TestHasAccess(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	svc, ctx := h.GetService(), h.GetContext()

	t.Run("Direct permission", func(t *testing.T) {
		owner := h.CreateTestUser("owner")
		res := h.CreateTestResource("res", owner.ID)

		h.AssertHasAccess(owner.ID, res.ID)
	})

	t.Run("No permission means no access", func(t *testing.T) {
		owner := h.CreateTestUser("owner")
		stranger := h.CreateTestUser("stranger")
		res := h.CreateTestResource("res", owner.ID)

		h.AssertNoAccess(stranger.ID, res.ID)
	})

	t.Run("Inherited through group membership", func(t *testing.T) {
		owner := h.CreateTestUser("owner")
		member := h.CreateTestUser("member")
		res := h.CreateTestResource("res", owner.ID)
		group := h.CreateTestGroup("readers", member.ID)

		h.Grant(AroGroup, group.ID, res.ID, PermissionRead)

		h.AssertHasAccess(member.ID, res.ID)
	})

	t.Run("Leaving the group removes inherited access", func(t *testing.T) {
		owner := h.CreateTestUser("owner")
		manager := h.CreateTestUser("manager")
		member := h.CreateTestUser("member")
		res := h.CreateTestResource("res", owner.ID)
		group := h.CreateTestGroup("readers", manager.ID, member.ID)

		h.Grant(AroGroup, group.ID, res.ID, PermissionRead)
		h.AssertHasAccess(member.ID, res.ID)

		require.NoError(t, svc.RemoveGroupMember(ctx, group.ID, member.ID))
		h.AssertNoAccess(member.ID, res.ID)
	})

	t.Run("Soft-deleted resource is never accessible", func(t *testing.T) {
		owner := h.CreateTestUser("owner")
		res := h.CreateTestResource("res", owner.ID)

		require.NoError(t, svc.DeleteResource(ctx, owner.ID, res.ID))

		ok, err := svc.HasAccess(ctx, owner.ID, res.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Malformed ids are rejected", func(t *testing.T) {
		_, err := svc.HasAccess(ctx, "junk", NewID())
		assert.True(t, IsInvalidID(err))

		_, err = svc.HasAccess(ctx, NewID(), "junk")
		assert.True(t, IsInvalidID(err))
	})
}

// TestHighestPermissionType tests strongest-grant resolution
func TestHighestPermissionType(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	svc, ctx := h.GetService(), h.GetContext()

	t.Run("Direct grant wins when stronger", func(t *testing.T) {
		owner := h.CreateTestUser("owner")
		member := h.CreateTestUser("member")
		res := h.CreateTestResource("res", owner.ID)
		group := h.CreateTestGroup("readers", member.ID)

		h.Grant(AroGroup, group.ID, res.ID, PermissionRead)
		h.Grant(AroUser, member.ID, res.ID, PermissionUpdate)

		highest, err := svc.HighestPermissionType(ctx, member.ID, res.ID)
		require.NoError(t, err)
		assert.Equal(t, PermissionUpdate, highest)
	})

	t.Run("Group grant wins when stronger", func(t *testing.T) {
		owner := h.CreateTestUser("owner")
		member := h.CreateTestUser("member")
		res := h.CreateTestResource("res", owner.ID)
		group := h.CreateTestGroup("editors", member.ID)

		h.Grant(AroUser, member.ID, res.ID, PermissionRead)
		h.Grant(AroGroup, group.ID, res.ID, PermissionOwner)

		highest, err := svc.HighestPermissionType(ctx, member.ID, res.ID)
		require.NoError(t, err)
		assert.Equal(t, PermissionOwner, highest)
	})

	t.Run("Zero without any grant", func(t *testing.T) {
		owner := h.CreateTestUser("owner")
		stranger := h.CreateTestUser("stranger")
		res := h.CreateTestResource("res", owner.ID)

		highest, err := svc.HighestPermissionType(ctx, stranger.ID, res.ID)
		require.NoError(t, err)
		assert.Equal(t, PermissionType(0), highest)
	})
}

// TestFindUsersWithAccess tests the distinct holder union
func TestFindUsersWithAccess(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	svc, ctx := h.GetService(), h.GetContext()

	owner := h.CreateTestUser("owner")
	both := h.CreateTestUser("both")
	viaGroup := h.CreateTestUser("viagroup")
	outsider := h.CreateTestUser("outsider")
	res := h.CreateTestResource("res", owner.ID)
	group := h.CreateTestGroup("readers", both.ID, viaGroup.ID)

	h.Grant(AroGroup, group.ID, res.ID, PermissionRead)
	h.Grant(AroUser, both.ID, res.ID, PermissionUpdate)

	users, err := svc.FindUsersWithAccess(ctx, res.ID)
	require.NoError(t, err)

	ids := make(map[string]int)
	for _, u := range users {
		ids[u.ID]++
	}
	assert.Equal(t, 1, ids[owner.ID])
	assert.Equal(t, 1, ids[both.ID], "user reachable directly and via group appears once")
	assert.Equal(t, 1, ids[viaGroup.ID])
	assert.Equal(t, 0, ids[outsider.ID])
}

// TestFindResourcesExclusivelyOwnedBy tests the collapse set
func TestFindResourcesExclusivelyOwnedBy(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	svc, ctx := h.GetService(), h.GetContext()

	user := h.CreateTestUser("user")
	other := h.CreateTestUser("other")

	soloRes := h.CreateTestResource("solo", user.ID)
	sharedRes := h.CreateTestResource("shared", user.ID)
	h.Grant(AroUser, other.ID, sharedRes.ID, PermissionOwner)

	// A resource held only through a group the user is the sole member of
	// collapses too
	soleGroup := h.CreateTestGroup("solitary", user.ID)
	groupRes := h.CreateTestResource("viagroup", user.ID)
	h.Grant(AroGroup, soleGroup.ID, groupRes.ID, PermissionOwner)
	require.NoError(t, svc.Revoke(ctx, user.ID, groupRes.ID))

	ids, err := svc.FindResourcesExclusivelyOwnedBy(ctx, user.ID)
	require.NoError(t, err)
	assert.Contains(t, ids, soloRes.ID)
	assert.Contains(t, ids, groupRes.ID)
	assert.NotContains(t, ids, sharedRes.ID)
}
