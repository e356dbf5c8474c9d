package aclkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCreateGroup tests group creation rules
func TestCreateGroup(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	svc, ctx := h.GetService(), h.GetContext()

	t.Run("Creates with members and manager", func(t *testing.T) {
		manager := h.CreateTestUser("manager")
		member := h.CreateTestUser("member")

		group, err := svc.CreateGroup(ctx, "team-"+NewID(), []GroupMember{
			{UserID: manager.ID, IsAdmin: true},
			{UserID: member.ID},
		})
		require.NoError(t, err)

		members, err := svc.ListGroupMembers(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, members, 2)
		assert.True(t, members[0].IsAdmin, "managers are listed first")
	})

	t.Run("Refuses a group without any manager", func(t *testing.T) {
		member := h.CreateTestUser("member")
		_, err := svc.CreateGroup(ctx, "team-"+NewID(), []GroupMember{
			{UserID: member.ID},
		})
		assert.ErrorIs(t, err, ErrLastManager)
	})

	t.Run("Refuses an empty name", func(t *testing.T) {
		_, err := svc.CreateGroup(ctx, "   ", nil)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Refuses a duplicate name", func(t *testing.T) {
		manager := h.CreateTestUser("manager")
		name := "unique-" + NewID()
		_, err := svc.CreateGroup(ctx, name, []GroupMember{{UserID: manager.ID, IsAdmin: true}})
		require.NoError(t, err)

		_, err = svc.CreateGroup(ctx, name, []GroupMember{{UserID: manager.ID, IsAdmin: true}})
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("Refuses unknown members", func(t *testing.T) {
		_, err := svc.CreateGroup(ctx, "team-"+NewID(), []GroupMember{
			{UserID: NewID(), IsAdmin: true},
		})
		assert.True(t, IsNotFound(err))
	})
}

// TestGroupMembership tests add, remove and promote
func TestGroupMembership(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	svc, ctx := h.GetService(), h.GetContext()

	t.Run("Add and duplicate add", func(t *testing.T) {
		manager := h.CreateTestUser("manager")
		joiner := h.CreateTestUser("joiner")
		group := h.CreateTestGroup("team", manager.ID)

		require.NoError(t, svc.AddGroupMember(ctx, group.ID, joiner.ID, false))

		err := svc.AddGroupMember(ctx, group.ID, joiner.ID, false)
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("Removing the only manager of a non-empty group is refused", func(t *testing.T) {
		manager := h.CreateTestUser("manager")
		member := h.CreateTestUser("member")
		group := h.CreateTestGroup("team", manager.ID, member.ID)

		err := svc.RemoveGroupMember(ctx, group.ID, manager.ID)
		assert.ErrorIs(t, err, ErrLastManager)
	})

	t.Run("Demoting the only manager is refused", func(t *testing.T) {
		manager := h.CreateTestUser("manager")
		member := h.CreateTestUser("member")
		group := h.CreateTestGroup("team", manager.ID, member.ID)

		err := svc.PromoteManager(ctx, group.ID, manager.ID, false)
		assert.ErrorIs(t, err, ErrLastManager)
	})

	t.Run("Manager can leave once another is promoted", func(t *testing.T) {
		manager := h.CreateTestUser("manager")
		member := h.CreateTestUser("member")
		group := h.CreateTestGroup("team", manager.ID, member.ID)

		require.NoError(t, svc.PromoteManager(ctx, group.ID, member.ID, true))
		require.NoError(t, svc.RemoveGroupMember(ctx, group.ID, manager.ID))

		members, err := svc.ListGroupMembers(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, member.ID, members[0].UserID)
	})

	t.Run("Last member leaving deletes the group", func(t *testing.T) {
		manager := h.CreateTestUser("manager")
		group := h.CreateTestGroup("solitary", manager.ID)

		require.NoError(t, svc.RemoveGroupMember(ctx, group.ID, manager.ID))

		_, err := svc.ListGroupMembers(ctx, group.ID)
		assert.True(t, IsNotFound(err))
	})

	t.Run("Removing a non-member is NotFound", func(t *testing.T) {
		manager := h.CreateTestUser("manager")
		outsider := h.CreateTestUser("outsider")
		group := h.CreateTestGroup("team", manager.ID)

		err := svc.RemoveGroupMember(ctx, group.ID, outsider.ID)
		assert.True(t, IsNotFound(err))
	})
}

// TestDeleteGroup tests the group deletion cascade and its veto
func TestDeleteGroup(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	svc, ctx := h.GetService(), h.GetContext()

	t.Run("Deletes group with its grants", func(t *testing.T) {
		owner := h.CreateTestUser("owner")
		member := h.CreateTestUser("member")
		res := h.CreateTestResource("res", owner.ID)
		group := h.CreateTestGroup("team", member.ID)
		h.Grant(AroGroup, group.ID, res.ID, PermissionRead)

		require.NoError(t, svc.DeleteGroup(ctx, group.ID))

		h.AssertNoAccess(member.ID, res.ID)
		_, err := svc.ListGroupMembers(ctx, group.ID)
		assert.True(t, IsNotFound(err))
	})

	t.Run("Resources only the group could reach die with it", func(t *testing.T) {
		owner := h.CreateTestUser("owner")
		member := h.CreateTestUser("member")
		res := h.CreateTestResource("res", owner.ID)
		group := h.CreateTestGroup("team", member.ID)
		h.Grant(AroGroup, group.ID, res.ID, PermissionOwner)
		require.NoError(t, svc.Revoke(ctx, owner.ID, res.ID))

		require.NoError(t, svc.DeleteGroup(ctx, group.ID))
		h.AssertResourceDeleted(res.ID)
	})

	t.Run("Refused while the group is the last owner of a shared resource", func(t *testing.T) {
		owner := h.CreateTestUser("owner")
		member := h.CreateTestUser("member")
		reader := h.CreateTestUser("reader")
		res := h.CreateTestResource("res", owner.ID)
		group := h.CreateTestGroup("team", member.ID)
		h.Grant(AroGroup, group.ID, res.ID, PermissionOwner)
		h.Grant(AroUser, reader.ID, res.ID, PermissionRead)
		require.NoError(t, svc.Revoke(ctx, owner.ID, res.ID))

		err := svc.DeleteGroup(ctx, group.ID)
		assert.ErrorIs(t, err, ErrLastOwner)

		h.AssertHasAccess(reader.ID, res.ID)
	})
}

// TestFindGroupsForUser tests the membership index
func TestFindGroupsForUser(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	svc, ctx := h.GetService(), h.GetContext()

	user := h.CreateTestUser("user")
	g1 := h.CreateTestGroup("alpha", user.ID)
	g2 := h.CreateTestGroup("beta", user.ID)
	require.NoError(t, svc.DeleteGroup(ctx, g2.ID))

	groups, err := svc.FindGroupsForUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, g1.ID, groups[0].ID)
}
