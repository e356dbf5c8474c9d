package aclkit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSoftDeleteUserCascade tests the happy-path cascade
func TestSoftDeleteUserCascade(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	svc, ctx := h.GetService(), h.GetContext()

	t.Run("Exclusively held resources die with the user", func(t *testing.T) {
		user := h.CreateTestUser("user")
		res := h.CreateTestResource("solo", user.ID)

		require.NoError(t, svc.SoftDeleteUser(ctx, user.ID))

		h.AssertUserDeleted(user.ID)
		h.AssertResourceDeleted(res.ID)

		perms, err := svc.ListResourcePermissions(ctx, res.ID)
		assert.True(t, IsNotFound(err))
		assert.Nil(t, perms)
	})

	t.Run("Sole-member groups die with the user", func(t *testing.T) {
		user := h.CreateTestUser("user")
		group := h.CreateTestGroup("solitary", user.ID)

		require.NoError(t, svc.SoftDeleteUser(ctx, user.ID))

		var g Group
		err := svc.db.NewSelect().Model(&g).Where("g.id = ?", group.ID).Scan(ctx)
		require.NoError(t, err)
		assert.True(t, g.Deleted)
	})

	t.Run("Shared resources with another owner survive", func(t *testing.T) {
		user := h.CreateTestUser("user")
		coOwner := h.CreateTestUser("coowner")
		res := h.CreateTestResource("shared", user.ID)
		h.Grant(AroUser, coOwner.ID, res.ID, PermissionOwner)

		require.NoError(t, svc.SoftDeleteUser(ctx, user.ID))

		h.AssertUserDeleted(user.ID)
		h.AssertHasAccess(coOwner.ID, res.ID)

		// the deleted user's grant is gone
		perms, err := svc.ListResourcePermissions(ctx, res.ID)
		require.NoError(t, err)
		for _, p := range perms {
			assert.NotEqual(t, user.ID, p.AroForeignKey)
		}
	})

	t.Run("Secrets favorites and tags are purged", func(t *testing.T) {
		user := h.CreateTestUser("user")
		res := h.CreateTestResource("solo", user.ID)

		_, err := svc.SaveSecret(ctx, user.ID, res.ID, "cipher-text")
		require.NoError(t, err)
		_, err = svc.AddFavorite(ctx, user.ID, res.ID)
		require.NoError(t, err)
		_, err = svc.AddResourceTag(ctx, user.ID, res.ID, "personal")
		require.NoError(t, err)

		require.NoError(t, svc.SoftDeleteUser(ctx, user.ID))

		n, err := svc.countSecrets(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		favs, err := svc.ListFavorites(ctx, user.ID)
		require.NoError(t, err)
		assert.Empty(t, favs)
	})

	t.Run("Memberships are removed from surviving groups", func(t *testing.T) {
		user := h.CreateTestUser("user")
		manager := h.CreateTestUser("manager")
		group := h.CreateTestGroup("team", manager.ID, user.ID)

		require.NoError(t, svc.SoftDeleteUser(ctx, user.ID))

		members, err := svc.ListGroupMembers(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, manager.ID, members[0].UserID)
	})

	t.Run("Unknown user is NotFound", func(t *testing.T) {
		err := svc.SoftDeleteUser(ctx, NewID())
		assert.True(t, IsNotFound(err))
	})

	t.Run("Deleting twice is NotFound", func(t *testing.T) {
		user := h.CreateTestUser("user")
		require.NoError(t, svc.SoftDeleteUser(ctx, user.ID))

		err := svc.SoftDeleteUser(ctx, user.ID)
		assert.True(t, IsNotFound(err))
	})
}

// TestSoftDeleteUserVetoes tests the delete-time integrity rules
func TestSoftDeleteUserVetoes(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	svc, ctx := h.GetService(), h.GetContext()

	t.Run("Sole owner of a shared resource", func(t *testing.T) {
		user := h.CreateTestUser("user")
		reader := h.CreateTestUser("reader")
		res := h.CreateTestResource("shared", user.ID)
		h.Grant(AroUser, reader.ID, res.ID, PermissionRead)

		err := svc.SoftDeleteUser(ctx, user.ID)
		verr := AsValidationError(err)
		require.NotNil(t, verr)
		assert.True(t, verr.Has(RuleSoleOwnerOfSharedResource))

		// veto rolled everything back
		var u User
		require.NoError(t, svc.db.NewSelect().Model(&u).Where("u.id = ?", user.ID).Scan(ctx))
		assert.False(t, u.Deleted)
		h.AssertHasAccess(reader.ID, res.ID)
	})

	t.Run("Owner via sole-member group counts as sole owner", func(t *testing.T) {
		user := h.CreateTestUser("user")
		reader := h.CreateTestUser("reader")
		soleGroup := h.CreateTestGroup("solitary", user.ID)
		res := h.CreateTestResource("shared", user.ID)
		h.Grant(AroGroup, soleGroup.ID, res.ID, PermissionOwner)
		h.Grant(AroUser, reader.ID, res.ID, PermissionRead)
		require.NoError(t, svc.Revoke(ctx, user.ID, res.ID))

		err := svc.SoftDeleteUser(ctx, user.ID)
		verr := AsValidationError(err)
		require.NotNil(t, verr)
		assert.True(t, verr.Has(RuleSoleOwnerOfSharedResource))
	})

	t.Run("Sole manager of a non-empty group", func(t *testing.T) {
		user := h.CreateTestUser("user")
		member := h.CreateTestUser("member")
		h.CreateTestGroup("team", user.ID, member.ID)

		err := svc.SoftDeleteUser(ctx, user.ID)
		verr := AsValidationError(err)
		require.NotNil(t, verr)
		assert.True(t, verr.Has(RuleSoleManagerOfNonEmptyGroup))
	})

	t.Run("Sole manager of a group that solely owns a shared resource", func(t *testing.T) {
		user := h.CreateTestUser("user")
		member := h.CreateTestUser("member")
		reader := h.CreateTestUser("reader")
		group := h.CreateTestGroup("team", user.ID, member.ID)

		owner := h.CreateTestUser("creator")
		res := h.CreateTestResource("groupowned", owner.ID)
		h.Grant(AroGroup, group.ID, res.ID, PermissionOwner)
		h.Grant(AroUser, reader.ID, res.ID, PermissionRead)
		require.NoError(t, svc.Revoke(ctx, owner.ID, res.ID))

		err := svc.SoftDeleteUser(ctx, user.ID)
		verr := AsValidationError(err)
		require.NotNil(t, verr)
		assert.True(t, verr.Has(RuleSoleManagerOfNonEmptyGroup))
		assert.True(t, verr.Has(RuleSoleManagerOfGroupOwningSharedResource))
		assert.Len(t, verr.Tags, 2, "all failed rules are reported together")
	})

	t.Run("Another owner unblocks the deletion", func(t *testing.T) {
		user := h.CreateTestUser("user")
		reader := h.CreateTestUser("reader")
		coOwner := h.CreateTestUser("coowner")
		res := h.CreateTestResource("shared", user.ID)
		h.Grant(AroUser, reader.ID, res.ID, PermissionRead)
		h.Grant(AroUser, coOwner.ID, res.ID, PermissionOwner)

		require.NoError(t, svc.SoftDeleteUser(ctx, user.ID))
		h.AssertHasAccess(reader.ID, res.ID)
	})

	t.Run("Promoting a second manager unblocks the deletion", func(t *testing.T) {
		user := h.CreateTestUser("user")
		member := h.CreateTestUser("member")
		group := h.CreateTestGroup("team", user.ID, member.ID)

		require.NoError(t, svc.PromoteManager(ctx, group.ID, member.ID, true))
		require.NoError(t, svc.SoftDeleteUser(ctx, user.ID))

		members, err := svc.ListGroupMembers(ctx, group.ID)
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.True(t, members[0].IsAdmin)
	})

	t.Run("Concurrent deletion of both managers keeps one", func(t *testing.T) {
		admin1 := h.CreateTestUser("admin1")
		admin2 := h.CreateTestUser("admin2")
		member := h.CreateTestUser("member")
		group := h.CreateTestGroup("team", admin1.ID, admin2.ID, member.ID)
		require.NoError(t, svc.PromoteManager(ctx, group.ID, admin2.ID, true))

		errs := make(chan error, 2)
		var wg sync.WaitGroup
		for _, id := range []string{admin1.ID, admin2.ID} {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				errs <- svc.SoftDeleteUser(ctx, userID)
			}(id)
		}
		wg.Wait()
		close(errs)

		refused := 0
		for err := range errs {
			if err != nil {
				verr := AsValidationError(err)
				require.NotNil(t, verr)
				assert.True(t, verr.Has(RuleSoleManagerOfNonEmptyGroup))
				refused++
			}
		}
		assert.Equal(t, 1, refused, "the second deletion sees the first committed")

		members, err := svc.ListGroupMembers(ctx, group.ID)
		require.NoError(t, err)
		admins := 0
		for _, m := range members {
			if m.IsAdmin {
				admins++
			}
		}
		assert.Equal(t, 1, admins)
	})
}
