package aclkit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestChecker tests the per-user capability view
func TestChecker(t *testing.T) {
	h := NewTestDataHelper(t)
	if h == nil {
		return
	}
	svc, ctx := h.GetService(), h.GetContext()

	owner := h.CreateTestUser("owner")
	editor := h.CreateTestUser("editor")
	viewer := h.CreateTestUser("viewer")
	outsider := h.CreateTestUser("outsider")
	res := h.CreateTestResource("res", owner.ID)
	h.Grant(AroUser, editor.ID, res.ID, PermissionUpdate)
	h.Grant(AroUser, viewer.ID, res.ID, PermissionRead)

	t.Run("Owner capabilities", func(t *testing.T) {
		c := svc.NewCheckerForUser(owner.ID)
		assert.True(t, c.HasAccess(ctx, res.ID))
		assert.True(t, c.CanRead(ctx, res.ID))
		assert.True(t, c.CanUpdate(ctx, res.ID))
		assert.True(t, c.IsOwner(ctx, res.ID))
	})

	t.Run("Editor capabilities", func(t *testing.T) {
		c := svc.NewCheckerForUser(editor.ID)
		assert.True(t, c.CanRead(ctx, res.ID))
		assert.True(t, c.CanUpdate(ctx, res.ID))
		assert.False(t, c.IsOwner(ctx, res.ID))
	})

	t.Run("Viewer capabilities", func(t *testing.T) {
		c := svc.NewCheckerForUser(viewer.ID)
		assert.True(t, c.CanRead(ctx, res.ID))
		assert.False(t, c.CanUpdate(ctx, res.ID))
		assert.False(t, c.IsOwner(ctx, res.ID))
	})

	t.Run("Outsider capabilities", func(t *testing.T) {
		c := svc.NewCheckerForUser(outsider.ID)
		assert.False(t, c.HasAccess(ctx, res.ID))
		assert.False(t, c.CanRead(ctx, res.ID))
	})

	t.Run("Inherited capabilities via group", func(t *testing.T) {
		member := h.CreateTestUser("member")
		group := h.CreateTestGroup("editors", member.ID)
		h.Grant(AroGroup, group.ID, res.ID, PermissionUpdate)

		c := svc.NewCheckerForUser(member.ID)
		assert.True(t, c.CanUpdate(ctx, res.ID))
		assert.False(t, c.IsOwner(ctx, res.ID))
	})
}
