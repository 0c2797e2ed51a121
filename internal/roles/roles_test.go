package roles

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func TestTableIsMonotonic(t *testing.T) {
	for i := 1; i < len(All); i++ {
		lower, higher := All[i-1], All[i]
		for p := range lower.Permissions() {
			assert.Truef(t, higher.Can(p), "%s lacks %s held by %s", higher, p, lower)
		}
	}
}

func TestParseAndRank(t *testing.T) {
	assert.Equal(t, Admin, Parse(" ADMIN "))
	assert.Equal(t, Role(""), Parse("root"))
	assert.Equal(t, 0, Parse("root").Rank())
	assert.True(t, Facilitator.AtLeast(Staff))
	assert.False(t, User.AtLeast(Staff))
	assert.False(t, Role("").AtLeast(""))
	assert.True(t, Staff.IsStaff())
	assert.False(t, User.IsStaff())
}

func TestCanManage(t *testing.T) {
	assert.True(t, CanManage(Admin, Facilitator))
	assert.False(t, CanManage(Admin, Admin))
	assert.False(t, CanManage(Staff, Admin))
	assert.True(t, CanManage(SuperAdmin, SuperAdmin))
	assert.False(t, CanManage(Role("bogus"), User))
}

func TestCanAssign(t *testing.T) {
	assert.True(t, CanAssign(Admin, Facilitator))
	assert.False(t, CanAssign(Admin, Admin))
	assert.False(t, CanAssign(Admin, SuperAdmin))
	assert.True(t, CanAssign(SuperAdmin, SuperAdmin))
	assert.False(t, CanAssign(SuperAdmin, Role("root")))
}

func TestEffectiveOverrides(t *testing.T) {
	perms := Effective(Staff, Permissions{
		ManageCourses: true,  // held by facilitator: grantable
		ManageRoles:   true,  // super_admin only: ignored
		ViewUsers:     false, // revoked
	})
	assert.True(t, perms[ManageCourses])
	assert.False(t, perms[ManageRoles])
	assert.False(t, perms[ViewUsers])
	assert.True(t, perms[SendNotifications])

	assert.Empty(t, Effective(Role(""), Permissions{ManageUsers: true}))
}

func TestRoleJSONAcceptsStringOrArray(t *testing.T) {
	var v struct {
		Role Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"role":"staff"}`), &v))
	assert.Equal(t, Staff, v.Role)

	require.NoError(t, json.Unmarshal([]byte(`{"role":["user","admin","staff"]}`), &v))
	assert.Equal(t, Admin, v.Role)

	assert.Error(t, json.Unmarshal([]byte(`{"role":42}`), &v))
}

func TestRoleBSONArrayIsWrittenBackAsString(t *testing.T) {
	type doc struct {
		Role Role `bson:"role"`
	}
	legacy, err := bson.Marshal(bson.M{"role": bson.A{"user", "facilitator"}})
	require.NoError(t, err)

	var d doc
	require.NoError(t, bson.Unmarshal(legacy, &d))
	assert.Equal(t, Facilitator, d.Role)

	out, err := bson.Marshal(d)
	require.NoError(t, err)
	var raw bson.M
	require.NoError(t, bson.Unmarshal(out, &raw))
	assert.Equal(t, "facilitator", raw["role"])
}

func TestPermissionsList(t *testing.T) {
	assert.Equal(t, []string{"manage_announcements", "send_notifications", "view_dashboard", "view_users"}, Staff.Permissions().List())
}
