// Package roles holds the static role ranking and permission table used for
// every authorization decision.
package roles

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type Role string

const (
	User        Role = "user"
	Staff       Role = "staff"
	Facilitator Role = "facilitator"
	Admin       Role = "admin"
	SuperAdmin  Role = "super_admin"
)

// All lists the roles from lowest to highest rank.
var All = []Role{User, Staff, Facilitator, Admin, SuperAdmin}

var rank = map[Role]int{
	User:        1,
	Staff:       2,
	Facilitator: 3,
	Admin:       4,
	SuperAdmin:  5,
}

type Permission string

const (
	ViewDashboard       Permission = "view_dashboard"
	ViewUsers           Permission = "view_users"
	ManageUsers         Permission = "manage_users"
	ManageRoles         Permission = "manage_roles"
	ManageCourses       Permission = "manage_courses"
	ManageCategories    Permission = "manage_categories"
	ManageTracks        Permission = "manage_tracks"
	ManageAnnouncements Permission = "manage_announcements"
	SendNotifications   Permission = "send_notifications"
	ViewAuditLogs       Permission = "view_audit_logs"
	UploadMedia         Permission = "upload_media"
	ManageOrders        Permission = "manage_orders"
)

// Permissions is a set of granted permissions.
type Permissions map[Permission]bool

var table = map[Role]Permissions{
	User: {},
	Staff: {
		ViewDashboard:       true,
		ViewUsers:           true,
		ManageAnnouncements: true,
		SendNotifications:   true,
	},
	Facilitator: {
		ViewDashboard:       true,
		ViewUsers:           true,
		ManageAnnouncements: true,
		SendNotifications:   true,
		ManageCourses:       true,
		UploadMedia:         true,
	},
	Admin: {
		ViewDashboard:       true,
		ViewUsers:           true,
		ManageAnnouncements: true,
		SendNotifications:   true,
		ManageCourses:       true,
		UploadMedia:         true,
		ManageUsers:         true,
		ManageCategories:    true,
		ManageTracks:        true,
		ManageOrders:        true,
		ViewAuditLogs:       true,
	},
	SuperAdmin: {
		ViewDashboard:       true,
		ViewUsers:           true,
		ManageAnnouncements: true,
		SendNotifications:   true,
		ManageCourses:       true,
		UploadMedia:         true,
		ManageUsers:         true,
		ManageCategories:    true,
		ManageTracks:        true,
		ManageOrders:        true,
		ViewAuditLogs:       true,
		ManageRoles:         true,
	},
}

// Parse returns the role named s. Unknown names yield an invalid role.
func Parse(s string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := rank[r]; !ok {
		return ""
	}
	return r
}

func (r Role) Valid() bool {
	_, ok := rank[r]
	return ok
}

// Rank is 0 for invalid roles.
func (r Role) Rank() int {
	return rank[r]
}

func (r Role) AtLeast(other Role) bool {
	return r.Valid() && r.Rank() >= other.Rank()
}

func (r Role) IsStaff() bool {
	return r.AtLeast(Staff)
}

// Permissions returns a copy of the role's row in the permission table.
func (r Role) Permissions() Permissions {
	out := make(Permissions, len(table[r]))
	for p, ok := range table[r] {
		if ok {
			out[p] = true
		}
	}
	return out
}

func (r Role) Can(p Permission) bool {
	return table[r][p]
}

// next returns the role ranked directly above r, or r itself at the top.
func (r Role) next() Role {
	for i, x := range All {
		if x == r && i+1 < len(All) {
			return All[i+1]
		}
	}
	return r
}

// Effective merges per-user overrides into the role's permissions. An override
// may only grant what the role directly above holds, and may revoke anything.
func Effective(r Role, overrides Permissions) Permissions {
	out := r.Permissions()
	if !r.Valid() {
		return out
	}
	ceiling := table[r.next()]
	for p, granted := range overrides {
		switch {
		case !granted:
			delete(out, p)
		case ceiling[p]:
			out[p] = true
		}
	}
	return out
}

// CanManage reports whether actor may edit or delete an account holding target.
func CanManage(actor, target Role) bool {
	if actor == SuperAdmin {
		return true
	}
	return actor.Valid() && actor.Rank() > target.Rank()
}

// CanAssign reports whether actor may give role r to someone.
func CanAssign(actor, r Role) bool {
	if !r.Valid() {
		return false
	}
	if actor == SuperAdmin {
		return true
	}
	return actor.Valid() && actor.Rank() > r.Rank()
}

// Highest picks the highest-ranked valid role among names.
func Highest(names ...string) Role {
	var best Role
	for _, n := range names {
		if r := Parse(n); r.Rank() > best.Rank() {
			best = r
		}
	}
	return best
}

// List returns the permissions as a sorted slice.
func (p Permissions) List() []string {
	out := make([]string, 0, len(p))
	for k, ok := range p {
		if ok {
			out = append(out, string(k))
		}
	}
	sort.Strings(out)
	return out
}

// UnmarshalJSON accepts either "admin" or ["user","admin"].
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*r = Parse(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.New("role must be a string or an array of strings")
	}
	*r = Highest(list...)
	return nil
}

// UnmarshalBSONValue accepts the role stored as a string or as an array of strings.
func (r *Role) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.String:
		*r = Parse(raw.StringValue())
		return nil
	case bsontype.Array:
		values, err := raw.Array().Values()
		if err != nil {
			return errors.Wrap(err, "decoding role array")
		}
		names := make([]string, 0, len(values))
		for _, v := range values {
			if s, ok := v.StringValueOK(); ok {
				names = append(names, s)
			}
		}
		*r = Highest(names...)
		return nil
	case bsontype.Null, bsontype.Undefined:
		*r = ""
		return nil
	}
	return errors.Errorf("cannot decode role from bson %s", t)
}

// MarshalBSONValue always writes the role as a single string.
func (r Role) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(string(r))
}
