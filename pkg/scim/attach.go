package scim

import (
	"github.com/jinzhu/copier"
)

// AttachMemberIDs returns a deep copy of roles in which every member without a
// Value takes the ID of the user whose UserName equals the member's Display.
// Members that already carry a Value, and members matching no user (or a user
// without an ID), are copied unchanged. The inputs are not modified, and
// applying the function to its own output changes nothing.
func AttachMemberIDs(users []User, roles []Group) ([]Group, error) {
	out := make([]Group, 0, len(roles))
	if len(roles) == 0 {
		return out, nil
	}
	if err := copier.CopyWithOption(&out, &roles, copier.Option{DeepCopy: true}); err != nil {
		return nil, err
	}
	// copier allocates empty slices for nil ones
	for i := range roles {
		if roles[i].Schemas == nil {
			out[i].Schemas = nil
		}
		if roles[i].Members == nil {
			out[i].Members = nil
		}
	}

	ids := make(map[string]string, len(users))
	for _, u := range users {
		if u.ID == "" {
			continue
		}
		if _, seen := ids[u.UserName]; !seen {
			ids[u.UserName] = u.ID
		}
	}

	for i := range out {
		for j := range out[i].Members {
			m := &out[i].Members[j]
			if m.Value != "" {
				continue
			}
			if id, ok := ids[m.Display]; ok {
				m.Value = id
			}
		}
	}
	return out, nil
}

// UnresolvedMembers lists, per role display name, the members still lacking
// an ID.
func UnresolvedMembers(roles []Group) map[string][]string {
	missing := map[string][]string{}
	for _, r := range roles {
		for _, m := range r.Members {
			if m.Value == "" {
				missing[r.DisplayName] = append(missing[r.DisplayName], m.Display)
			}
		}
	}
	return missing
}
