package scim

// Entity is a SCIM2 resource collection.
type Entity string

const (
	EntityUsers  Entity = "Users"
	EntityGroups Entity = "Groups"
)

const (
	SchemaUser  = "urn:ietf:params:scim:schemas:core:2.0:User"
	SchemaGroup = "urn:ietf:params:scim:schemas:core:2.0:Group"
)

// User is the SCIM2 user resource, restricted to the fields we write or read.
type User struct {
	Schemas  []string `json:"schemas,omitempty"`
	ID       string   `json:"id,omitempty"`
	UserName string   `json:"userName"`
	Password string   `json:"password,omitempty"`
}

// Member references a user from a group. Value is the user's remote id and
// may be empty until the user exists.
type Member struct {
	Value   string `json:"value,omitempty"`
	Display string `json:"display,omitempty"`
}

// Group is the SCIM2 group resource; the server exposes roles this way.
type Group struct {
	Schemas     []string `json:"schemas,omitempty"`
	ID          string   `json:"id,omitempty"`
	DisplayName string   `json:"displayName"`
	Members     []Member `json:"members,omitempty"`
}

// ListResponse is the envelope of a collection GET.
type ListResponse[T any] struct {
	TotalResults int `json:"totalResults"`
	StartIndex   int `json:"startIndex"`
	ItemsPerPage int `json:"itemsPerPage"`
	Resources    []T `json:"Resources"`
}
