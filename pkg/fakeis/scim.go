package fakeis

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/wso2is-populate/pkg/scim"
)

type scimError struct {
	Schemas []string `json:"schemas"`
	Status  string   `json:"status"`
	Detail  string   `json:"detail"`
}

func newID() string {
	return uuid.NewString()
}

func scimFail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	render.Status(r, status)
	render.JSON(w, r, scimError{
		Schemas: []string{"urn:ietf:params:scim:api:messages:2.0:Error"},
		Status:  fmt.Sprint(status),
		Detail:  detail,
	})
}

// toSCIMUser renders a stored user.
func toSCIMUser(u *User) scim.User {
	return scim.User{Schemas: []string{scim.SchemaUser}, ID: u.ID, UserName: u.Name}
}

// scimGroupLocked renders a group with the users holding its role as members.
func (s *Server) scimGroupLocked(g *Group) scim.Group {
	out := scim.Group{Schemas: []string{scim.SchemaGroup}, ID: g.ID, DisplayName: g.DisplayName}
	for _, u := range s.sortedUsersLocked() {
		for _, role := range u.Roles {
			if role == g.DisplayName {
				out.Members = append(out.Members, scim.Member{Value: u.ID, Display: u.Name})
				break
			}
		}
	}
	return out
}

func (s *Server) sortedUsersLocked() []*User {
	list := make([]*User, 0, len(s.users))
	for _, u := range s.users {
		list = append(list, u)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

func (s *Server) userByIDLocked(id string) *User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *Server) groupByNameLocked(name string) *Group {
	for _, g := range s.groups {
		if g.DisplayName == name {
			return g
		}
	}
	return nil
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := scim.ListResponse[scim.User]{StartIndex: 1, Resources: []scim.User{}}
	for _, u := range s.sortedUsersLocked() {
		resp.Resources = append(resp.Resources, toSCIMUser(u))
	}
	s.mu.Unlock()

	resp.TotalResults = len(resp.Resources)
	resp.ItemsPerPage = len(resp.Resources)
	render.JSON(w, r, resp)
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var in scim.User
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.UserName == "" {
		scimFail(w, r, http.StatusBadRequest, "invalid user")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[in.UserName]; ok {
		scimFail(w, r, http.StatusConflict, "User with the name: "+in.UserName+" already exists in the system.")
		return
	}
	u := newUser(in.UserName, in.Password, nil)
	s.users[u.Name] = u

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toSCIMUser(u))
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByIDLocked(chi.URLParam(r, "id"))
	if u == nil {
		scimFail(w, r, http.StatusNotFound, "Specified resource (e.g., User) or endpoint does not exist.")
		return
	}
	render.JSON(w, r, toSCIMUser(u))
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.userByIDLocked(chi.URLParam(r, "id"))
	if u == nil {
		scimFail(w, r, http.StatusNotFound, "Specified resource (e.g., User) or endpoint does not exist.")
		return
	}
	delete(s.users, u.Name)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listGroups(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	groups := make([]*Group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].DisplayName < groups[j].DisplayName })

	resp := scim.ListResponse[scim.Group]{StartIndex: 1, Resources: []scim.Group{}}
	for _, g := range groups {
		resp.Resources = append(resp.Resources, s.scimGroupLocked(g))
	}
	s.mu.Unlock()

	resp.TotalResults = len(resp.Resources)
	resp.ItemsPerPage = len(resp.Resources)
	render.JSON(w, r, resp)
}

func (s *Server) createGroup(w http.ResponseWriter, r *http.Request) {
	var in scim.Group
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.DisplayName == "" {
		scimFail(w, r, http.StatusBadRequest, "invalid group")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.groupByNameLocked(in.DisplayName) != nil {
		scimFail(w, r, http.StatusConflict, "Group with name: PRIMARY/"+in.DisplayName+" already exists in the system.")
		return
	}
	g := &Group{ID: newID(), DisplayName: in.DisplayName}
	s.groups[g.ID] = g

	for _, m := range in.Members {
		if u := s.userByIDLocked(m.Value); u != nil {
			u.Roles = append(u.Roles, g.DisplayName)
		}
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, s.scimGroupLocked(g))
}

func (s *Server) getGroup(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[chi.URLParam(r, "id")]
	if !ok {
		scimFail(w, r, http.StatusNotFound, "Specified resource (e.g., Group) or endpoint does not exist.")
		return
	}
	render.JSON(w, r, s.scimGroupLocked(g))
}

func (s *Server) deleteGroup(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := chi.URLParam(r, "id")
	if _, ok := s.groups[id]; !ok {
		scimFail(w, r, http.StatusNotFound, "Specified resource (e.g., Group) or endpoint does not exist.")
		return
	}
	delete(s.groups, id)
	w.WriteHeader(http.StatusNoContent)
}
