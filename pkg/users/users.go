package users

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tendant/wso2is-populate/pkg/errors"
)

// User is one record of the import file.
type User struct {
	Name     string   `yaml:"name" json:"name"`
	Password string   `yaml:"password" json:"password"`
	Roles    []string `yaml:"roles" json:"roles"`
}

// Format of an import file.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// record keeps pointers so a missing key can be told apart from an empty value.
type record struct {
	Name     *string   `yaml:"name" json:"name"`
	Password *string   `yaml:"password" json:"password"`
	Roles    *[]string `yaml:"roles" json:"roles"`
}

// FormatFromPath picks the format from the file extension; anything but
// .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// Load reads and validates the import file at path.
func Load(path string) ([]User, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeInvalidInput, "read users file %s", path)
	}
	users, err := Parse(data, FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("users file %s: %w", path, err)
	}
	return users, nil
}

// Parse decodes and validates a list of user records.
func Parse(data []byte, format Format) ([]User, error) {
	var records []record
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&records); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "could not decode users")
		}
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&records); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "could not decode users")
		}
	}
	return validate(records)
}

func validate(records []record) ([]User, error) {
	details := map[string]interface{}{}
	users := make([]User, 0, len(records))
	seen := make(map[string]int, len(records))
	var duplicates []string

	for i, r := range records {
		var missing []string
		if r.Name == nil || strings.TrimSpace(*r.Name) == "" {
			missing = append(missing, "name")
		}
		if r.Password == nil || *r.Password == "" {
			missing = append(missing, "password")
		}
		if r.Roles == nil {
			missing = append(missing, "roles")
		}
		if len(missing) > 0 {
			details[fmt.Sprintf("users[%d]", i)] = "missing " + strings.Join(missing, ", ")
			continue
		}

		u := User{Name: *r.Name, Password: *r.Password, Roles: *r.Roles}
		for _, role := range u.Roles {
			if strings.TrimSpace(role) == "" {
				details[fmt.Sprintf("users[%d].roles", i)] = "role names must not be empty"
			}
		}

		seen[u.Name]++
		if seen[u.Name] == 2 {
			duplicates = append(duplicates, u.Name)
		}
		users = append(users, u)
	}

	if len(duplicates) > 0 {
		sort.Strings(duplicates)
		details["duplicates"] = duplicates
	}
	if len(details) > 0 {
		return nil, errors.New(errors.ErrCodeValidationFailed, describe(details)).WithDetails(details)
	}
	return users, nil
}

func describe(details map[string]interface{}) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %v", k, details[k])
	}
	return "invalid users (" + strings.Join(parts, "; ") + ")"
}

// Names returns the user names in file order.
func Names(users []User) []string {
	names := make([]string, len(users))
	for i, u := range users {
		names[i] = u.Name
	}
	return names
}

// Find returns the user called name.
func Find(users []User, name string) (User, bool) {
	for _, u := range users {
		if u.Name == name {
			return u, true
		}
	}
	return User{}, false
}
