package importer

import (
	"context"

	"github.com/tendant/wso2is-populate/pkg/errors"
	"github.com/tendant/wso2is-populate/pkg/scim"
	"github.com/tendant/wso2is-populate/pkg/soap"
)

// NewUser is the payload of addUser.
type NewUser struct {
	Name     string
	Password string
	Roles    []string
}

// UserStore creates users on the server.
type UserStore interface {
	AddUser(ctx context.Context, user NewUser) error
}

// RoleStore creates roles on the server. *scim.Client implements it.
type RoleStore interface {
	AddRole(ctx context.Context, role scim.Group) (*scim.Group, error)
}

// UserExistsClassifier recognises the duplicate-user fault of
// RemoteUserStoreManagerService.
var UserExistsClassifier errors.Classifier = errors.PatternClassifier{
	AlreadyExists: []string{"UserAlreadyExisting", "Username already exists in the system"},
}

var addUserTemplate = soap.MustParse("addUser", `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:ser="http://service.ws.um.carbon.wso2.org" xmlns:xsd="http://common.mgt.user.carbon.wso2.org/xsd">
   <soapenv:Header/>
   <soapenv:Body>
      <ser:addUser>
         <ser:userName>{{x .Name}}</ser:userName>
         <ser:credential>{{x .Password}}</ser:credential>
{{- range .Roles}}
         <ser:roleList>{{x .}}</ser:roleList>
{{- end}}
         <ser:profileName>default</ser:profileName>
         <ser:requirePasswordChange>false</ser:requirePasswordChange>
      </ser:addUser>
   </soapenv:Body>
</soapenv:Envelope>`)

// SOAPUserStore creates users through RemoteUserStoreManagerService.
type SOAPUserStore struct {
	client *soap.Client
}

// NewSOAPUserStore wraps a SOAP client.
func NewSOAPUserStore(client *soap.Client) *SOAPUserStore {
	return &SOAPUserStore{client: client}
}

func (s *SOAPUserStore) AddUser(ctx context.Context, user NewUser) error {
	_, err := s.client.RoundTrip(ctx, soap.ServiceUserStore, "addUser", addUserTemplate, user)
	return err
}
