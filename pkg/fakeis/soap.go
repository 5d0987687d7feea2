package fakeis

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/wso2is-populate/pkg/soap"
)

// Fault texts of the real services.
const (
	FaultApplicationExists = "Already an application available with the same name."
	FaultUserExists        = "UserAlreadyExisting:Username already exists in the system. Please pick another username."
	FaultOAuthAppExists    = "Error when adding the application. An application with the same name already exists."
)

type soapRequest struct {
	service string
	action  string
	body    []byte
}

// field returns the first text of the element with local name, or "".
func (q soapRequest) field(local string) string {
	all := q.fields(local)
	if len(all) == 0 {
		return ""
	}
	return all[0]
}

func (q soapRequest) fields(local string) []string {
	values, err := soap.FindElementText(q.body, local)
	if err != nil {
		return nil
	}
	return values
}

func writeFault(w http.ResponseWriter, fault string) {
	w.Header().Set("Content-Type", "text/xml;charset=UTF-8")
	w.WriteHeader(http.StatusInternalServerError)
	fmt.Fprintf(w, `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"><soapenv:Body><soapenv:Fault>`+
		`<faultcode>soapenv:Server</faultcode><faultstring>%s</faultstring><detail/>`+
		`</soapenv:Fault></soapenv:Body></soapenv:Envelope>`, soap.Escape(fault))
}

func writeSOAP(w http.ResponseWriter, inner string) {
	w.Header().Set("Content-Type", "text/xml;charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"><soapenv:Body>%s</soapenv:Body></soapenv:Envelope>`, inner)
}

func (s *Server) soap(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeFault(w, "could not read request")
		return
	}
	q := soapRequest{
		service: chi.URLParam(r, "service"),
		action:  strings.TrimPrefix(strings.Trim(r.Header.Get("SOAPAction"), `"`), "urn:"),
		body:    body,
	}

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "text/xml") {
		writeFault(w, "Unsupported content type")
		return
	}
	if !strings.Contains(r.Header.Get("Accept"), "xml") {
		// The real services crash answering JSON.
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	s.logger.Debug("fake SOAP call", "service", q.service, "action", q.action)

	s.mu.Lock()
	fault, injected := s.faults[q.action]
	s.mu.Unlock()
	if injected {
		writeFault(w, fault)
		return
	}

	switch q.service + "/" + q.action {
	case soap.ServiceApplicationManagement + "/deleteApplication":
		s.deleteApplication(w, q)
	case soap.ServiceApplicationManagement + "/createApplication":
		s.createApplication(w, q)
	case soap.ServiceApplicationManagement + "/getApplication":
		s.getApplication(w, q)
	case soap.ServiceApplicationManagement + "/updateApplication":
		s.updateApplication(w, q)
	case soap.ServiceOAuthAdmin + "/registerOAuthApplicationData":
		s.registerOAuthApplication(w, q)
	case soap.ServiceUserStore + "/addUser":
		s.addUser(w, q)
	default:
		writeFault(w, "The endpoint reference (EPR) for the Operation not found is /services/"+q.service+" and the WSA Action = urn:"+q.action)
	}
}

// deleteApplication also removes the OAuth registration linked through the
// inbound oauth2 key. A registration never linked stays behind.
func (s *Server) deleteApplication(w http.ResponseWriter, q soapRequest) {
	name := q.field("applicationName")

	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.providers[name]
	if !ok {
		writeFault(w, "Error while deleting application. Application "+name+" not found")
		return
	}
	if sp.OAuthKey != "" {
		delete(s.oauthApps, sp.OAuthKey)
	}
	delete(s.providers, name)
	writeSOAP(w, "")
}

func (s *Server) createApplication(w http.ResponseWriter, q soapRequest) {
	name := q.field("applicationName")
	if name == "" {
		writeFault(w, "Application name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.providers[name]; ok {
		writeFault(w, FaultApplicationExists)
		return
	}
	s.providers[name] = &ServiceProvider{ID: s.nextSPID, Name: name}
	s.nextSPID++
	writeSOAP(w, `<ns:createApplicationResponse xmlns:ns="http://org.apache.axis2/xsd"/>`)
}

func (s *Server) getApplication(w http.ResponseWriter, q soapRequest) {
	name := q.field("applicationName")

	s.mu.Lock()
	sp, ok := s.providers[name]
	var id int
	if ok {
		id = sp.ID
	}
	s.mu.Unlock()

	if !ok {
		writeSOAP(w, `<ns:getApplicationResponse xmlns:ns="http://org.apache.axis2/xsd"><ns:return xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:nil="true"/></ns:getApplicationResponse>`)
		return
	}
	// The model namespace prefix differs between server builds.
	writeSOAP(w, `<ns:getApplicationResponse xmlns:ns="http://org.apache.axis2/xsd" xmlns:ax2140="http://model.common.application.identity.carbon.wso2.org/xsd">`+
		`<ns:return><ax2140:applicationID>`+strconv.Itoa(id)+`</ax2140:applicationID>`+
		`<ax2140:applicationName>`+soap.Escape(name)+`</ax2140:applicationName></ns:return></ns:getApplicationResponse>`)
}

// updateApplication replaces the inbound configuration. An oauth2 config
// without an oauthConsumerSecret property clears the registration's secret.
func (s *Server) updateApplication(w http.ResponseWriter, q soapRequest) {
	idText := q.field("applicationID")
	name := q.field("applicationName")
	keys := q.fields("inboundAuthKey")
	types := q.fields("inboundAuthType")
	propNames := q.fields("name")
	propValues := q.fields("value")

	s.mu.Lock()
	defer s.mu.Unlock()
	sp, ok := s.providers[name]
	if !ok || strconv.Itoa(sp.ID) != idText {
		writeFault(w, "Error while updating application: "+name+". Application not found")
		return
	}

	sp.OAuthKey, sp.OpenIDKey = "", ""
	for i, typ := range types {
		if i >= len(keys) {
			break
		}
		switch typ {
		case "openid":
			sp.OpenIDKey = keys[i]
		case "oauth2":
			sp.OAuthKey = keys[i]
		}
	}

	if sp.OAuthKey != "" {
		app, ok := s.oauthApps[sp.OAuthKey]
		if !ok {
			writeFault(w, "Invalid OAuth client: "+sp.OAuthKey)
			return
		}
		app.Secret = ""
		for i, n := range propNames {
			if n == "oauthConsumerSecret" && i < len(propValues) {
				app.Secret = propValues[i]
			}
		}
	}
	writeSOAP(w, "")
}

func (s *Server) registerOAuthApplication(w http.ResponseWriter, q soapRequest) {
	app := OAuthApp{
		Name:       q.field("applicationName"),
		Key:        q.field("oauthConsumerKey"),
		Secret:     q.field("oauthConsumerSecret"),
		GrantTypes: q.field("grantTypes"),
	}
	if app.Name == "" || app.Key == "" {
		writeFault(w, "Application name and consumer key are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.oauthApps {
		if existing.Name == app.Name || existing.Key == app.Key {
			writeFault(w, FaultOAuthAppExists)
			return
		}
	}
	s.oauthApps[app.Key] = &app
	writeSOAP(w, "")
}

// addUser requires every role to exist, as the real user store does. The
// Application/<name> role exists once the service provider does.
func (s *Server) addUser(w http.ResponseWriter, q soapRequest) {
	name := q.field("userName")
	password := q.field("credential")
	roles := q.fields("roleList")
	if name == "" || password == "" {
		writeFault(w, "Username and credential are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[name]; ok {
		writeFault(w, FaultUserExists)
		return
	}
	for _, role := range roles {
		if !s.roleExistsLocked(role) {
			writeFault(w, "Error occurred while adding user: "+name+". Role "+role+" does not exist.")
			return
		}
	}
	s.users[name] = newUser(name, password, roles)
	writeSOAP(w, "")
}

func (s *Server) roleExistsLocked(role string) bool {
	if app, ok := strings.CutPrefix(role, "Application/"); ok {
		_, exists := s.providers[app]
		return exists
	}
	return s.groupByNameLocked(role) != nil
}
