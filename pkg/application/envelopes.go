package application

import "github.com/tendant/wso2is-populate/pkg/soap"

const (
	nsEnvelope   = `xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/"`
	nsAxis       = `xmlns:xsd="http://org.apache.axis2/xsd"`
	nsModel      = `xmlns:xsd1="http://model.common.application.identity.carbon.wso2.org/xsd"`
	nsOAuthModel = `xmlns:xsd1="http://dto.oauth.identity.carbon.wso2.org/xsd"`
)

// GrantTypes registered for the OAuth application.
const GrantTypes = "password refresh_token"

var deleteTemplate = soap.MustParse("deleteApplication", `<soapenv:Envelope `+nsEnvelope+` `+nsAxis+`>
   <soapenv:Header/>
   <soapenv:Body>
      <xsd:deleteApplication>
         <xsd:applicationName>{{x .Name}}</xsd:applicationName>
      </xsd:deleteApplication>
   </soapenv:Body>
</soapenv:Envelope>`)

var registerTemplate = soap.MustParse("registerOAuthApplicationData", `<soapenv:Envelope `+nsEnvelope+` `+nsAxis+` `+nsOAuthModel+`>
   <soapenv:Header/>
   <soapenv:Body>
      <xsd:registerOAuthApplicationData>
         <xsd:application>
            <xsd1:OAuthVersion>OAuth-2.0</xsd1:OAuthVersion>
            <xsd1:applicationName>{{x .Name}}</xsd1:applicationName>
            <xsd1:grantTypes>{{x .GrantTypes}}</xsd1:grantTypes>
            <xsd1:oauthConsumerKey>{{x .ClientKey}}</xsd1:oauthConsumerKey>
            <xsd1:oauthConsumerSecret>{{x .ClientSecret}}</xsd1:oauthConsumerSecret>
         </xsd:application>
      </xsd:registerOAuthApplicationData>
   </soapenv:Body>
</soapenv:Envelope>`)

var createTemplate = soap.MustParse("createApplication", `<soapenv:Envelope `+nsEnvelope+` `+nsAxis+` `+nsModel+`>
   <soapenv:Header/>
   <soapenv:Body>
      <xsd:createApplication>
         <xsd:serviceProvider>
            <xsd1:applicationName>{{x .Name}}</xsd1:applicationName>
         </xsd:serviceProvider>
      </xsd:createApplication>
   </soapenv:Body>
</soapenv:Envelope>`)

var getTemplate = soap.MustParse("getApplication", `<soapenv:Envelope `+nsEnvelope+` `+nsAxis+`>
   <soapenv:Header/>
   <soapenv:Body>
      <xsd:getApplication>
         <xsd:applicationName>{{x .Name}}</xsd:applicationName>
      </xsd:getApplication>
   </soapenv:Body>
</soapenv:Envelope>`)

// updateApplication replaces the whole service provider; anything omitted
// here, the consumer secret included, is cleared on the server.
var updateTemplate = soap.MustParse("updateApplication", `<soapenv:Envelope `+nsEnvelope+` `+nsAxis+` `+nsModel+`>
   <soapenv:Header/>
   <soapenv:Body>
      <xsd:updateApplication>
         <xsd:serviceProvider>
            <xsd1:applicationID>{{x .ID}}</xsd1:applicationID>
            <xsd1:applicationName>{{x .Name}}</xsd1:applicationName>
            <xsd1:inboundAuthenticationConfig>
               <xsd1:inboundAuthenticationRequestConfigs>
                  <xsd1:inboundAuthKey>{{x .Name}}</xsd1:inboundAuthKey>
                  <xsd1:inboundAuthType>openid</xsd1:inboundAuthType>
               </xsd1:inboundAuthenticationRequestConfigs>
               <xsd1:inboundAuthenticationRequestConfigs>
                  <xsd1:inboundAuthKey>{{x .ClientKey}}</xsd1:inboundAuthKey>
                  <xsd1:inboundAuthType>oauth2</xsd1:inboundAuthType>
                  <xsd1:properties>
                     <xsd1:advanced>false</xsd1:advanced>
                     <xsd1:confidential>false</xsd1:confidential>
                     <xsd1:defaultValue></xsd1:defaultValue>
                     <xsd1:description></xsd1:description>
                     <xsd1:displayName></xsd1:displayName>
                     <xsd1:name>oauthConsumerSecret</xsd1:name>
                     <xsd1:required>false</xsd1:required>
                     <xsd1:type></xsd1:type>
                     <xsd1:value>{{x .ClientSecret}}</xsd1:value>
                  </xsd1:properties>
               </xsd1:inboundAuthenticationRequestConfigs>
            </xsd1:inboundAuthenticationConfig>
         </xsd:serviceProvider>
      </xsd:updateApplication>
   </soapenv:Body>
</soapenv:Envelope>`)

type registerData struct {
	Application
	GrantTypes string
}
