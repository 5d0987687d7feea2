package soap

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"text/template"

	"github.com/tendant/wso2is-populate/pkg/errors"
)

// Fault is a SOAP 1.1 fault, with the 1.2 reason text folded into String.
type Fault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
	Reason struct {
		Text string `xml:"Text"`
	} `xml:"Reason"`
}

type faultEnvelope struct {
	Body struct {
		Fault *Fault `xml:"Fault"`
	} `xml:"Body"`
}

// ParseFault extracts the fault from an error response body.
func ParseFault(body []byte) (*Fault, bool) {
	var env faultEnvelope
	if err := xml.Unmarshal(body, &env); err != nil || env.Body.Fault == nil {
		return nil, false
	}
	f := env.Body.Fault
	if f.String == "" {
		f.String = f.Reason.Text
	}
	f.String = strings.TrimSpace(f.String)
	return f, f.String != "" || f.Code != ""
}

// Template is a parsed envelope template. Interpolate values with {{x .Field}}
// so they are XML-escaped.
type Template struct {
	t *template.Template
}

var funcs = template.FuncMap{
	"x": Escape,
}

// MustParse parses an envelope template and panics on error. Use it for
// package-level templates only.
func MustParse(name, text string) Template {
	return Template{t: template.Must(template.New(name).Funcs(funcs).Option("missingkey=error").Parse(text))}
}

// Render executes the template.
func (t Template) Render(data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.t.Execute(&buf, data); err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeInternal, "render %s envelope", t.t.Name())
	}
	return buf.Bytes(), nil
}

// Escape returns s with XML special characters escaped.
func Escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// FindElementText returns the text content of every element whose local name
// is local, whatever its namespace prefix. The server picks prefixes like
// ax2140 per response, so prefixes cannot be matched literally.
func FindElementText(body []byte, local string) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var (
		found []string
		depth int
		text  strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeUnexpectedResponse, "malformed XML response")
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if depth > 0 {
				depth++
			} else if el.Name.Local == local {
				depth = 1
				text.Reset()
			}
		case xml.CharData:
			if depth > 0 {
				text.Write(el)
			}
		case xml.EndElement:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				found = append(found, strings.TrimSpace(text.String()))
			}
		}
	}
	return found, nil
}
