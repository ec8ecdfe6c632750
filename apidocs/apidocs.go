// Package apidocs builds the base OpenAPI 3 document every service
// publishes. Paths are generated by an external tool and merged into the
// base; this package only owns the metadata and the bearer security scheme.
package apidocs

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/omnipulse/go-shared-kernel/config"
)

// OpenAPIVersion is the version of the OpenAPI specification the document
// follows.
const OpenAPIVersion = "3.0.1"

// SecuritySchemeName is the key of the JWT bearer scheme.
const SecuritySchemeName = "bearerAuth"

// Document is the subset of an OpenAPI document the kernel fills in.
type Document struct {
	OpenAPI    string                `json:"openapi" yaml:"openapi"`
	Info       Info                  `json:"info" yaml:"info"`
	Security   []map[string][]string `json:"security" yaml:"security"`
	Components Components            `json:"components" yaml:"components"`
	Paths      map[string]any        `json:"paths" yaml:"paths"`
}

type Info struct {
	Title       string  `json:"title" yaml:"title"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Version     string  `json:"version" yaml:"version"`
	Contact     Contact `json:"contact" yaml:"contact"`
	License     License `json:"license" yaml:"license"`
}

type Contact struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
}

type License struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url" yaml:"url"`
}

type Components struct {
	SecuritySchemes map[string]SecurityScheme `json:"securitySchemes" yaml:"securitySchemes"`
}

type SecurityScheme struct {
	Type         string `json:"type" yaml:"type"`
	Scheme       string `json:"scheme" yaml:"scheme"`
	BearerFormat string `json:"bearerFormat" yaml:"bearerFormat"`
}

// New returns the base document for cfg. Every operation requires the
// bearer scheme unless a path overrides it.
func New(cfg config.APIDocsConfig) *Document {
	return &Document{
		OpenAPI: OpenAPIVersion,
		Info: Info{
			Title:       cfg.Title,
			Description: cfg.Description,
			Version:     cfg.Version,
			Contact: Contact{
				Name:  cfg.ContactName,
				Email: cfg.ContactEmail,
				URL:   cfg.ContactURL,
			},
			License: License{
				Name: "Apache 2.0",
				URL:  "https://www.apache.org/licenses/LICENSE-2.0",
			},
		},
		Security: []map[string][]string{{SecuritySchemeName: {}}},
		Components: Components{
			SecuritySchemes: map[string]SecurityScheme{
				SecuritySchemeName: {Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
			},
		},
		Paths: map[string]any{},
	}
}

// JSON encodes the document.
func (d *Document) JSON() ([]byte, error) {
	return json.Marshal(d)
}

// YAML encodes the document.
func (d *Document) YAML() ([]byte, error) {
	return yaml.Marshal(d)
}
