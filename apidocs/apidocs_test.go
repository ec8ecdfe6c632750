package apidocs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/omnipulse/go-shared-kernel/config"
)

func TestNewFromDefaults(t *testing.T) {
	doc := New(config.Default().APIDocs)

	assert.Equal(t, "3.0.1", doc.OpenAPI)
	assert.Equal(t, "OmniPulse API", doc.Info.Title)
	assert.Equal(t, "Default API Description", doc.Info.Description)
	assert.Equal(t, "1.0.0", doc.Info.Version)
	assert.Equal(t, Contact{Name: "OmniPulse Team", Email: "tech@omnipulse.com", URL: "https://omnipulse.com"}, doc.Info.Contact)
	assert.Equal(t, "Apache 2.0", doc.Info.License.Name)
	assert.Equal(t, []map[string][]string{{"bearerAuth": {}}}, doc.Security)
	assert.Equal(t, SecurityScheme{Type: "http", Scheme: "bearer", BearerFormat: "JWT"},
		doc.Components.SecuritySchemes["bearerAuth"])
}

func TestJSON(t *testing.T) {
	b, err := New(config.APIDocsConfig{Title: "Users", Version: "2.1.0"}).JSON()
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))

	info := got["info"].(map[string]any)
	assert.Equal(t, "Users", info["title"])
	assert.NotContains(t, info, "description")
	assert.Equal(t, []any{map[string]any{"bearerAuth": []any{}}}, got["security"])

	schemes := got["components"].(map[string]any)["securitySchemes"].(map[string]any)
	assert.Equal(t, "JWT", schemes["bearerAuth"].(map[string]any)["bearerFormat"])
}

func TestYAML(t *testing.T) {
	b, err := New(config.Default().APIDocs).YAML()
	require.NoError(t, err)

	var got Document
	require.NoError(t, yaml.Unmarshal(b, &got))
	assert.Equal(t, "OmniPulse API", got.Info.Title)
	assert.Equal(t, "bearer", got.Components.SecuritySchemes[SecuritySchemeName].Scheme)
}
