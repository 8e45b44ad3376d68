package server

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"

	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPIYAML []byte

// openAPIJSON renders the embedded document as JSON.
func openAPIJSON() ([]byte, error) {
	var doc map[string]interface{}
	if err := yaml.Unmarshal(openAPIYAML, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse openapi document: %w", err)
	}
	return json.Marshal(doc)
}

type docsHandler struct {
	json []byte
}

func newDocsHandler() (*docsHandler, error) {
	data, err := openAPIJSON()
	if err != nil {
		return nil, err
	}
	return &docsHandler{json: data}, nil
}

func (d *docsHandler) serveYAML(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(openAPIYAML)
}

func (d *docsHandler) serveJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = w.Write(d.json)
}
