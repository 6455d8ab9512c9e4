// Package loader reads an OpenAPI 3.x document from a local path or an
// http(s) URL and builds the libopenapi v3 model. Non-3.x documents and
// documents without paths are rejected before any generation begins.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pb33f/libopenapi"
	"github.com/pb33f/libopenapi/datamodel"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"

	"github.com/kolah/probekit/internal/generr"
)

const fetchTimeout = 30 * time.Second

// Result holds the parsed document for the rest of the pipeline. The raw
// bytes are kept for the embedded-spec artifact and validation mode.
type Result struct {
	Document *libopenapi.DocumentModel[v3.Document]
	Version  string
	RawData  []byte
	Source   string
	Warnings []string
}

// Load reads source, which may be a filesystem path or an http(s) URL.
func Load(ctx context.Context, source string) (*Result, error) {
	if strings.TrimSpace(source) == "" {
		return nil, &generr.SpecParseError{Message: "spec location is empty"}
	}

	if isURL(source) {
		data, err := fetch(ctx, source)
		if err != nil {
			return nil, &generr.SpecParseError{Source: source, Message: "fetching spec", Cause: err}
		}
		return parse(data, source, nil)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, &generr.SpecParseError{Source: source, Message: "reading spec file", Cause: err}
	}

	absPath, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("resolving absolute path: %w", err)
	}
	config := &datamodel.DocumentConfiguration{
		BasePath:            filepath.Dir(absPath),
		AllowFileReferences: true,
	}
	return parse(data, source, config)
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func fetch(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func parse(data []byte, source string, config *datamodel.DocumentConfiguration) (*Result, error) {
	var doc libopenapi.Document
	var err error

	if config != nil {
		doc, err = libopenapi.NewDocumentWithConfiguration(data, config)
	} else {
		doc, err = libopenapi.NewDocument(data)
	}
	if err != nil {
		return nil, &generr.SpecParseError{Source: source, Message: "parsing OpenAPI document", Cause: err}
	}

	version := doc.GetVersion()
	if !strings.HasPrefix(version, "3.") {
		return nil, &generr.SpecParseError{
			Source:  source,
			Message: fmt.Sprintf("unsupported OpenAPI version %q (only 3.x supported)", version),
		}
	}

	model, err := doc.BuildV3Model()
	if err != nil {
		return nil, &generr.SpecParseError{Source: source, Message: "building OpenAPI model", Cause: err}
	}

	if model.Model.Paths == nil || model.Model.Paths.PathItems == nil || model.Model.Paths.PathItems.Len() == 0 {
		return nil, &generr.SpecParseError{Source: source, Message: "document declares no paths"}
	}

	result := &Result{
		Document: model,
		Version:  version,
		RawData:  data,
		Source:   source,
	}
	if strings.HasPrefix(version, "3.0") {
		result.Warnings = append(result.Warnings, "OpenAPI 3.0.x detected; some 3.1 features unavailable")
	}
	return result, nil
}
