package api

// LoadRequest is the request body for the load endpoint.
type LoadRequest struct {
	URLs []string `json:"urls"`
}

// DocumentMetadata carries per-document metadata in the response.
type DocumentMetadata struct {
	Source string `json:"source"`
	Title  string `json:"title,omitempty"`
}

// DocumentResponse is a single loaded document in the response array.
// The field names match what Open WebUI's external loader expects.
type DocumentResponse struct {
	PageContent string           `json:"page_content"`
	Metadata    DocumentMetadata `json:"metadata"`
}
