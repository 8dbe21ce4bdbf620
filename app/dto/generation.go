package dto

type GeneratedImageResponse struct {
	URL      string `json:"url"`
	Provider string `json:"provider"`
}

type BulkItemResponse struct {
	Prompt string `json:"prompt"`
	URL    string `json:"url,omitempty"`
	Error  string `json:"error,omitempty"`
}

type BulkGenerateResponse struct {
	Items     []BulkItemResponse `json:"items"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
}
