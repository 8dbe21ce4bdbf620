package dto

type InitializePaymentResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code,omitempty"`
	Reference        string `json:"reference"`
}

type VerifyPaymentResponse struct {
	Success   bool   `json:"success"`
	Plan      string `json:"plan"`
	IsAnnual  bool   `json:"is_annual"`
	Reference string `json:"reference"`
}
