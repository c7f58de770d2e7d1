package http

// APIResponse is the envelope of every JSON API reply.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
	Errors  interface{} `json:"errors,omitempty"`
}

// FieldError describes one rejected request parameter.
type FieldError struct {
	Code    string                 `json:"code" example:"ERR_ONEOF"`
	Field   string                 `json:"field,omitempty" example:"category"`
	Message string                 `json:"message" example:"category must be one of: strategic, operational, economic"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
