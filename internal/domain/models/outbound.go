package models

// OutboundMessageRequest is a plain text message sent over WhatsApp.
type OutboundMessageRequest struct {
	To         string `json:"to"`
	Message    string `json:"message"`
	PreviewURL bool   `json:"preview_url"`
}
