package types

// ContactMessage represents the request body of the contact form.
type ContactMessage struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Message string `json:"message" binding:"required"`
}

// ContactReceipt is returned once a contact message was accepted. Form holds
// the reset form the client should render.
type ContactReceipt struct {
	Status string         `json:"status"`
	Form   ContactMessage `json:"form"`
}
