package contact

import "errors"

var (
	// ErrInvalidMessage indicates a submission failing validation
	ErrInvalidMessage = errors.New("contact.invalid_message")

	// ErrSendFailed indicates the email provider rejected the message
	ErrSendFailed = errors.New("contact.send_failed")
)
