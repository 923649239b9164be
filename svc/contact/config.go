package contact

// Config holds the contact form delivery settings. Postmark tokens are
// optional so local development works without an email provider; an
// unconfigured form logs submissions instead of sending them.
type Config struct {
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN" envDefault:""`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN" envDefault:""`

	// SenderEmail is the verified address outbound mail is sent from.
	SenderEmail string `env:"CONTACT_SENDER_EMAIL" envDefault:""`

	// OwnerEmail receives the contact form submissions.
	OwnerEmail string `env:"CONTACT_OWNER_EMAIL" envDefault:""`
}

// Enabled reports whether Postmark delivery is configured.
func (c Config) Enabled() bool {
	return c.PostmarkServerToken != "" && c.SenderEmail != "" && c.OwnerEmail != ""
}
