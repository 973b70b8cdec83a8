package domain

// ServiceAccountKey is the push project's service account, loaded once at startup.
type ServiceAccountKey struct {
	ClientEmail   string `json:"client_email" validate:"required,email"`
	PrivateKeyPEM string `json:"private_key" validate:"required"`
	ProjectID     string `json:"project_id" validate:"required"`
	TokenURI      string `json:"token_uri"`
}

// BearerToken is an OAuth2 access token for the push gateway. Never persisted.
type BearerToken struct {
	Value     string
	ExpiresAt int64 // epoch seconds
}
