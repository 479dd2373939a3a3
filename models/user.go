package models

// AppUser is the identity of the acting user as supplied by the auth
// provider. The core only ever consumes it; it is never written back.
type AppUser struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}
