package domain

// User is the identity issued by the auth provider. It only exists while a
// session is active.
type User struct {
	ID          string
	Email       string
	DisplayName string
}

// Session binds an access token to the user it authorizes.
type Session struct {
	AccessToken          string
	AccessTokenExpiresIn int // seconds
	RefreshToken         string
	User                 *User
}

type AuthEvent string

const (
	AuthEventSignedIn       AuthEvent = "SIGNED_IN"
	AuthEventSignedOut      AuthEvent = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)
