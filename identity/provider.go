package identity

import "context"

// Provider is the hosted identity service the portal delegates authentication to.
type Provider interface {
	ExchangeCodeForSession(ctx context.Context, authCode, codeVerifier string) (*Session, error)
	VerifyOtp(ctx context.Context, tokenHash string, otpType OtpType) (*Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	GetUser(ctx context.Context, accessToken string) (*User, error)
	UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*User, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo, codeChallenge string) error
	SignOut(ctx context.Context, accessToken string) error
}
