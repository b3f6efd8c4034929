package dto

// RegisterForm is posted by the registration page.
type RegisterForm struct {
	Name            string `json:"name" form:"name"`
	Email           string `json:"email" form:"email"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// LoginForm is posted by the login page.
type LoginForm struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// ForgotPasswordForm requests a reset link.
type ForgotPasswordForm struct {
	Email string `json:"email" form:"email"`
}

// ResetPasswordQuery carries the link parameters of a reset e-mail.
type ResetPasswordQuery struct {
	Email string `query:"email"`
	Token string `query:"token"`
}

// ResetPasswordForm sets a new password with a reset token.
type ResetPasswordForm struct {
	Email           string `json:"email" form:"email"`
	Token           string `json:"token" form:"token"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password"`
}

// ProfileForm updates the signed-in user's profile.
type ProfileForm struct {
	Name string `json:"name" form:"name"`
}

// DeleteAccountForm confirms account deletion with the current password.
type DeleteAccountForm struct {
	Password string `json:"password" form:"password"`
}
