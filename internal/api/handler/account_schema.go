package handler

import "time"

type storeRequest struct {
	StoreName    string `json:"storeName"    validate:"required,max=120"`
	TaxID        string `json:"taxId"        validate:"max=40"`
	BusinessType string `json:"businessType" validate:"max=60"`
}

type signupRequest struct {
	Name     string        `json:"name"     validate:"required,max=100"`
	Email    string        `json:"email"    validate:"required,email"`
	Password string        `json:"password" validate:"required,min=6,max=72"`
	Mobile   string        `json:"mobile"   validate:"omitempty,phone"`
	Role     string        `json:"role"`
	Store    *storeRequest `json:"store"    validate:"required_if=Role seller"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp"   validate:"required,len=6,numeric"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"       validate:"required,email"`
	OTP         string `json:"otp"         validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

// createSellerForm is bound from multipart/form-data; the profile image is
// read separately from the "profileImage" file field.
type createSellerForm struct {
	Name         string `form:"name"         validate:"required,max=100"`
	Email        string `form:"email"        validate:"required,email"`
	Password     string `form:"password"     validate:"omitempty,min=6,max=72"`
	Mobile       string `form:"mobile"       validate:"omitempty,phone"`
	StoreName    string `form:"storeName"    validate:"required,max=120"`
	TaxID        string `form:"taxId"        validate:"max=40"`
	BusinessType string `form:"businessType" validate:"max=60"`
}

type imageResponse struct {
	URL      string `json:"url"`
	PublicID string `json:"publicId"`
}

type storeResponse struct {
	StoreName    string `json:"storeName"`
	TaxID        string `json:"taxId,omitempty"`
	BusinessType string `json:"businessType,omitempty"`
}

type sellerResponse struct {
	Status     string        `json:"status"`
	Store      storeResponse `json:"store"`
	ReviewedBy string        `json:"reviewedBy,omitempty"`
	ReviewedAt *time.Time    `json:"reviewedAt,omitempty"`
}

// accountResponse is the only outward representation of an account.
type accountResponse struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Mobile        string          `json:"mobile,omitempty"`
	Role          string          `json:"role"`
	EmailVerified bool            `json:"emailVerified"`
	Active        bool            `json:"active"`
	ProfileImage  *imageResponse  `json:"profileImage,omitempty"`
	Seller        *sellerResponse `json:"seller,omitempty"`
	CreatedBy     string          `json:"createdBy,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

type signupResponse struct {
	Message   string          `json:"message"`
	EmailSent bool            `json:"emailSent"`
	Account   accountResponse `json:"account"`
}

type accountEnvelope struct {
	Message string          `json:"message,omitempty"`
	Account accountResponse `json:"account"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      accountResponse `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type sellerReviewResponse struct {
	Message   string          `json:"message"`
	EmailSent bool            `json:"emailSent"`
	Seller    accountResponse `json:"seller"`
}

type createSellerResponse struct {
	Message           string          `json:"message"`
	EmailSent         bool            `json:"emailSent"`
	PasswordGenerated bool            `json:"passwordGenerated"`
	Seller            accountResponse `json:"seller"`
}

type pendingSellersResponse struct {
	Count   int               `json:"count"`
	Sellers []accountResponse `json:"sellers"`
}

// errorBody documents the envelope rendered by the API error handler.
type errorBody struct {
	Error  string `json:"error"`
	Code   string `json:"code"`
	Detail string `json:"detail,omitempty"`
}
