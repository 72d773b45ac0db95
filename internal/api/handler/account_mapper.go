package handler

import (
	"github.com/storefront/identity-service/internal/core/domain"
	"github.com/storefront/identity-service/internal/core/ports"
)

// --- Request → Service input ---

func toSignupInput(req signupRequest) ports.SignupInput {
	in := ports.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Mobile:   req.Mobile,
		Role:     req.Role,
	}
	if req.Store != nil {
		in.Store = &domain.StoreInfo{
			StoreName:    req.Store.StoreName,
			TaxID:        req.Store.TaxID,
			BusinessType: req.Store.BusinessType,
		}
	}
	return in
}

func toCreateSellerInput(f createSellerForm, image *ports.ImageUpload) ports.CreateSellerInput {
	return ports.CreateSellerInput{
		Name:     f.Name,
		Email:    f.Email,
		Mobile:   f.Mobile,
		Password: f.Password,
		Store: domain.StoreInfo{
			StoreName:    f.StoreName,
			TaxID:        f.TaxID,
			BusinessType: f.BusinessType,
		},
		Image: image,
	}
}

// --- Service result → HTTP response ---

// toAccountResponse never copies the password hash or the OTP challenge.
func toAccountResponse(a *domain.Account) accountResponse {
	resp := accountResponse{
		ID:            a.ID,
		Name:          a.Name,
		Email:         a.Email,
		Mobile:        a.Mobile,
		Role:          string(a.Role),
		EmailVerified: a.EmailVerified,
		Active:        !a.Deactivated(),
		CreatedBy:     a.CreatedBy,
		CreatedAt:     a.CreatedAt.UTC(),
	}
	if a.ProfileImage != nil {
		resp.ProfileImage = &imageResponse{URL: a.ProfileImage.URL, PublicID: a.ProfileImage.PublicID}
	}
	if a.Seller != nil {
		resp.Seller = &sellerResponse{
			Status: string(a.Seller.Status),
			Store: storeResponse{
				StoreName:    a.Seller.Store.StoreName,
				TaxID:        a.Seller.Store.TaxID,
				BusinessType: a.Seller.Store.BusinessType,
			},
			ReviewedBy: a.Seller.ReviewedBy,
		}
		if a.Seller.ReviewedAt != nil {
			at := a.Seller.ReviewedAt.UTC()
			resp.Seller.ReviewedAt = &at
		}
	}
	return resp
}

func toAccountList(accounts []*domain.Account) []accountResponse {
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	return out
}
