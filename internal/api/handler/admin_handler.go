package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/storefront/identity-service/internal/api/metrics"
	"github.com/storefront/identity-service/internal/core/domain"
	"github.com/storefront/identity-service/internal/core/ports"
)

// DefaultMaxImageBytes caps the profile image upload.
const DefaultMaxImageBytes int64 = 5 << 20

const profileImageField = "profileImage"

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

// AdminHandler serves the /admin routes. Every route expects the Auth and
// RBAC(admin) middleware in front of it.
type AdminHandler struct {
	service       ports.AdminService
	maxImageBytes int64
}

func NewAdminHandler(service ports.AdminService, maxImageBytes int64) *AdminHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = DefaultMaxImageBytes
	}
	return &AdminHandler{service: service, maxImageBytes: maxImageBytes}
}

// CreateSeller provisions an approved seller.
//
// @Summary      Create seller
// @Description  Creates an active, verified, approved seller and emails the credentials. The password is generated when omitted.
// @Tags         admin
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        name          formData  string  true   "Display name"
// @Param        email         formData  string  true   "Email"
// @Param        password      formData  string  false  "Initial password"
// @Param        mobile        formData  string  false  "Mobile number"
// @Param        storeName     formData  string  true   "Store name"
// @Param        taxId         formData  string  false  "Tax id"
// @Param        businessType  formData  string  false  "Business type"
// @Param        profileImage  formData  file    false  "Profile image (jpeg, png, gif or webp, 5MB max)"
// @Success      201  {object}  createSellerResponse
// @Failure      400  {object}  errorBody
// @Failure      401  {object}  errorBody
// @Failure      403  {object}  errorBody
// @Router       /admin/create-seller [post]
func (h *AdminHandler) CreateSeller(c echo.Context) error {
	admin, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var form createSellerForm
	if err := bindAndValidate(c, &form); err != nil {
		return err
	}

	upload, closeFile, err := h.profileImage(c)
	if err != nil {
		return err
	}
	defer closeFile()

	res, err := h.service.CreateSeller(c.Request().Context(), *admin, toCreateSellerInput(form, upload))
	if err != nil {
		return err
	}

	metrics.AccountsCreatedTotal.WithLabelValues(string(domain.RoleSeller), "admin").Inc()
	metrics.NotificationsTotal.WithLabelValues("seller_created", metrics.SentLabel(res.EmailSent)).Inc()

	msg := "seller created successfully"
	if res.EmailSent {
		msg += " and credentials emailed"
	}
	return c.JSON(http.StatusCreated, createSellerResponse{
		Message:           msg,
		EmailSent:         res.EmailSent,
		PasswordGenerated: res.Generated,
		Seller:            toAccountResponse(res.Account),
	})
}

// ApproveSeller moves a pending seller to approved.
//
// @Summary      Approve seller
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Seller account id"
// @Success      200  {object}  sellerReviewResponse
// @Failure      404  {object}  errorBody
// @Failure      409  {object}  errorBody
// @Router       /admin/approve-seller/{id} [put]
func (h *AdminHandler) ApproveSeller(c echo.Context) error {
	return h.review(c, "approved", "seller_approved", h.service.ApproveSeller)
}

// RejectSeller moves a pending seller to rejected.
//
// @Summary      Reject seller
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Seller account id"
// @Success      200  {object}  sellerReviewResponse
// @Failure      404  {object}  errorBody
// @Failure      409  {object}  errorBody
// @Router       /admin/reject-seller/{id} [put]
func (h *AdminHandler) RejectSeller(c echo.Context) error {
	return h.review(c, "rejected", "seller_rejected", h.service.RejectSeller)
}

type reviewFunc func(ctx context.Context, admin domain.Identity, sellerID string) (*ports.ReviewResult, error)

func (h *AdminHandler) review(c echo.Context, verb, kind string, fn reviewFunc) error {
	admin, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	sellerID := strings.TrimSpace(c.Param("id"))
	if sellerID == "" {
		return fmt.Errorf("%w: seller id is required", domain.ErrInvalidInput)
	}

	res, err := fn(c.Request().Context(), *admin, sellerID)
	if err != nil {
		return err
	}
	metrics.NotificationsTotal.WithLabelValues(kind, metrics.SentLabel(res.EmailSent)).Inc()

	return c.JSON(http.StatusOK, sellerReviewResponse{
		Message:   "seller " + verb,
		EmailSent: res.EmailSent,
		Seller:    toAccountResponse(res.Account),
	})
}

// PendingSellers lists sellers waiting for review, newest first.
//
// @Summary      List pending sellers
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  pendingSellersResponse
// @Failure      401  {object}  errorBody
// @Failure      403  {object}  errorBody
// @Router       /admin/pending-sellers [get]
func (h *AdminHandler) PendingSellers(c echo.Context) error {
	admin, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	sellers, err := h.service.ListPendingSellers(c.Request().Context(), *admin)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pendingSellersResponse{Count: len(sellers), Sellers: toAccountList(sellers)})
}

// DeactivateAccount soft deletes an account.
//
// @Summary      Deactivate account
// @Tags         admin
// @Security     BearerAuth
// @Param        id   path  string  true  "Account id"
// @Success      204
// @Failure      400  {object}  errorBody
// @Failure      404  {object}  errorBody
// @Failure      409  {object}  errorBody
// @Router       /admin/accounts/{id} [delete]
func (h *AdminHandler) DeactivateAccount(c echo.Context) error {
	admin, err := ctxIdentity(c)
	if err != nil {
		return err
	}
	accountID := strings.TrimSpace(c.Param("id"))
	if accountID == "" {
		return fmt.Errorf("%w: account id is required", domain.ErrInvalidInput)
	}

	if err := h.service.DeactivateAccount(c.Request().Context(), *admin, accountID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// profileImage reads the optional image part. The returned close func is
// always safe to call.
func (h *AdminHandler) profileImage(c echo.Context) (*ports.ImageUpload, func(), error) {
	noop := func() {}

	fh, err := c.FormFile(profileImageField)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, echo.NewHTTPError(http.StatusBadRequest, "invalid profile image")
	}
	if fh.Size > h.maxImageBytes {
		return nil, noop, echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("profile image exceeds %d bytes", h.maxImageBytes))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, noop, echo.NewHTTPError(http.StatusBadRequest, "invalid profile image")
	}

	contentType, data, err := sniffImage(f)
	if err != nil {
		_ = f.Close()
		return nil, noop, err
	}

	return &ports.ImageUpload{
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
		Data:        data,
	}, func() { _ = f.Close() }, nil
}

// sniffImage detects the content type from the first bytes and rejects
// anything that is not an image. The returned reader replays those bytes.
func sniffImage(f multipart.File) (string, io.Reader, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, echo.NewHTTPError(http.StatusBadRequest, "invalid profile image")
	}
	head = head[:n]

	contentType := http.DetectContentType(head)
	if _, ok := allowedImageTypes[contentType]; !ok {
		return "", nil, echo.NewHTTPError(http.StatusUnsupportedMediaType, "only image files are allowed")
	}
	return contentType, io.MultiReader(bytes.NewReader(head), f), nil
}
