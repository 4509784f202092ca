package customer

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/sanbank/core/internal/apierr"
)

// Handler exposes customer endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a customer HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type registerRequest struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	AccountType string `json:"account_type"`
}

type pinRequest struct {
	PIN        string `json:"pin"`
	CurrentPIN string `json:"current_pin"`
}

type kycRequest struct {
	Aadhaar string `json:"aadhaar"`
	PAN     string `json:"pan"`
	DOB     string `json:"dob"`
	Address string `json:"address"`
}

// Register handles customer onboarding for the authenticated subject.
func (h *Handler) Register(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	cust, account, err := h.service.Register(c.UserContext(), RegisterInput{UserID: uid, Email: req.Email, Name: req.Name, AccountKind: req.AccountType})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message":        "User registered successfully",
		"user_id":        cust.ID,
		"account_id":     account.ID,
		"account_number": account.Number,
		"account_type":   string(account.Kind),
	})
}

// SetPIN sets or changes the transaction PIN.
func (h *Handler) SetPIN(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req pinRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.service.SetPIN(c.UserContext(), uid, req.PIN, req.CurrentPIN); err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "message": "PIN set successfully!"})
}

// VerifyPIN checks a PIN and reports whether one is set.
func (h *Handler) VerifyPIN(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req pinRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	hasPIN, valid, err := h.service.VerifyPIN(c.UserContext(), uid, req.PIN)
	if err != nil {
		return mapError(err)
	}
	if !hasPIN {
		return c.Status(http.StatusOK).JSON(fiber.Map{"has_pin": false})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"has_pin": true, "valid": valid})
}

// PINStatus reports whether the caller has a PIN.
func (h *Handler) PINStatus(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	hasPIN, err := h.service.HasPIN(c.UserContext(), uid)
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"has_pin": hasPIN})
}

// KYC verifies the caller's identity documents.
func (h *Handler) KYC(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(string)
	var req kycRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	err := h.service.VerifyKYC(c.UserContext(), uid, KYCDocuments{Aadhaar: req.Aadhaar, PAN: req.PAN, DateOfBirth: req.DOB, Address: req.Address})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "KYC verified successfully! Your account is now fully verified.",
	})
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrCustomerNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrCustomerExists):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrPINMismatch):
		return fiber.NewError(http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInvalidEmail), errors.Is(err, ErrInvalidPIN), errors.Is(err, ErrKYCIncomplete),
		errors.Is(err, ErrInvalidAadhaar), errors.Is(err, ErrInvalidPAN):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return apierr.From(err)
	}
}
