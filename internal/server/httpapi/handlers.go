package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/and161185/talentgate/internal/errs"
	"github.com/and161185/talentgate/internal/model"
	"github.com/and161185/talentgate/internal/service"
)

// AuthService is what the handlers need from the service layer.
type AuthService interface {
	TokenValidator
	Register(ctx context.Context, in service.RegisterInput) (model.AuthResult, error)
	Login(ctx context.Context, email, password, clientAddr string) (model.AuthResult, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	Logout(ctx context.Context, tok string) error
	RefreshToken(ctx context.Context, tok string) (string, error)
	DeactivateUser(ctx context.Context, id int64) error
	DeleteUserByEmail(ctx context.Context, email string) (model.PublicUser, error)
}

// Handler serves the /api/auth routes.
type Handler struct {
	svc      AuthService
	log      *zap.Logger
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(svc AuthService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log, validate: validator.New(validator.WithRequiredStructEnabled())}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.bind(w, r, &req) {
		return
	}
	res, err := h.svc.Register(r.Context(), service.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		RespondError(w, h.log, err)
		return
	}
	OK(w, http.StatusCreated, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.bind(w, r, &req) {
		return
	}
	res, err := h.svc.Login(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		RespondError(w, h.log, err)
		return
	}
	OK(w, http.StatusOK, res)
}

func (h *Handler) validateSession(w http.ResponseWriter, r *http.Request) {
	c, ok := ClaimsFromContext(r.Context())
	if !ok || c.UserID == 0 {
		Fail(w, http.StatusUnauthorized, MsgInvalidToken)
		return
	}
	u, err := h.svc.GetUserByID(r.Context(), c.UserID)
	if err != nil {
		// a valid token for a vanished account is still not a session
		if errors.Is(err, errs.ErrNotFound) {
			Fail(w, http.StatusUnauthorized, MsgInvalidToken)
			return
		}
		RespondError(w, h.log, err)
		return
	}
	OK(w, http.StatusOK, u)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	tok, _ := TokenFromContext(r.Context())
	if err := h.svc.Logout(r.Context(), tok); err != nil {
		RespondError(w, h.log, err)
		return
	}
	JSON(w, http.StatusOK, Envelope{Success: true, Message: "logged out"})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	tok, _ := TokenFromContext(r.Context())
	fresh, err := h.svc.RefreshToken(r.Context(), tok)
	if err != nil {
		RespondError(w, h.log, err)
		return
	}
	OK(w, http.StatusOK, tokenResponse{Token: fresh})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	email := chi.URLParam(r, "email")
	if err := h.validate.Var(email, "required,email"); err != nil {
		Fail(w, http.StatusBadRequest, "validation failed", "email must be a valid email address")
		return
	}
	if _, err := h.svc.DeleteUserByEmail(r.Context(), email); err != nil {
		RespondError(w, h.log, err)
		return
	}
	JSON(w, http.StatusOK, Envelope{Success: true, Message: "user deleted"})
}

func (h *Handler) deactivateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		Fail(w, http.StatusBadRequest, "validation failed", "id must be a positive integer")
		return
	}
	if err := h.svc.DeactivateUser(r.Context(), id); err != nil {
		RespondError(w, h.log, err)
		return
	}
	JSON(w, http.StatusOK, Envelope{Success: true, Message: "user deactivated"})
}

// bind decodes and validates the JSON body, writing a 400 on failure.
func (h *Handler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		Fail(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			Fail(w, http.StatusBadRequest, "validation failed")
			return false
		}
		details := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fieldMessage(fe))
		}
		h.log.Debug("request validation failed", zap.Strings("errors", details), zap.String("path", r.URL.Path))
		Fail(w, http.StatusBadRequest, "validation failed", details...)
		return false
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Email":
		return "please provide a valid email address"
	case "Password":
		return "password is required"
	case "FirstName":
		return "first name is required"
	case "LastName":
		return "last name is required"
	default:
		return fe.Error()
	}
}

// clientIP prefers the address set by middleware.RealIP and drops the port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
