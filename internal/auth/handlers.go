package auth

import (
	"encoding/json"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/authstarter/backend/internal/errors"
	"github.com/authstarter/backend/internal/logger"
	"github.com/authstarter/backend/internal/metrics"
	"github.com/authstarter/backend/internal/ratelimit"
)

var (
	hasUpperRegex = regexp.MustCompile(`[A-Z]`)
	hasDigitRegex = regexp.MustCompile(`[0-9]`)
)

type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandlersConfig carries the route-layer policy knobs.
type HandlersConfig struct {
	// SecureCookies sets the Secure flag on auth cookies (production).
	SecureCookies bool
	// EchoResetToken includes the raw reset token in forgot-password
	// responses. Development convenience only; never set in production.
	EchoResetToken  bool
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// Handlers is the HTTP route layer: parse, rate-limit, validate, call the
// domain service, translate the result into a response and cookies.
type Handlers struct {
	svc      *Service
	limiter  ratelimit.Limiter
	validate *validator.Validate
	log      *logger.Logger
	metrics  *metrics.Metrics
	cfg      HandlersConfig
}

func NewHandlers(svc *Service, limiter ratelimit.Limiter, log *logger.Logger, m *metrics.Metrics, cfg HandlersConfig) *Handlers {
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = 5
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = 15 * time.Minute
	}
	if m == nil {
		m = metrics.New()
	}
	return &Handlers{
		svc:      svc,
		limiter:  limiter,
		validate: validator.New(),
		log:      log.WithComponent("auth"),
		metrics:  m,
		cfg:      cfg,
	}
}

// Register handles POST /api/auth/register.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) error {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequest("invalid request body")
	}

	if err := h.validateCredentials(&req); err != nil {
		return err
	}
	if err := validatePassword(req.Password); err != nil {
		return err
	}

	result, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	h.metrics.IncAuthEvent("register_success")

	setAuthCookies(w, result.AccessToken, result.RefreshToken, h.cfg.SecureCookies)
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusCreated, result)
	return nil
}

// Login handles POST /api/auth/login. The rate-limit gate runs before any
// validation or repository work.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) error {
	if err := h.checkLimit(r, "login"); err != nil {
		return err
	}

	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequest("invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.ValidationError("email and password are required")
	}

	result, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok && appErr.Code == apperrors.CodeInvalidCredentials {
			h.metrics.IncAuthEvent("login_failed")
		}
		return err
	}
	h.metrics.IncAuthEvent("login_success")

	setAuthCookies(w, result.AccessToken, result.RefreshToken, h.cfg.SecureCookies)
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, result)
	return nil
}

// Logout handles POST /api/auth/logout by expiring both cookies. It never
// fails: a client without a session just gets the same empty cookies back.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) error {
	clearAuthCookies(w, h.cfg.SecureCookies)
	h.log.AuthEvent(r.Context(), "logout_success")
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
	return nil
}

// Me handles GET /api/auth/me. A missing or invalid token is not an error
// here: the client just learns it is logged out, with a 200 and user null.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) error {
	requestID := apperrors.GetRequestID(r.Context())

	cookie, err := r.Cookie(AccessTokenCookie)
	if err != nil || cookie.Value == "" {
		apperrors.WriteJSON(w, requestID, http.StatusOK, map[string]any{"user": nil})
		return nil
	}

	user, err := h.svc.GetUserFromAccessToken(cookie.Value)
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok &&
			(appErr.HTTPStatus == http.StatusUnauthorized || appErr.HTTPStatus == http.StatusNotFound) {
			h.log.AuthEvent(r.Context(), "me_token_invalid_or_user_missing", map[string]interface{}{
				"code": appErr.Code,
			})
			apperrors.WriteJSON(w, requestID, http.StatusOK, map[string]any{"user": nil})
			return nil
		}
		return err
	}

	apperrors.WriteJSON(w, requestID, http.StatusOK, map[string]any{"user": user})
	return nil
}

// ForgotPassword handles POST /api/auth/forgot-password. The response is the
// same whether or not the account exists.
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) error {
	if err := h.checkLimit(r, "forgot-password"); err != nil {
		return err
	}

	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequest("invalid request body")
	}
	if err := h.validate.Struct(&req); err != nil {
		return apperrors.ValidationError("please enter a valid email address")
	}

	token, err := h.svc.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		return err
	}

	resp := map[string]any{
		"message": "If that email exists, a reset link has been sent.",
	}
	if token != "" && h.cfg.EchoResetToken {
		resp["resetToken"] = token
	}

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, resp)
	return nil
}

// ResetPassword handles POST /api/auth/reset-password with the opaque token
// from the emailed link.
func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) error {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return apperrors.BadRequest("invalid request body")
	}
	if req.Token == "" || req.Password == "" {
		return apperrors.ValidationError("token and password are required")
	}
	if err := validatePassword(req.Password); err != nil {
		return err
	}

	if err := h.svc.ResetPasswordWithToken(r.Context(), req.Token, req.Password); err != nil {
		return err
	}
	h.metrics.IncAuthEvent("password_reset_success")

	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, map[string]string{
		"message": "password updated successfully",
	})
	return nil
}

// Instrument wraps a route handler so failures surface as audit events:
// typed client failures as <action>_http_error, everything else as
// <action>_unexpected_error. The error itself still propagates to the
// response writer unchanged.
func (h *Handlers) Instrument(action string, next apperrors.Handler) apperrors.Handler {
	return func(w http.ResponseWriter, r *http.Request) error {
		err := next(w, r)
		if err == nil {
			return nil
		}

		if appErr, ok := err.(*apperrors.AppError); ok && appErr.Category == apperrors.CategoryClient {
			h.log.AuthEvent(r.Context(), action+"_http_error", map[string]interface{}{
				"code":   appErr.Code,
				"status": appErr.HTTPStatus,
			})
		} else {
			h.log.AuthEvent(r.Context(), action+"_unexpected_error", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return err
	}
}

// AdminStats handles GET /api/admin/stats. Admin-only counters view, routed
// behind RequireRole.
func (h *Handlers) AdminStats(w http.ResponseWriter, r *http.Request) error {
	apperrors.WriteJSON(w, apperrors.GetRequestID(r.Context()), http.StatusOK, map[string]any{
		"uptimeSeconds": int64(h.metrics.Uptime().Seconds()),
		"authEvents":    h.metrics.AuthEventCounts(),
	})
	return nil
}

// checkLimit applies the fixed-window gate for one action and emits the
// matching audit event when the caller is over the limit.
func (h *Handlers) checkLimit(r *http.Request, action string) error {
	res := h.limiter.Check(r.Context(), action+":"+clientIP(r), h.cfg.RateLimitMax, h.cfg.RateLimitWindow)
	if res.Allowed {
		return nil
	}

	h.metrics.IncAuthEvent("rate_limited")
	h.log.AuthEvent(r.Context(), strings.ReplaceAll(action, "-", "_")+"_rate_limited", map[string]interface{}{
		"ip": clientIP(r),
	})
	return apperrors.RateLimited(res.RetryAfterSeconds)
}

func (h *Handlers) validateCredentials(req *credentialsRequest) error {
	err := h.validate.Struct(req)
	if err == nil {
		return nil
	}

	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrs {
			if fe.Field() == "Email" && fe.Tag() == "email" {
				return apperrors.ValidationError("please enter a valid email address")
			}
		}
	}
	return apperrors.ValidationError("email and password are required")
}

// validatePassword enforces the registration/reset complexity rules.
func validatePassword(password string) error {
	if len(password) < 8 {
		return apperrors.ValidationError("password must be at least 8 characters")
	}
	if !hasUpperRegex.MatchString(password) {
		return apperrors.ValidationError("password must contain at least one capital letter")
	}
	if !hasDigitRegex.MatchString(password) {
		return apperrors.ValidationError("password must contain at least one number")
	}
	return nil
}

// clientIP extracts the caller address for rate-limit keys, honoring the
// usual proxy headers.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if idx := strings.IndexByte(fwd, ','); idx >= 0 {
			return strings.TrimSpace(fwd[:idx])
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
