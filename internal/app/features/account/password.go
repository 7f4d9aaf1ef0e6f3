// internal/app/features/account/password.go
package account

import (
	"context"
	"errors"
	"net/http"

	userstore "github.com/dalemusser/volunteerhub/internal/app/store/users"
	"github.com/dalemusser/volunteerhub/internal/app/system/inputval"
	"github.com/dalemusser/volunteerhub/internal/app/system/mailer"
	"github.com/dalemusser/volunteerhub/internal/app/system/normalize"
	"github.com/dalemusser/volunteerhub/internal/app/system/otp"
	"github.com/dalemusser/volunteerhub/internal/app/system/respond"
	"github.com/dalemusser/volunteerhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

const forgotMessage = "If an account exists for that email, a reset code has been sent."

type forgotInput struct {
	Email string `json:"email" validate:"required,emailaddr" label:"Email"`
}

type verifyInput struct {
	Email string `json:"email" validate:"required,emailaddr" label:"Email"`
	Code  string `json:"code" validate:"required,len=6,numeric" label:"Code"`
}

type resetInput struct {
	Email    string `json:"email" validate:"required,emailaddr" label:"Email"`
	Code     string `json:"code" validate:"required,len=6,numeric" label:"Code"`
	Password string `json:"password" validate:"required,min=8,max=128" label:"Password"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/forgot-password                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleForgotPassword emails a reset code. The response is the same
// whether or not the email belongs to an account.
func (h *Handler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in forgotInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	in.Email = normalize.Email(in.Email)
	if res := inputval.Validate(in); res.HasErrors() {
		respond.Error(w, http.StatusBadRequest, res.First())
		return
	}
	if h.Limiter != nil && !h.Limiter.AllowOTP(in.Email) {
		respond.Error(w, http.StatusTooManyRequests, "too many reset requests, please try again later")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.users.GetByEmail(ctx, in.Email); err != nil {
		if !errors.Is(err, userstore.ErrNotFound) {
			respond.ServerError(w, h.Log, "lookup user failed", err)
			return
		}
		respond.Message(w, forgotMessage)
		return
	}

	code, err := h.Codes.Issue(in.Email)
	if err != nil {
		respond.ServerError(w, h.Log, "issue reset code failed", err)
		return
	}
	mailer.SendAsync(h.Mail, h.Log, mailer.BuildPasswordResetEmail(in.Email, mailer.PasswordResetData{
		SiteName:  h.SiteName,
		Code:      code,
		ExpiresIn: formatExpiryDuration(h.Codes.Expiry()),
	}))
	h.Log.Info("password reset code issued", zap.String("email", in.Email))
	respond.Message(w, forgotMessage)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/verify-otp                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var in verifyInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	in.Email = normalize.Email(in.Email)
	if res := inputval.Validate(in); res.HasErrors() {
		respond.Error(w, http.StatusBadRequest, res.First())
		return
	}
	if err := h.Codes.Verify(in.Email, in.Code); err != nil {
		writeOTPError(w, err)
		return
	}
	respond.Message(w, "code verified")
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /auth/reset-password                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// HandleResetPassword checks the code once more, consumes it, and sets the
// new password.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in resetInput
	if err := respond.Decode(w, r, &in); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	in.Email = normalize.Email(in.Email)
	if res := inputval.Validate(in); res.HasErrors() {
		respond.Error(w, http.StatusBadRequest, res.First())
		return
	}
	if err := h.Codes.Verify(in.Email, in.Code); err != nil {
		writeOTPError(w, err)
		return
	}
	if err := h.Codes.Consume(in.Email); err != nil {
		writeOTPError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.users.SetPassword(ctx, in.Email, in.Password); err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "account not found")
			return
		}
		respond.ServerError(w, h.Log, "set password failed", err)
		return
	}
	h.Log.Info("password reset", zap.String("email", in.Email))
	respond.Message(w, "password updated")
}

func writeOTPError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, otp.ErrTooManyAttempts):
		respond.Error(w, http.StatusTooManyRequests, "too many attempts, request a new code")
	case errors.Is(err, otp.ErrInvalidCode):
		respond.Error(w, http.StatusBadRequest, "invalid code")
	case errors.Is(err, otp.ErrNotVerified):
		respond.Error(w, http.StatusBadRequest, "code not verified")
	default:
		respond.Error(w, http.StatusBadRequest, "code expired or not found")
	}
}
