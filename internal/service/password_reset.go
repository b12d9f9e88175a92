package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"net/url"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"market-backend/internal/metrics"
)

// ResetRequestMessage es la respuesta uniforme de RequestPasswordReset.
const ResetRequestMessage = "If the email is registered, a password reset link has been sent"

const resetTokenBytes = 32

type ResetRequestResult struct {
	Message string `json:"message"`
}

// RequestPasswordReset genera un token nuevo y notifica al usuario. La
// respuesta no revela si el email existe.
func (s *AuthService) RequestPasswordReset(ctx context.Context, emailAddr string) (ResetRequestResult, error) {
	generic := ResetRequestResult{Message: ResetRequestMessage}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return generic, nil
	}
	user, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return generic, nil
		}
		return ResetRequestResult{}, err
	}

	token, tokenHash, err := generateResetToken()
	if err != nil {
		return ResetRequestResult{}, err
	}
	expiresAt := s.now().Add(s.options.ResetTTL)
	if err := s.resets.Save(ctx, user.ID, tokenHash, expiresAt, s.now()); err != nil {
		return ResetRequestResult{}, err
	}
	metrics.RecordPasswordReset("requested")

	if s.sender == nil {
		return s.deliveryFailed(generic, user.ID, errors.New("email sender not configured"))
	}
	if err := s.sender.SendPasswordReset(ctx, user.Email, user.Name, s.resetURL(token), expiresAt); err != nil {
		return s.deliveryFailed(generic, user.ID, err)
	}
	return generic, nil
}

// ResetPassword canjea el token una sola vez y reemplaza la contraseña.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minNewPasswordLength {
		return ErrInvalidInput
	}
	if token == "" {
		return ErrInvalidOrExpiredToken
	}

	hash, err := s.hashPassword(newPassword)
	if err != nil {
		return err
	}
	userID, err := s.resets.Redeem(ctx, hashResetToken(token), s.now(), hash)
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredToken) {
			metrics.RecordPasswordReset("rejected")
		}
		return err
	}
	metrics.RecordPasswordReset("consumed")
	s.logger.Info("password reset completed", zap.String("user_id", userID))
	return nil
}

func (s *AuthService) deliveryFailed(generic ResetRequestResult, userID string, cause error) (ResetRequestResult, error) {
	metrics.RecordPasswordReset("delivery_failed")
	s.logger.Warn("send password reset failed", zap.Error(cause), zap.String("user_id", userID))
	if s.options.MaskDeliveryFailure {
		return generic, nil
	}
	return ResetRequestResult{}, ErrNotificationDeliveryFailed
}

func (s *AuthService) resetURL(token string) string {
	return s.options.FrontendURL + "/reset-password?token=" + url.QueryEscape(token)
}

func generateResetToken() (string, string, error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	token := base64.RawURLEncoding.EncodeToString(buf)
	return token, hashResetToken(token), nil
}

// Solo se persiste el digest; el token en claro viaja únicamente en el email.
func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
