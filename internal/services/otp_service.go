package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shorif2005/projectflow/internal/models"
	"github.com/shorif2005/projectflow/pkg/crypto"
	"github.com/shorif2005/projectflow/pkg/mail"
)

const (
	defaultOTPExpiry = 10 * time.Minute
	defaultOTPDigits = 6
)

var (
	// ErrOTPInvalid indicates the submitted code does not match the issued one.
	ErrOTPInvalid = errors.New("otp: invalid code")
	// ErrOTPExpired indicates the issued code is past its expiry.
	ErrOTPExpired = errors.New("otp: expired")
)

// OTPOption customises OTPService behaviour.
type OTPOption func(*OTPService)

// WithOTPExpiry overrides the code lifetime.
func WithOTPExpiry(d time.Duration) OTPOption {
	return func(s *OTPService) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// WithOTPDigits adjusts the number of digits in generated codes.
func WithOTPDigits(digits int) OTPOption {
	return func(s *OTPService) {
		if digits > 0 {
			s.digits = digits
		}
	}
}

// WithOTPClock injects a custom time source.
func WithOTPClock(clock func() time.Time) OTPOption {
	return func(s *OTPService) {
		if clock != nil {
			s.now = clock
		}
	}
}

// OTPService issues and validates short numeric codes sent over email, used
// for account verification and password resets. Each user holds at most one
// live code; reissuing replaces it.
type OTPService struct {
	db     *gorm.DB
	mailer mail.Mailer
	expiry time.Duration
	digits int
	now    func() time.Time
}

// NewOTPService constructs an OTPService with the provided dependencies.
func NewOTPService(db *gorm.DB, mailer mail.Mailer, opts ...OTPOption) (*OTPService, error) {
	if db == nil {
		return nil, errors.New("otp service: db is required")
	}

	service := &OTPService{
		db:     db,
		mailer: mailer,
		expiry: defaultOTPExpiry,
		digits: defaultOTPDigits,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(service)
	}

	return service, nil
}

// RequestVerification issues a fresh code for account activation and emails it.
func (s *OTPService) RequestVerification(ctx context.Context, user *models.User) error {
	return s.issue(ctx, user,
		"Verify your ProjectFlow account",
		"Hello %s,\n\nYour ProjectFlow verification code is %s. It expires in %s.\n")
}

// RequestPasswordReset issues a fresh code for a password reset and emails it.
func (s *OTPService) RequestPasswordReset(ctx context.Context, user *models.User) error {
	return s.issue(ctx, user,
		"Reset your ProjectFlow password",
		"Hello %s,\n\nYour ProjectFlow password reset code is %s. It expires in %s.\n")
}

func (s *OTPService) issue(ctx context.Context, user *models.User, subject, bodyFmt string) error {
	ctx = ensureContext(ctx)

	if user == nil || user.ID == "" {
		return errors.New("otp service: user is required")
	}

	code, err := crypto.GenerateNumericCode(s.digits)
	if err != nil {
		return fmt.Errorf("otp service: generate code: %w", err)
	}

	otp := models.EmailOTP{
		UserID:    user.ID,
		Code:      code,
		Verified:  false,
		ExpiresAt: s.now().Add(s.expiry),
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"code", "verified", "expires_at", "updated_at"}),
		}).
		Create(&otp).Error
	if err != nil {
		return fmt.Errorf("otp service: store code: %w", err)
	}

	if s.mailer != nil {
		message := mail.Message{
			To:      []string{user.Email},
			Subject: subject,
			Body:    fmt.Sprintf(bodyFmt, user.Username, code, s.expiry),
		}
		if mailErr := s.mailer.Send(ctx, message); mailErr != nil && !errors.Is(mailErr, mail.ErrSMTPDisabled) {
			return fmt.Errorf("otp service: send email: %w", mailErr)
		}
	}

	return nil
}

// Validate checks the submitted code for the user and consumes it on success.
func (s *OTPService) Validate(ctx context.Context, userID, code string) error {
	ctx = ensureContext(ctx)

	code = strings.TrimSpace(code)
	if code == "" {
		return ErrOTPInvalid
	}

	var otp models.EmailOTP
	err := s.db.WithContext(ctx).First(&otp, "user_id = ?", strings.TrimSpace(userID)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOTPInvalid
	}
	if err != nil {
		return fmt.Errorf("otp service: load code: %w", err)
	}

	if otp.Verified {
		return ErrOTPInvalid
	}
	if subtle.ConstantTimeCompare([]byte(otp.Code), []byte(code)) != 1 {
		return ErrOTPInvalid
	}
	if s.now().After(otp.ExpiresAt) {
		return ErrOTPExpired
	}

	err = s.db.WithContext(ctx).Model(&otp).Update("verified", true).Error
	if err != nil {
		return fmt.Errorf("otp service: consume code: %w", err)
	}
	return nil
}
