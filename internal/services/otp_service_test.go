package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shorif2005/projectflow/internal/models"
)

func TestOTPServiceIssueAndValidate(t *testing.T) {
	db := openServiceTestDB(t)
	user := seedUser(t, db, "verifying")
	mailer := &recordingMailer{}

	current := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, err := NewOTPService(db, mailer, WithOTPClock(func() time.Time { return current }))
	require.NoError(t, err)

	require.NoError(t, svc.RequestVerification(context.Background(), user))

	var otp models.EmailOTP
	require.NoError(t, db.First(&otp, "user_id = ?", user.ID).Error)
	require.Len(t, otp.Code, 6)
	require.False(t, otp.Verified)

	sent := mailer.messages()
	require.Len(t, sent, 1)
	require.Contains(t, sent[0].Body, otp.Code)

	require.ErrorIs(t, svc.Validate(context.Background(), user.ID, "000000x"), ErrOTPInvalid)
	require.NoError(t, svc.Validate(context.Background(), user.ID, otp.Code))

	// A consumed code cannot be replayed.
	require.ErrorIs(t, svc.Validate(context.Background(), user.ID, otp.Code), ErrOTPInvalid)
}

func TestOTPServiceExpiry(t *testing.T) {
	db := openServiceTestDB(t)
	user := seedUser(t, db, "slowpoke")

	current := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	svc, err := NewOTPService(db, nil,
		WithOTPClock(func() time.Time { return current }),
		WithOTPExpiry(10*time.Minute),
	)
	require.NoError(t, err)

	require.NoError(t, svc.RequestVerification(context.Background(), user))

	var otp models.EmailOTP
	require.NoError(t, db.First(&otp, "user_id = ?", user.ID).Error)

	current = current.Add(11 * time.Minute)
	require.ErrorIs(t, svc.Validate(context.Background(), user.ID, otp.Code), ErrOTPExpired)
}

func TestOTPServiceReissueReplacesCode(t *testing.T) {
	db := openServiceTestDB(t)
	user := seedUser(t, db, "retrying")

	svc, err := NewOTPService(db, nil)
	require.NoError(t, err)

	require.NoError(t, svc.RequestVerification(context.Background(), user))
	var first models.EmailOTP
	require.NoError(t, db.First(&first, "user_id = ?", user.ID).Error)

	require.NoError(t, svc.RequestPasswordReset(context.Background(), user))

	var count int64
	require.NoError(t, db.Model(&models.EmailOTP{}).Where("user_id = ?", user.ID).Count(&count).Error)
	require.EqualValues(t, 1, count)

	var second models.EmailOTP
	require.NoError(t, db.First(&second, "user_id = ?", user.ID).Error)
	if second.Code != first.Code {
		require.ErrorIs(t, svc.Validate(context.Background(), user.ID, first.Code), ErrOTPInvalid)
	}
	require.NoError(t, svc.Validate(context.Background(), user.ID, second.Code))
}
