package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/authportal/internal/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestCodec(t *testing.T, secret string) *Codec {
	t.Helper()
	c, err := NewCodec(secret)
	require.NoError(t, err)
	return c
}

func sampleSession() *domain.Session {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sess := domain.NewSession("3f1b6f0e-8d1c-4d3a-9a57-1f0f2b7d9c11", now)
	sess.Form = sess.Form.WithFields(domain.FormFields{
		Username:        "bob",
		Email:           "bob@example.com",
		Password:        "Passw0rd!",
		ConfirmPassword: "Passw0rd!",
	}).WithErrors(domain.ErrorMap{domain.FieldFirstName: "First Name is Required"})
	sess.Upstream = domain.Credentials{Cookies: []domain.Cookie{{Name: "access_token", Value: "abc"}}}
	sess.SetFlash(domain.FlashInfo, "hello")
	return sess
}

func TestCodec_RoundTrip(t *testing.T) {
	c := newTestCodec(t, testSecret)
	sess := sampleSession()

	data, err := c.Seal(sess)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "bob@example.com")

	got, err := c.Open(sess.ID, data)
	require.NoError(t, err)

	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "bob", got.Form.Fields.Username)
	assert.Equal(t, "bob@example.com", got.Form.Fields.Email)
	assert.Equal(t, sess.Form.Errors, got.Form.Errors)
	assert.Equal(t, sess.Upstream, got.Upstream)
	assert.Equal(t, sess.Flash, got.Flash)
	assert.True(t, sess.CreatedAt.Equal(got.CreatedAt))
}

func TestCodec_PasswordsAreNeverStored(t *testing.T) {
	c := newTestCodec(t, testSecret)
	sess := sampleSession()

	data, err := c.Seal(sess)
	require.NoError(t, err)
	got, err := c.Open(sess.ID, data)
	require.NoError(t, err)

	assert.Empty(t, got.Form.Fields.Password)
	assert.Empty(t, got.Form.Fields.ConfirmPassword)
	// The caller's copy is untouched
	assert.Equal(t, "Passw0rd!", sess.Form.Fields.Password)
}

func TestCodec_OpenFailures(t *testing.T) {
	c := newTestCodec(t, testSecret)
	sess := sampleSession()
	data, err := c.Seal(sess)
	require.NoError(t, err)

	t.Run("other id", func(t *testing.T) {
		_, err := c.Open("another-id", data)
		assert.ErrorIs(t, err, ErrTampered)
	})

	t.Run("other secret", func(t *testing.T) {
		other := newTestCodec(t, "fedcba9876543210fedcba9876543210")
		_, err := other.Open(sess.ID, data)
		assert.ErrorIs(t, err, ErrTampered)
	})

	t.Run("flipped byte", func(t *testing.T) {
		tampered := append([]byte(nil), data...)
		tampered[len(tampered)-1] ^= 0xff
		_, err := c.Open(sess.ID, tampered)
		assert.ErrorIs(t, err, ErrTampered)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := c.Open(sess.ID, data[:10])
		assert.ErrorIs(t, err, ErrTampered)
	})
}

func TestCodec_SameSecretSameKey(t *testing.T) {
	sess := sampleSession()
	data, err := newTestCodec(t, testSecret).Seal(sess)
	require.NoError(t, err)

	_, err = newTestCodec(t, testSecret).Open(sess.ID, data)
	assert.NoError(t, err)
}

func TestCodec_EmptySecretIsRandom(t *testing.T) {
	sess := sampleSession()
	data, err := newTestCodec(t, "").Seal(sess)
	require.NoError(t, err)

	_, err = newTestCodec(t, "").Open(sess.ID, data)
	assert.ErrorIs(t, err, ErrTampered)
}

func TestCodec_NonceIsFresh(t *testing.T) {
	c := newTestCodec(t, testSecret)
	sess := sampleSession()

	a, err := c.Seal(sess)
	require.NoError(t, err)
	b, err := c.Seal(sess)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}
