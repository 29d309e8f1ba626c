package domain

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCredentials_Merge(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name  string
		start Credentials
		set   []*http.Cookie
		want  []Cookie
	}{
		{
			name: "adds new cookie",
			set:  []*http.Cookie{{Name: "session", Value: "abc"}},
			want: []Cookie{{Name: "session", Value: "abc"}},
		},
		{
			name:  "replaces by name",
			start: Credentials{Cookies: []Cookie{{Name: "session", Value: "old"}, {Name: "other", Value: "x"}}},
			set:   []*http.Cookie{{Name: "session", Value: "new"}},
			want:  []Cookie{{Name: "session", Value: "new"}, {Name: "other", Value: "x"}},
		},
		{
			name:  "negative max age deletes",
			start: Credentials{Cookies: []Cookie{{Name: "session", Value: "abc"}}},
			set:   []*http.Cookie{{Name: "session", Value: "", MaxAge: -1}},
			want:  []Cookie{},
		},
		{
			name:  "past expiry deletes",
			start: Credentials{Cookies: []Cookie{{Name: "session", Value: "abc"}}},
			set:   []*http.Cookie{{Name: "session", Value: "abc", Expires: now.Add(-time.Hour)}},
			want:  []Cookie{},
		},
		{
			name: "max age becomes expiry",
			set:  []*http.Cookie{{Name: "session", Value: "abc", MaxAge: 60}},
			want: []Cookie{{Name: "session", Value: "abc", Expires: now.Add(time.Minute)}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.start.Merge(tt.set, now)
			assert.Equal(t, tt.want, got.Cookies)
		})
	}
}

func TestCredentials_HTTPCookiesSkipsExpired(t *testing.T) {
	now := time.Now()
	c := Credentials{Cookies: []Cookie{
		{Name: "live", Value: "1", Expires: now.Add(time.Hour)},
		{Name: "dead", Value: "2", Expires: now.Add(-time.Hour)},
		{Name: "session", Value: "3"},
	}}

	got := c.HTTPCookies(now)

	assert.Len(t, got, 2)
	assert.Equal(t, "live", got[0].Name)
	assert.Equal(t, "session", got[1].Name)
}

func TestCredentials_Empty(t *testing.T) {
	assert.True(t, Credentials{}.Empty())
	assert.False(t, Credentials{AccessToken: "t"}.Empty())
	assert.False(t, Credentials{Cookies: []Cookie{{Name: "a", Value: "b"}}}.Empty())
}

func TestSession_TakeFlash(t *testing.T) {
	s := NewSession("id", time.Now())
	assert.Nil(t, s.TakeFlash())

	s.SetFlash(FlashSuccess, "done")
	f := s.TakeFlash()

	assert.Equal(t, &Flash{Type: FlashSuccess, Message: "done"}, f)
	assert.Nil(t, s.Flash)
	assert.False(t, s.LoggedIn)
	assert.Equal(t, ModeSignUp, s.Form.Mode)
}

func TestCodeForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{400, EINVALID},
		{422, EINVALID},
		{401, EUNAUTHORIZED},
		{403, EFORBIDDEN},
		{404, ENOTFOUND},
		{409, ECONFLICT},
		{429, ERATELIMIT},
		{500, EUNAVAILABLE},
		{503, EUNAVAILABLE},
		{418, EINTERNAL},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CodeForStatus(tt.status), "status %d", tt.status)
	}
}

func TestErrorMessage_HidesInternalDetails(t *testing.T) {
	err := Internal(assert.AnError, "authapi.login", "decode failed")

	assert.NotContains(t, ErrorMessage(err), "decode")
	assert.Equal(t, EINTERNAL, ErrorCode(err))
	assert.Equal(t, "authapi.login", ErrorOp(err))

	assert.Equal(t, "Bad input", ErrorMessage(Invalid("op", "Bad input")))
}
