package domain

import (
	"net/http"
	"time"
)

// FlashType determines how a notification is styled.
type FlashType string

const (
	FlashSuccess FlashType = "success"
	FlashError   FlashType = "error"
	FlashWarning FlashType = "warning"
	FlashInfo    FlashType = "info"
)

// Flash is a one-shot notification shown on the next render.
type Flash struct {
	Type    FlashType `json:"type"`
	Message string    `json:"message"`
}

// Cookie is an upstream cookie replayed on later upstream requests.
type Cookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitempty"`
}

// Expired reports whether the cookie has an expiry in the past.
func (c Cookie) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && !now.Before(c.Expires)
}

// Credentials is the upstream session material held for one browser.
type Credentials struct {
	Cookies     []Cookie `json:"cookies,omitempty"`
	AccessToken string   `json:"access_token,omitempty"`
}

// Empty reports whether no upstream credentials are held.
func (c Credentials) Empty() bool {
	return len(c.Cookies) == 0 && c.AccessToken == ""
}

// HTTPCookies returns the live cookies in net/http form.
func (c Credentials) HTTPCookies(now time.Time) []*http.Cookie {
	out := make([]*http.Cookie, 0, len(c.Cookies))
	for _, ck := range c.Cookies {
		if ck.Expired(now) {
			continue
		}
		out = append(out, &http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	return out
}

// Merge applies Set-Cookie headers from an upstream response. Cookies with
// MaxAge < 0 or an expiry in the past are removed.
func (c Credentials) Merge(set []*http.Cookie, now time.Time) Credentials {
	if len(set) == 0 {
		return c
	}
	byName := make(map[string]int, len(c.Cookies))
	merged := make([]Cookie, 0, len(c.Cookies)+len(set))
	for _, ck := range c.Cookies {
		byName[ck.Name] = len(merged)
		merged = append(merged, ck)
	}

	for _, hc := range set {
		ck := Cookie{Name: hc.Name, Value: hc.Value}
		switch {
		case hc.MaxAge > 0:
			ck.Expires = now.Add(time.Duration(hc.MaxAge) * time.Second)
		case hc.MaxAge < 0:
			ck.Expires = now
		case !hc.Expires.IsZero():
			ck.Expires = hc.Expires
		}
		if i, ok := byName[ck.Name]; ok {
			merged[i] = ck
		} else {
			byName[ck.Name] = len(merged)
			merged = append(merged, ck)
		}
	}

	live := merged[:0]
	for _, ck := range merged {
		if ck.Value == "" || ck.Expired(now) {
			continue
		}
		live = append(live, ck)
	}
	c.Cookies = live
	return c
}

// Session is the server-side state of one browser.
type Session struct {
	ID        string      `json:"id"`
	Form      FormState   `json:"form"`
	LoggedIn  bool        `json:"logged_in"`
	Upstream  Credentials `json:"upstream"`
	Flash     *Flash      `json:"flash,omitempty"`
	ClientIP  string      `json:"client_ip,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewSession returns a fresh, logged-out session in sign-up mode.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Form:      NewFormState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetFlash records the notification shown on the next render.
func (s *Session) SetFlash(t FlashType, message string) {
	s.Flash = &Flash{Type: t, Message: message}
}

// TakeFlash returns and clears the pending notification.
func (s *Session) TakeFlash() *Flash {
	f := s.Flash
	s.Flash = nil
	return f
}
