package shared

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/authportal/internal/domain"
)

func renderString(t *testing.T, f func(*bytes.Buffer) error) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, f(&buf))
	return buf.String()
}

func TestFlashBanner_NilRendersNothing(t *testing.T) {
	out := renderString(t, func(b *bytes.Buffer) error {
		return FlashBanner(nil).Render(context.Background(), b)
	})
	assert.Empty(t, out)
}

func TestFlashBanner_EscapesMessage(t *testing.T) {
	f := &domain.Flash{Type: domain.FlashError, Message: `Error: <script>alert("x")</script>`}

	out := renderString(t, func(b *bytes.Buffer) error {
		return FlashBanner(f).Render(context.Background(), b)
	})

	assert.Contains(t, out, `id="flash"`)
	assert.Contains(t, out, `role="alert"`)
	assert.Contains(t, out, `data-flash-type="error"`)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "&lt;script&gt;")
}

func TestFlashBanner_RoleByType(t *testing.T) {
	tests := []struct {
		typ  domain.FlashType
		role string
	}{
		{domain.FlashSuccess, "status"},
		{domain.FlashInfo, "status"},
		{domain.FlashWarning, "status"},
		{domain.FlashError, "alert"},
	}

	for _, tt := range tests {
		out := renderString(t, func(b *bytes.Buffer) error {
			return FlashBanner(&domain.Flash{Type: tt.typ, Message: "m"}).Render(context.Background(), b)
		})
		assert.Contains(t, out, `role="`+tt.role+`"`, string(tt.typ))
	}
}

func TestFlashBanner_MergesClasses(t *testing.T) {
	f := &domain.Flash{Type: domain.FlashSuccess, Message: "User bob registered successfully!"}

	out := renderString(t, func(b *bytes.Buffer) error {
		return FlashBanner(f, "mb-0").Render(context.Background(), b)
	})

	assert.Contains(t, out, "mb-0")
	assert.NotContains(t, out, "mb-4")
	assert.Contains(t, out, "bg-green-50")
}
