package contact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageValidate(t *testing.T) {
	t.Parallel()

	valid := Message{Name: "Ana", Email: "ana@example.com", Body: "Hello there"}

	tests := []struct {
		name    string
		mutate  func(*Message)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Message) {}},
		{name: "missing name", mutate: func(m *Message) { m.Name = "  " }, wantErr: true},
		{name: "bad email", mutate: func(m *Message) { m.Email = "not-an-email" }, wantErr: true},
		{name: "empty body", mutate: func(m *Message) { m.Body = "" }, wantErr: true},
		{name: "oversized body", mutate: func(m *Message) { m.Body = string(make([]byte, 10001)) }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg := valid
			tt.mutate(&msg)
			err := msg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMessage)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewPostmarkSender(t *testing.T) {
	t.Parallel()

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()
		sender, err := NewPostmarkSender(Config{
			PostmarkServerToken: "server-token",
			SenderEmail:         "noreply@example.com",
			OwnerEmail:          "owner@example.com",
		})
		require.NoError(t, err)
		assert.NotNil(t, sender)
	})

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()
		_, err := NewPostmarkSender(Config{SenderEmail: "a@b.co", OwnerEmail: "c@d.co"})
		assert.Error(t, err)
	})

	t.Run("invalid owner email", func(t *testing.T) {
		t.Parallel()
		_, err := NewPostmarkSender(Config{
			PostmarkServerToken: "server-token",
			SenderEmail:         "noreply@example.com",
			OwnerEmail:          "nope",
		})
		assert.Error(t, err)
	})
}

func TestRenderBody(t *testing.T) {
	t.Parallel()

	body := renderBody(Message{
		Name:  "<script>x</script>",
		Email: "ana@example.com",
		Body:  "line one\nline two",
	})

	assert.NotContains(t, body, "<script>")
	assert.Contains(t, body, "&lt;script&gt;")
	assert.Contains(t, body, "line one<br>line two")
}

func TestConfigEnabled(t *testing.T) {
	t.Parallel()

	assert.False(t, Config{}.Enabled())
	assert.True(t, Config{
		PostmarkServerToken: "tok",
		SenderEmail:         "noreply@example.com",
		OwnerEmail:          "owner@example.com",
	}.Enabled())
}
