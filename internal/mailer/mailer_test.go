package mailer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arzan03/coursehub/internal/logger"
)

func TestConsoleRecordsMessages(t *testing.T) {
	c := NewConsole("CourseHub", mail.Address{Name: "CourseHub", Address: "no-reply@example.com"}, logger.Nop())

	require.NoError(t, c.Send(context.Background(), Message{Subject: "nobody"}))
	require.NoError(t, c.Send(context.Background(), Message{
		To:      []mail.Address{{Address: "ada@example.com"}},
		Subject: "Welcome",
		Text:    "hello",
	}))

	sent := c.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "Welcome", sent[0].Subject)
}

func TestSendgridPostsMail(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer sg-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	s := NewSendgrid("sg-key", "CourseHub", mail.Address{Name: "CourseHub", Address: "no-reply@example.com"})
	s.host = srv.URL

	err := s.Send(context.Background(), Message{
		To:      []mail.Address{{Name: "Ada", Address: "ada@example.com"}},
		Subject: "Payment received",
		Text:    "thanks",
	})
	require.NoError(t, err)

	personalizations := got["personalizations"].([]interface{})
	require.Len(t, personalizations, 1)
	assert.Equal(t, "[CourseHub] Payment received", personalizations[0].(map[string]interface{})["subject"])
}

func TestSendgridReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad key"}]}`))
	}))
	defer srv.Close()

	s := NewSendgrid("bad", "CourseHub", mail.Address{Address: "no-reply@example.com"})
	s.host = srv.URL

	err := s.Send(context.Background(), Message{To: []mail.Address{{Address: "ada@example.com"}}, Subject: "x", Text: "y"})
	assert.Error(t, err)
}
