package sendgrid_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	sendgrid_client "github.com/aaravmahajanofficial/itemstore/pkg/sendgrid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sendgridV3Payload struct {
	Personalizations []struct {
		To      []map[string]string `json:"to"`
		Subject string              `json:"subject"`
	} `json:"personalizations"`
	From    map[string]string `json:"from"`
	Content []struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"content"`
}

func newService(t *testing.T, handler http.HandlerFunc) sendgrid_client.EmailService {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	service := sendgrid_client.NewEmailService("SG.test-api-key", "orders@example.com", "Itemstore")
	service.GetSendGridClient().Request.BaseURL = server.URL

	return service
}

func TestEmailService_Send(t *testing.T) {
	ctx := t.Context()

	t.Run("Success", func(t *testing.T) {
		// Arrange
		var payload sendgridV3Payload
		var auth string

		service := newService(t, func(w http.ResponseWriter, r *http.Request) {
			auth = r.Header.Get("Authorization")
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &payload)
			w.WriteHeader(http.StatusAccepted)
		})

		msg := &sendgrid_client.Message{
			To:          "buyer@example.com",
			Subject:     "Your order",
			Content:     "2 x Desk Lamp",
			HTMLContent: "<p>2 x Desk Lamp</p>",
		}

		// Act
		err := service.Send(ctx, msg)

		// Assert
		require.NoError(t, err)
		assert.Equal(t, "Bearer SG.test-api-key", auth)
		assert.Equal(t, "orders@example.com", payload.From["email"])
		assert.Equal(t, "Itemstore", payload.From["name"])
		require.Len(t, payload.Personalizations, 1)
		assert.Equal(t, "buyer@example.com", payload.Personalizations[0].To[0]["email"])
		assert.Equal(t, "Your order", payload.Personalizations[0].Subject)
		require.Len(t, payload.Content, 2)
		assert.Equal(t, "text/plain", payload.Content[0].Type)
		assert.Equal(t, "<p>2 x Desk Lamp</p>", payload.Content[1].Value)
	})

	t.Run("Plain text only", func(t *testing.T) {
		// Arrange
		var payload sendgridV3Payload

		service := newService(t, func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &payload)
			w.WriteHeader(http.StatusAccepted)
		})

		// Act
		err := service.Send(ctx, &sendgrid_client.Message{To: "buyer@example.com", Subject: "s", Content: "c"})

		// Assert
		require.NoError(t, err)
		require.Len(t, payload.Content, 1)
	})

	t.Run("API error", func(t *testing.T) {
		// Arrange
		service := newService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"errors": [{"message": "Invalid email"}]}`))
		})

		// Act
		err := service.Send(ctx, &sendgrid_client.Message{To: "bad", Subject: "s", Content: "c"})

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to send email, status code: 400")
	})

	t.Run("Network error", func(t *testing.T) {
		// Arrange
		server := httptest.NewServer(http.NotFoundHandler())
		service := sendgrid_client.NewEmailService("SG.test-api-key", "orders@example.com", "Itemstore")
		service.GetSendGridClient().Request.BaseURL = server.URL
		server.Close()

		// Act
		err := service.Send(ctx, &sendgrid_client.Message{To: "buyer@example.com", Subject: "s", Content: "c"})

		// Assert
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to send email")
	})
}
