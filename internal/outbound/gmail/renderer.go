package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"flowengine/entity"
	"flowengine/internal/lib/sl"
)

// Renderer delivers outbound intents for the email channel through the
// Gmail API using stored OAuth credentials.
type Renderer struct {
	service *gmailapi.Service
	sender  string
	log     *slog.Logger
}

func New(ctx context.Context, credentialsFile, tokenFile, sender string, log *slog.Logger) (*Renderer, error) {
	credentials, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("gmail credentials: %w", err)
	}
	conf, err := google.ConfigFromJSON(credentials, gmailapi.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("gmail oauth config: %w", err)
	}

	tokenData, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("gmail token: %w", err)
	}
	var token oauth2.Token
	if err = json.Unmarshal(tokenData, &token); err != nil {
		return nil, fmt.Errorf("gmail token parse: %w", err)
	}

	service, err := gmailapi.NewService(ctx, option.WithHTTPClient(conf.Client(ctx, &token)))
	if err != nil {
		return nil, fmt.Errorf("gmail service: %w", err)
	}

	return &Renderer{
		service: service,
		sender:  sender,
		log:     log.With(sl.Module("outbound.gmail")),
	}, nil
}

func (r *Renderer) Render(_ context.Context, intent entity.OutboundIntent) error {
	subject := "Message"
	if intent.Header != nil && intent.Header.Text != "" {
		subject = intent.Header.Text
	}

	body := strings.Join(intent.TextParts(), "\n\n")
	if len(intent.Choices) > 0 {
		var options []string
		for _, choice := range intent.Choices {
			options = append(options, "- "+choice.ExpectedInput)
		}
		body += "\n\nReply with one of:\n" + strings.Join(options, "\n")
	}

	raw := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=\"UTF-8\"\r\n\r\n%s",
		r.sender, intent.Recipient, subject, body)

	message := &gmailapi.Message{
		Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
	}
	if _, err := r.service.Users.Messages.Send("me", message).Do(); err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}
	r.log.Debug("email sent", slog.String("to", intent.Recipient), slog.String("node_id", intent.NodeID))
	return nil
}
