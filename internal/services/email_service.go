package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	pkglogger "github.com/BradenHooton/offeradmin/pkg/logger"
)

// LockoutAlert describes a lockout triggered by repeated failed logins
type LockoutAlert struct {
	Username    string
	IPAddress   string
	Attempts    int
	LockedUntil time.Time
}

// LockoutNotifier tells an operator that the admin account was locked
type LockoutNotifier interface {
	NotifyLockout(ctx context.Context, alert LockoutAlert) error
}

// SESClient is the subset of the SES API the notifier uses
type SESClient interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESLockoutNotifier sends lockout alerts through AWS SES
type SESLockoutNotifier struct {
	client      SESClient
	fromAddress string
	toAddress   string
	logger      *slog.Logger
}

// NewSESLockoutNotifier loads AWS credentials from the default chain
func NewSESLockoutNotifier(ctx context.Context, region, fromAddress, toAddress string, logger *slog.Logger) (*SESLockoutNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewSESLockoutNotifierWithClient(ses.NewFromConfig(cfg), fromAddress, toAddress, logger), nil
}

func NewSESLockoutNotifierWithClient(client SESClient, fromAddress, toAddress string, logger *slog.Logger) *SESLockoutNotifier {
	return &SESLockoutNotifier{
		client:      client,
		fromAddress: fromAddress,
		toAddress:   toAddress,
		logger:      logger,
	}
}

func (n *SESLockoutNotifier) NotifyLockout(ctx context.Context, alert LockoutAlert) error {
	until := alert.LockedUntil.UTC().Format(time.RFC1123)
	username := pkglogger.SanitizedUsername(alert.Username)

	textBody := fmt.Sprintf(`Offer admin login locked

%d consecutive failed login attempts were made for username %q from %s.
Further logins are refused until %s.

If this was not you, rotate ADMIN_PASSWORD and review the access logs.
`, alert.Attempts, username, alert.IPAddress, until)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #333;">
    <h2>Offer admin login locked</h2>
    <p><strong>%d</strong> consecutive failed login attempts were made for username
    <code>%s</code> from <code>%s</code>.</p>
    <p>Further logins are refused until <strong>%s</strong>.</p>
    <p>If this was not you, rotate <code>ADMIN_PASSWORD</code> and review the access logs.</p>
</body>
</html>
`, alert.Attempts, html.EscapeString(username), html.EscapeString(alert.IPAddress), until)

	input := &ses.SendEmailInput{
		Source: aws.String(n.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{n.toAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Offer admin: login locked after failed attempts"),
			},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(textBody)},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		n.logger.Error("failed to send lockout alert via SES",
			slog.String("to", pkglogger.SanitizedEmail(n.toAddress)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send lockout alert: %w", err)
	}

	n.logger.Info("lockout alert sent",
		slog.String("to", pkglogger.SanitizedEmail(n.toAddress)),
		slog.String("message_id", aws.ToString(result.MessageId)))
	return nil
}
