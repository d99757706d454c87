package sns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tuition-notify/internal/domain"
)

const (
	androidChannelID = "high_importance_channel"
	clickAction      = "FLUTTER_NOTIFICATION_CLICK"
)

// Message is the device-facing part of a notification.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Sender delivers push messages to device tokens.
type Sender interface {
	// Send pushes msg to one token and returns the provider message id.
	Send(ctx context.Context, token string, msg Message) (string, error)
	// SendMulticast pushes msg to every token. The returned errors align with tokens.
	SendMulticast(ctx context.Context, tokens []string, msg Message) []error
}

// API is the subset of the SNS client the sender uses.
type API interface {
	CreatePlatformEndpoint(ctx context.Context, in *sns.CreatePlatformEndpointInput, optFns ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error)
	Publish(ctx context.Context, in *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Options tunes pacing and the circuit breaker.
type Options struct {
	PlatformApplicationARN string
	PerSecond              int
	MaxFailures            int
	BreakerTimeout         time.Duration
}

type pushSender struct {
	client      API
	platformARN string
	limiter     *rate.Limiter
	cb          *gobreaker.CircuitBreaker
	log         *zap.Logger
}

// NewSender builds an SNS mobile push sender. Devices are registered as platform
// endpoints under opts.PlatformApplicationARN on first use.
func NewSender(client API, opts Options, log *zap.Logger) Sender {
	limit := rate.Inf
	if opts.PerSecond > 0 {
		limit = rate.Limit(opts.PerSecond)
	}
	maxFailures := opts.MaxFailures
	if maxFailures < 1 {
		maxFailures = 5
	}
	st := gobreaker.Settings{
		Name:        "sns-push",
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures)
		},
		// A dead device token says nothing about the health of SNS.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrInvalidToken)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("circuit breaker state", zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
	}
	return &pushSender{
		client:      client,
		platformARN: opts.PlatformApplicationARN,
		limiter:     rate.NewLimiter(limit, max(opts.PerSecond, 1)),
		cb:          gobreaker.NewCircuitBreaker(st),
		log:         log,
	}
}

func (s *pushSender) Send(ctx context.Context, token string, msg Message) (string, error) {
	payload, err := buildPayload(msg)
	if err != nil {
		return "", err
	}
	return s.send(ctx, token, payload)
}

func (s *pushSender) SendMulticast(ctx context.Context, tokens []string, msg Message) []error {
	errs := make([]error, len(tokens))
	payload, err := buildPayload(msg)
	if err != nil {
		for i := range errs {
			errs[i] = err
		}
		return errs
	}
	for i, token := range tokens {
		_, errs[i] = s.send(ctx, token, payload)
	}
	return errs
}

func (s *pushSender) send(ctx context.Context, token, payload string) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrPushRejected, err)
	}
	out, err := s.cb.Execute(func() (interface{}, error) {
		endpoint, err := s.client.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
			PlatformApplicationArn: aws.String(s.platformARN),
			Token:                  aws.String(token),
		})
		if err != nil {
			return nil, classifyEndpoint(err)
		}
		res, err := s.client.Publish(ctx, &sns.PublishInput{
			TargetArn:        endpoint.EndpointArn,
			Message:          aws.String(payload),
			MessageStructure: aws.String("json"),
		})
		if err != nil {
			return nil, classifyPublish(err)
		}
		return aws.ToString(res.MessageId), nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%w: %w", domain.ErrPushRejected, err)
		}
		return "", err
	}
	return out.(string), nil
}

// classifyEndpoint flags a token SNS refuses to register. InvalidParameter is
// also returned for a bad platform application ARN, and for a live token whose
// endpoint already exists with other attributes.
func classifyEndpoint(err error) error {
	var invalid *types.InvalidParameterException
	if errors.As(err, &invalid) && tokenRejected(invalid.ErrorMessage()) {
		return fmt.Errorf("create endpoint: %w: %w", domain.ErrInvalidToken, err)
	}
	return fmt.Errorf("create endpoint: %w: %w", domain.ErrPushRejected, err)
}

func tokenRejected(msg string) bool {
	return strings.Contains(msg, "Token") && !strings.Contains(msg, "already exists")
}

// classifyPublish flags endpoints the platform has disabled or forgotten.
// Other publish failures, such as an oversized message, keep the token.
func classifyPublish(err error) error {
	var disabled *types.EndpointDisabledException
	var notFound *types.NotFoundException
	if errors.As(err, &disabled) || errors.As(err, &notFound) {
		return fmt.Errorf("publish: %w: %w", domain.ErrInvalidToken, err)
	}
	return fmt.Errorf("publish: %w: %w", domain.ErrPushRejected, err)
}

type gcmPayload struct {
	Notification gcmNotification   `json:"notification"`
	Data         map[string]string `json:"data"`
	Android      gcmAndroid        `json:"android"`
}

type gcmNotification struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	ClickAction string `json:"click_action"`
}

type gcmAndroid struct {
	Priority     string              `json:"priority"`
	Notification gcmAndroidChannelID `json:"notification"`
}

type gcmAndroidChannelID struct {
	ChannelID string `json:"channel_id"`
}

type apnsAlert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// buildPayload renders the per-platform JSON document SNS expects with MessageStructure=json.
func buildPayload(msg Message) (string, error) {
	data := make(map[string]string, len(msg.Data)+1)
	for k, v := range msg.Data {
		data[k] = v
	}
	data["click_action"] = clickAction

	gcm, err := json.Marshal(gcmPayload{
		Notification: gcmNotification{Title: msg.Title, Body: msg.Body, ClickAction: clickAction},
		Data:         data,
		Android: gcmAndroid{
			Priority:     "high",
			Notification: gcmAndroidChannelID{ChannelID: androidChannelID},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal gcm payload: %w", err)
	}

	apns := map[string]interface{}{
		"aps": map[string]interface{}{
			"alert": apnsAlert{Title: msg.Title, Body: msg.Body},
			"sound": "default",
		},
	}
	for k, v := range data {
		apns[k] = v
	}
	apnsJSON, err := json.Marshal(apns)
	if err != nil {
		return "", fmt.Errorf("marshal apns payload: %w", err)
	}

	doc, err := json.Marshal(map[string]string{
		"default":      msg.Body,
		"GCM":          string(gcm),
		"APNS":         string(apnsJSON),
		"APNS_SANDBOX": string(apnsJSON),
	})
	if err != nil {
		return "", fmt.Errorf("marshal push payload: %w", err)
	}
	return string(doc), nil
}
