// Package chatapi talks to the public Raven chat API: business profile,
// image upload, chat messages, rating and transcript email.
package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/raven-widget/internal/observability/metrics"
	"github.com/wolfman30/raven-widget/pkg/logging"
)

const (
	defaultSendTimeout    = 30 * time.Second
	defaultRequestTimeout = 15 * time.Second
	defaultUserAgent      = "raven-widget/1.0"
	maxErrorBody          = 300
)

// Operation names used for metrics, spans and errors.
const (
	OpFetchProfile    = "fetch_profile"
	OpUploadImage     = "upload_image"
	OpSendMessage     = "send_message"
	OpRate            = "rate_conversation"
	OpEmailTranscript = "email_transcript"
)

// Config controls how the client behaves.
type Config struct {
	BaseURL        string
	SendTimeout    time.Duration
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Logger         *logging.Logger
	Metrics        *metrics.WidgetMetrics
	Tracer         trace.Tracer
	UserAgent      string
}

// Client performs the widget's remote calls. It holds no per-conversation
// state and is safe for concurrent use.
type Client struct {
	baseURL        string
	sendTimeout    time.Duration
	requestTimeout time.Duration
	httpClient     *http.Client
	logger         *logging.Logger
	metrics        *metrics.WidgetMetrics
	tracer         trace.Tracer
	userAgent      string
}

// New creates a configured Client.
func New(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("chatapi: base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("chatapi: invalid base URL: %w", err)
	}
	sendTimeout := cfg.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otel.Tracer("raven.internal.chatapi")
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{
		baseURL:        baseURL,
		sendTimeout:    sendTimeout,
		requestTimeout: requestTimeout,
		httpClient:     httpClient,
		logger:         logger,
		metrics:        cfg.Metrics,
		tracer:         tracer,
		userAgent:      userAgent,
	}, nil
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchBusinessProfile loads the public profile of a business.
func (c *Client) FetchBusinessProfile(ctx context.Context, businessID string) (*BusinessProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	path := fmt.Sprintf("/api/chat/business/%s/public", url.PathEscape(businessID))
	data, err := c.invoke(ctx, OpFetchProfile, http.MethodGet, path, nil, "", ErrProfileUnavailable)
	if err != nil {
		return nil, wrapKind(err, ErrProfileUnavailable)
	}
	var profile BusinessProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("%w: decode profile: %v", ErrProfileUnavailable, err)
	}
	return &profile, nil
}

// UploadImage posts an image as multipart field "file" and returns the
// attachment to reference in a later send.
func (c *Client) UploadImage(ctx context.Context, filename, contentType string, r io.Reader) (*MediaAttachment, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: no file", ErrUploadFailed)
	}
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("%w: create form file: %v", ErrUploadFailed, err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("%w: copy file: %v", ErrUploadFailed, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%w: close multipart writer: %v", ErrUploadFailed, err)
	}

	data, err := c.invoke(ctx, OpUploadImage, http.MethodPost, "/api/uploads/image", buf.Bytes(), writer.FormDataContentType(), ErrUploadFailed)
	if err != nil {
		return nil, wrapKind(err, ErrUploadFailed)
	}
	var resp UploadResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUploadFailed, err)
	}
	if resp.URL == "" {
		return nil, fmt.Errorf("%w: response has no url", ErrUploadFailed)
	}
	return &MediaAttachment{
		Type:        "image",
		URL:         c.resolveURL(resp.URL),
		Filename:    resp.Filename,
		ContentType: resp.ContentType,
	}, nil
}

// SendMessage posts one chat message. The call is capped by the send
// timeout; on expiry the request is cancelled and ErrTimeout is returned.
// Every other failure unwraps to ErrNetworkFailure.
func (c *Client) SendMessage(ctx context.Context, req SendRequest) (*SendResponse, error) {
	payload := ChatPayload{
		BusinessID: req.BusinessID,
		VisitorID:  req.VisitorID,
		Message:    req.Message,
		Media:      req.Media,
	}
	if req.ConversationID != "" {
		id := req.ConversationID
		payload.ConversationID = &id
	} else {
		payload.VisitorName = req.Contact.Name
		payload.VisitorEmail = req.Contact.Email
		payload.VisitorPhone = req.Contact.Phone
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal payload: %v", ErrNetworkFailure, err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()

	data, err := c.invoke(sendCtx, OpSendMessage, http.MethodPost, "/api/chat", body, "application/json", ErrNetworkFailure)
	if err != nil {
		if errors.Is(sendCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, c.sendTimeout)
		}
		return nil, wrapKind(err, ErrNetworkFailure)
	}
	var resp SendResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrNetworkFailure, err)
	}
	return &resp, nil
}

// RateConversation records a positive or negative rating.
func (c *Client) RateConversation(ctx context.Context, conversationID, rating, comment string) error {
	if strings.TrimSpace(conversationID) == "" {
		return fmt.Errorf("%w: conversation id required", ErrRateFailed)
	}
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	body, err := json.Marshal(RatePayload{Rating: rating, Comment: comment})
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %v", ErrRateFailed, err)
	}
	path := fmt.Sprintf("/api/chat/conversation/%s/rate", url.PathEscape(conversationID))
	if _, err := c.invoke(ctx, OpRate, http.MethodPost, path, body, "application/json", ErrRateFailed); err != nil {
		return wrapKind(err, ErrRateFailed)
	}
	return nil
}

// EmailTranscript asks the server to email the conversation transcript.
func (c *Client) EmailTranscript(ctx context.Context, conversationID, email string) error {
	if strings.TrimSpace(conversationID) == "" {
		return fmt.Errorf("%w: conversation id required", ErrTranscriptFailed)
	}
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	body, err := json.Marshal(TranscriptPayload{Email: email})
	if err != nil {
		return fmt.Errorf("%w: marshal payload: %v", ErrTranscriptFailed, err)
	}
	path := fmt.Sprintf("/api/chat/conversation/%s/transcript", url.PathEscape(conversationID))
	if _, err := c.invoke(ctx, OpEmailTranscript, http.MethodPost, path, body, "application/json", ErrTranscriptFailed); err != nil {
		return wrapKind(err, ErrTranscriptFailed)
	}
	return nil
}

func (c *Client) invoke(ctx context.Context, op, method, path string, body []byte, contentType string, kind error) ([]byte, error) {
	ctx, span := c.tracer.Start(ctx, "chatapi."+op, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
	))
	defer span.End()

	start := time.Now()
	outcome := "network"
	defer func() {
		c.metrics.ObserveRequest(op, outcome, time.Since(start).Seconds())
	}()

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("chatapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome = "timeout"
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		c.logger.Warn("chat api request failed", "operation", op, "path", path, "error", err)
		return nil, fmt.Errorf("chatapi: %s request: %w", op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chatapi: %s read response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		outcome = "status"
		span.SetStatus(codes.Error, resp.Status)
		c.logger.Warn("chat api non-2xx response", "operation", op, "status", resp.StatusCode, "path", path, "body", msg)
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: msg, kind: kind}
	}
	outcome = "success"
	return data, nil
}

// resolveURL makes server-relative upload paths absolute.
func (c *Client) resolveURL(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return c.baseURL + ref
}

// wrapKind tags err with the operation sentinel unless it already carries it.
func wrapKind(err, kind error) error {
	if errors.Is(err, kind) {
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
