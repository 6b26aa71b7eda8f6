package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Role1776/gigago"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	gigaChatBaseURL  = "https://gigachat.devices.sberbank.ru/api/v1"
	gigaChatOAuthURL = "https://ngw.devices.sberbank.ru:9443/api/v2/oauth"
)

// GigaChat implements Client using Sber GigaChat. Text-only requests go
// through the gigago SDK; image requests use the Files + Vision REST API,
// which the SDK does not cover.
type GigaChat struct {
	client     *gigago.Client
	model      *gigago.GenerativeModel
	httpClient *http.Client
	apiKey     string
	scope      string
	logger     *zap.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewGigaChat creates a GigaChat-backed vision client. The API key must be
// the Base64-encoded credential pair issued by the developer portal.
func NewGigaChat(ctx context.Context, apiKey, scope string, logger *zap.Logger) (*GigaChat, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gigachat api key is required")
	}
	if scope == "" {
		scope = "GIGACHAT_API_PERS"
	}

	client, err := gigago.NewClient(ctx, apiKey, gigago.WithCustomScope(scope))
	if err != nil {
		return nil, fmt.Errorf("creating gigachat client: %w", err)
	}

	model := client.GenerativeModel("GigaChat")
	model.Temperature = 0.3

	return &GigaChat{
		client:     client,
		model:      model,
		httpClient: &http.Client{},
		apiKey:     apiKey,
		scope:      scope,
		logger:     logger,
	}, nil
}

func (g *GigaChat) Generate(ctx context.Context, req Request) (string, error) {
	if req.ImagePNG == nil {
		return g.generateText(ctx, req)
	}

	fileID, err := g.uploadImage(ctx, req.ImagePNG)
	if err != nil {
		return "", err
	}
	return g.generateWithAttachment(ctx, req, fileID)
}

func (g *GigaChat) Close() error {
	g.client.Close()
	return nil
}

func (g *GigaChat) generateText(ctx context.Context, req Request) (string, error) {
	var messages []gigago.Message
	if req.System != "" {
		messages = append(messages, gigago.Message{Role: gigago.RoleSystem, Content: req.System})
	}
	messages = append(messages, gigago.Message{Role: gigago.RoleUser, Content: req.Prompt})

	resp, err := g.model.Generate(ctx, messages)
	if err != nil {
		return "", classifyGigaChatError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from gigachat")
	}
	return resp.Choices[0].Message.Content, nil
}

// uploadImage pushes the PNG to the Files API ("general" purpose makes it
// usable as a chat attachment) and returns the file ID.
func (g *GigaChat) uploadImage(ctx context.Context, imagePNG []byte) (string, error) {
	token, err := g.token(ctx)
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("purpose", "general"); err != nil {
		return "", fmt.Errorf("writing purpose field: %w", err)
	}
	part, err := writer.CreatePart(map[string][]string{
		"Content-Type":        {"image/png"},
		"Content-Disposition": {`form-data; name="file"; filename="receipt.png"`},
	})
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := part.Write(imagePNG); err != nil {
		return "", fmt.Errorf("writing image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("closing multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gigaChatBaseURL+"/files", &body)
	if err != nil {
		return "", fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", Transient(fmt.Errorf("uploading file: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", gigaChatStatusError("file upload", resp)
	}

	var fileResp struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&fileResp); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if fileResp.ID == "" {
		return "", fmt.Errorf("empty file id in upload response")
	}
	return fileResp.ID, nil
}

// generateWithAttachment calls chat/completions directly; attachments are
// not exposed through gigago. Attachment format per the API docs: [["id"]].
func (g *GigaChat) generateWithAttachment(ctx context.Context, r Request, fileID string) (string, error) {
	token, err := g.token(ctx)
	if err != nil {
		return "", err
	}

	messages := []map[string]interface{}{}
	if r.System != "" {
		messages = append(messages, map[string]interface{}{
			"role":    "system",
			"content": r.System,
		})
	}
	messages = append(messages, map[string]interface{}{
		"role":        "user",
		"content":     r.Prompt,
		"attachments": [][]string{{fileID}},
	})

	requestBody := map[string]interface{}{
		"model":       "GigaChat",
		"messages":    messages,
		"temperature": 0.3,
		"stream":      false,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gigaChatBaseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", Transient(fmt.Errorf("calling gigachat vision api: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", gigaChatStatusError("vision completion", resp)
	}

	var visionResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&visionResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(visionResp.Choices) == 0 {
		return "", fmt.Errorf("no response from gigachat vision api")
	}

	return visionResp.Choices[0].Message.Content, nil
}

// token returns a valid OAuth access token, refreshing it ahead of expiry.
func (g *GigaChat) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.accessToken != "" && time.Now().Before(g.tokenExpiry.Add(-time.Minute)) {
		return g.accessToken, nil
	}

	formData := url.Values{}
	formData.Set("scope", g.scope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, gigaChatOAuthURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating oauth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("RqUID", uuid.New().String())
	req.Header.Set("Authorization", "Basic "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", Transient(fmt.Errorf("requesting access token: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", gigaChatStatusError("oauth", resp)
	}

	var oauthResp struct {
		AccessToken string `json:"access_token"`
		ExpiresAt   int64  `json:"expires_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&oauthResp); err != nil {
		return "", fmt.Errorf("decoding oauth response: %w", err)
	}
	if oauthResp.AccessToken == "" {
		return "", fmt.Errorf("empty access token in oauth response")
	}

	g.accessToken = oauthResp.AccessToken
	// expires_at is unix millis
	g.tokenExpiry = time.UnixMilli(oauthResp.ExpiresAt)
	g.logger.Info("GigaChat access token refreshed", zap.Time("expires", g.tokenExpiry))

	return g.accessToken, nil
}

func gigaChatStatusError(op string, resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)
	err := fmt.Errorf("gigachat %s failed with status %d: %s", op, resp.StatusCode, string(bodyBytes))
	if retryableStatus(resp.StatusCode) {
		return Transient(err)
	}
	return err
}

func classifyGigaChatError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Transient(fmt.Errorf("gigachat: %w", err))
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Transient(fmt.Errorf("gigachat: %w", err))
	}
	// gigago surfaces HTTP failures as plain errors carrying the status code.
	msg := err.Error()
	for _, code := range []string{"429", "500", "502", "503", "504"} {
		if strings.Contains(msg, code) {
			return Transient(fmt.Errorf("gigachat: %w", err))
		}
	}
	return fmt.Errorf("gigachat: %w", err)
}
