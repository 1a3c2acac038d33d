package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/tutor_api/model"
	"github.com/lac-hong-legacy/tutor_api/shared"
	log "github.com/sirupsen/logrus"
)

var (
	ErrOracleNotConfigured = errors.New("tutor oracle is not configured")
	ErrOracleEmptyReply    = errors.New("tutor oracle returned no choices")
)

// OracleService talks to an OpenAI-compatible chat completions endpoint.
type OracleService struct {
	appContext.DefaultService

	httpClient  *http.Client
	apiURL      string
	apiKey      string
	modelName   string
	temperature float64
	timeout     time.Duration
}

const ORACLE_SVC = "oracle_svc"

type oracleRequest struct {
	Model       string              `json:"model"`
	Messages    []model.ChatMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
}

type oracleResponse struct {
	Choices []struct {
		Message model.ChatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (svc OracleService) Id() string {
	return ORACLE_SVC
}

func NewOracleService(apiURL, apiKey, modelName string, timeout time.Duration) *OracleService {
	return &OracleService{
		httpClient:  &http.Client{},
		apiURL:      strings.TrimRight(apiURL, "/"),
		apiKey:      apiKey,
		modelName:   modelName,
		temperature: 0.2,
		timeout:     timeout,
	}
}

func (svc *OracleService) Configure(ctx *appContext.Context) error {
	svc.timeout = parseDuration(os.Getenv("ORACLE_TIMEOUT"), 30*time.Second)
	svc.httpClient = &http.Client{}
	svc.apiURL = strings.TrimRight(getEnv("ORACLE_URL", "https://api.openai.com/v1"), "/")
	svc.apiKey = os.Getenv("ORACLE_API_KEY")
	svc.modelName = getEnv("ORACLE_MODEL", "gpt-4o-mini")
	svc.temperature = 0.2
	return svc.DefaultService.Configure(ctx)
}

func (svc *OracleService) Start() error {
	if svc.apiKey == "" {
		log.Warn("ORACLE_API_KEY not set, chat and analysis will fail")
	}
	return nil
}

// Timeout is the deadline applied to each turn.
func (svc *OracleService) Timeout() time.Duration {
	return svc.timeout
}

// SendTurn posts the transcript and returns the assistant's reply text.
func (svc *OracleService) SendTurn(ctx context.Context, transcript []model.ChatMessage) (string, error) {
	if svc.apiURL == "" || svc.apiKey == "" {
		return "", ErrOracleNotConfigured
	}

	payload, err := shared.JSONAPI.Marshal(oracleRequest{
		Model:       svc.modelName,
		Messages:    transcript,
		Temperature: svc.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode oracle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.apiURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+svc.apiKey)

	resp, err := svc.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("oracle request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read oracle response: %w", err)
	}

	var decoded oracleResponse
	if err := shared.JSONAPI.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("failed to decode oracle response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := http.StatusText(resp.StatusCode)
		if decoded.Error != nil && decoded.Error.Message != "" {
			msg = decoded.Error.Message
		}
		log.WithField("status", resp.StatusCode).Error("Oracle returned non-200 status")
		return "", fmt.Errorf("oracle returned status %d: %s", resp.StatusCode, msg)
	}

	if len(decoded.Choices) == 0 {
		return "", ErrOracleEmptyReply
	}

	return decoded.Choices[0].Message.Content, nil
}
