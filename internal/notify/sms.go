package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ignatzorin/fieldcrew-backend/internal/logger"
)

// SMSSender доставляет одно сообщение провайдеру.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// HTTPSMSClient отправляет SMS через JSON API провайдера с Bearer ключом.
type HTTPSMSClient struct {
	url        string
	apiKey     string
	senderName string
	client     *http.Client
}

type smsRequest struct {
	Recipient  string `json:"recipient"`
	SenderName string `json:"sender_name"`
	Message    string `json:"message"`
}

type smsResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Msg    string `json:"msg"`
}

// NewHTTPSMSClient создаёт клиента провайдера.
func NewHTTPSMSClient(url, apiKey, senderName string) *HTTPSMSClient {
	return &HTTPSMSClient{
		url:        url,
		apiKey:     apiKey,
		senderName: senderName,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send выполняет один запрос к провайдеру. Ненулевой code в ответе считается ошибкой.
func (s *HTTPSMSClient) Send(ctx context.Context, phone, message string) error {
	payload, err := json.Marshal(smsRequest{
		Recipient:  phone,
		SenderName: s.senderName,
		Message:    message,
	})
	if err != nil {
		return fmt.Errorf("sms: не удалось сериализовать запрос: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("sms: не удалось создать запрос: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sms: запрос не выполнен: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("sms: не удалось прочитать ответ: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms: провайдер ответил %d: %s", resp.StatusCode, string(body))
	}

	var parsed smsResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &parsed); err != nil {
			return fmt.Errorf("sms: не удалось разобрать ответ: %w", err)
		}
	}
	if parsed.Code != 0 {
		return fmt.Errorf("sms: провайдер отклонил сообщение: %s", parsed.Msg)
	}

	return nil
}

// LogSMSSender пишет сообщения в лог вместо отправки. Используется в development.
type LogSMSSender struct{}

func (LogSMSSender) Send(ctx context.Context, phone, message string) error {
	logger.Log.WithField("phone", phone).Infof("sms (dev): %s", message)
	return nil
}

// OTPMessage формирует текст SMS с кодом.
func OTPMessage(code string) string {
	return fmt.Sprintf("Your verification code is %s", code)
}
