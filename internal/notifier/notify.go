package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const defaultTimeout = 5 * time.Second

type rotationAlert struct {
	UserUUID  string `json:"user_uuid"`
	NewIP     string `json:"new_ip"`
	OldIP     string `json:"old_ip"`
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
}

// NotifyWebhook отправляет уведомление о ротации refresh-токена с нового
// ip адреса. Уведомление справочное, ротацию не блокирует и не отменяет.
// Запрос ограничен таймаутом, чтобы зависший endpoint не держал горутину
// отправки бесконечно.
func NotifyWebhook(ctx context.Context, webhookURL string, timeout time.Duration, userUUID string, newIP string, oldIP string) error {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	payload := rotationAlert{
		UserUUID:  userUUID,
		NewIP:     newIP,
		OldIP:     oldIP,
		Event:     "refresh_token_from_new_ip",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка преобразования в json: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("ошибка создания запроса webhook: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: timeout}
	response, err := client.Do(request)
	if err != nil {
		return fmt.Errorf("ошибка отправки webhook: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("webhook ответил статусом %d", response.StatusCode)
	}

	log.Printf("[Notifier] webhook для пользователя %s успешно отправлен", userUUID)
	return nil
}
