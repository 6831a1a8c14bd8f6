package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/exp/slog"

	"savesync/internal/errs"
)

const userAgent = "SaveSync-Client/1.0"

// HTTPBackend работает с API сохранений сервера.
type HTTPBackend struct {
	client  *http.Client
	log     *slog.Logger
	baseURL string
}

func NewHTTPBackend(address string, enableTLS bool, timeout time.Duration, log *slog.Logger) *HTTPBackend {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	scheme := "http://"
	if enableTLS {
		scheme = "https://"
	}

	return &HTTPBackend{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		log:     log.With(slog.String("component", "http_backend")),
		baseURL: scheme + address,
	}
}

type saveBody struct {
	Data      []byte    `json:"data,omitempty"`
	Checksum  string    `json:"checksum"`
	Version   int       `json:"version"`
	LastSaved time.Time `json:"last_saved"`
}

type saveResponse struct {
	ID        int       `json:"id"`
	SlotID    int       `json:"slot_id"`
	Data      []byte    `json:"data,omitempty"`
	Checksum  string    `json:"checksum"`
	Version   int       `json:"version"`
	LastSaved time.Time `json:"last_saved"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r saveResponse) record() RemoteRecord {
	return RemoteRecord{
		ID:        strconv.Itoa(r.ID),
		SlotID:    r.SlotID,
		Data:      r.Data,
		Checksum:  r.Checksum,
		Version:   r.Version,
		LastSaved: r.LastSaved,
		UpdatedAt: r.UpdatedAt,
	}
}

type loginBody struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

func (h *HTTPBackend) Put(ctx context.Context, id Identity, rec RemoteRecord) (RemoteRecord, error) {
	resp, err := h.doRequest(ctx, http.MethodPut, slotPath(rec.SlotID), id.Token, saveBody{
		Data:      rec.Data,
		Checksum:  rec.Checksum,
		Version:   rec.Version,
		LastSaved: rec.LastSaved,
	})
	if err != nil {
		return RemoteRecord{}, err
	}

	var out saveResponse
	if err := h.parseResponse(resp, &out); err != nil {
		return RemoteRecord{}, err
	}

	return out.record(), nil
}

func (h *HTTPBackend) Get(ctx context.Context, id Identity, slot int) (RemoteRecord, error) {
	resp, err := h.doRequest(ctx, http.MethodGet, slotPath(slot), id.Token, nil)
	if err != nil {
		return RemoteRecord{}, err
	}

	var out saveResponse
	if err := h.parseResponse(resp, &out); err != nil {
		return RemoteRecord{}, err
	}

	return out.record(), nil
}

func (h *HTTPBackend) Delete(ctx context.Context, id Identity, slot int) error {
	resp, err := h.doRequest(ctx, http.MethodDelete, slotPath(slot), id.Token, nil)
	if err != nil {
		return err
	}

	return h.parseResponse(resp, nil)
}

func (h *HTTPBackend) List(ctx context.Context, id Identity) ([]RemoteRecord, error) {
	resp, err := h.doRequest(ctx, http.MethodGet, "/api/v1/saves", id.Token, nil)
	if err != nil {
		return nil, err
	}

	var out struct {
		Saves []saveResponse `json:"saves"`
	}
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}

	recs := make([]RemoteRecord, 0, len(out.Saves))
	for _, s := range out.Saves {
		recs = append(recs, s.record())
	}

	return recs, nil
}

// Ping выполняет HEAD /api/v1/health.
func (h *HTTPBackend) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, h.baseURL+"/api/v1/health", nil)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return errs.E("http", errs.NotConnected, fmt.Errorf("сервер недоступен: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("сервер вернул статус: %d", resp.StatusCode)
	}

	return nil
}

// Register регистрирует пользователя на сервере.
func (h *HTTPBackend) Register(ctx context.Context, login, password string) error {
	resp, err := h.doRequest(ctx, http.MethodPost, "/api/v1/auth/register", "", loginBody{Login: login, Password: password})
	if err != nil {
		return err
	}

	return h.parseResponse(resp, nil)
}

// Login возвращает токен сессии.
func (h *HTTPBackend) Login(ctx context.Context, login, password string) (string, error) {
	resp, err := h.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", "", loginBody{Login: login, Password: password})
	if err != nil {
		return "", err
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := h.parseResponse(resp, &out); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", fmt.Errorf("сервер не вернул токен")
	}

	return out.Token, nil
}

func (h *HTTPBackend) doRequest(ctx context.Context, method, path, token string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	h.log.Debug("Отправка запроса",
		"method", method,
		"url", req.URL.String(),
	)

	// Ошибка на этом шаге означает, что ответа нет: сервер недоступен.
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, errs.E("http", errs.NotConnected, fmt.Errorf("ошибка выполнения запроса: %w", err))
	}

	return resp, nil
}

func (h *HTTPBackend) parseResponse(resp *http.Response, result interface{}) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	h.log.Debug("Получен ответ", "status", resp.StatusCode, "size", len(body))

	if resp.StatusCode >= 400 {
		return statusError(resp.StatusCode, body)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}

	return nil
}

func statusError(status int, body []byte) error {
	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	msg := fmt.Sprintf("статус %d", status)
	if err := json.Unmarshal(body, &problem); err == nil {
		switch {
		case problem.Detail != "":
			msg = problem.Detail
		case problem.Title != "":
			msg = problem.Title
		}
	}
	cause := fmt.Errorf("ошибка сервера: %s", msg)

	switch status {
	case http.StatusUnauthorized:
		return errs.E("http", errs.NotAuthenticated, cause)
	case http.StatusNotFound:
		return errs.E("http", errs.NotFound, cause)
	default:
		return errs.E("http", errs.Unknown, cause)
	}
}

func slotPath(slot int) string {
	return "/api/v1/saves/" + strconv.Itoa(slot)
}
