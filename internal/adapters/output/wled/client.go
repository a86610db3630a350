package wled

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"lumina-core/internal/domain/model"
	"lumina-core/internal/domain/payload"
)

const (
	stateEndpoint  = "/json/state"
	configEndpoint = "/json/cfg"
	infoEndpoint   = "/json/info"
	uploadEndpoint = "/edit"

	requestTimeout = 5 * time.Second
	infoTimeout    = 3 * time.Second
)

// Client talks directly to one WLED device over HTTP/JSON on the local
// network. It owns its http.Client and its own view of device state;
// nothing is shared with the other transports.
type Client struct {
	baseURL    string
	httpClient *http.Client

	infoMu sync.Mutex
	info   *model.DeviceInfo
}

// NewClient points the transport at a device host ("192.168.1.40" or
// "wled-bedroom.local").
func NewClient(host string) *Client {
	host = strings.TrimSuffix(strings.TrimPrefix(host, "http://"), "/")
	return &Client{
		baseURL:    "http://" + host,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Get fetches a device-relative JSON endpoint. Part of the raw gateway
// surface the bridge daemon proxies relay commands through.
func (c *Client) Get(ctx context.Context, endpoint string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

// Post sends a JSON body to a device-relative endpoint.
func (c *Client) Post(ctx context.Context, endpoint string, body map[string]interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (map[string]interface{}, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("wled: %s %s: HTTP %d", req.Method, req.URL.Path, resp.StatusCode)
	}

	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("wled: decode %s response: %w", req.URL.Path, err)
	}
	return out, nil
}

func (c *Client) GetState(ctx context.Context) *model.DeviceState {
	raw, err := c.Get(ctx, stateEndpoint)
	if err != nil {
		log.Printf("wled: get state: %v", err)
		return nil
	}
	return model.StateFromMap(raw)
}

func (c *Client) SetState(ctx context.Context, update model.StateUpdate) bool {
	rgbw := false
	if update.Color != nil {
		rgbw = c.SupportsRGBW(ctx)
	}
	body := payload.BuildStateUpdate(update, rgbw)
	return c.post(ctx, stateEndpoint, body)
}

func (c *Client) ApplyJSON(ctx context.Context, p map[string]interface{}) bool {
	return c.post(ctx, stateEndpoint, payload.Normalize(p))
}

func (c *Client) ApplyConfig(ctx context.Context, cfg map[string]interface{}) bool {
	return c.post(ctx, configEndpoint, cfg)
}

func (c *Client) FetchSegments(ctx context.Context) []model.Segment {
	raw, err := c.Get(ctx, stateEndpoint)
	if err != nil {
		log.Printf("wled: fetch segments: %v", err)
		return nil
	}
	seg, ok := raw["seg"]
	if !ok {
		return nil
	}
	return model.SegmentsFromValue(seg)
}

func (c *Client) RenameSegment(ctx context.Context, id int, name string) bool {
	return c.post(ctx, stateEndpoint, payload.BuildSegmentRename(id, name))
}

func (c *Client) ApplyToSegments(ctx context.Context, ids []int, seg map[string]interface{}) bool {
	if len(ids) == 0 {
		return false
	}
	return c.post(ctx, stateEndpoint, payload.BuildSegmentApply(ids, seg))
}

func (c *Client) SavePreset(ctx context.Context, id int, state map[string]interface{}, name string) bool {
	if !payload.ValidPresetID(id) {
		return false
	}
	return c.post(ctx, stateEndpoint, payload.BuildPresetSave(id, state, name))
}

func (c *Client) LoadPreset(ctx context.Context, id int) bool {
	if !payload.ValidPresetID(id) {
		return false
	}
	return c.post(ctx, stateEndpoint, payload.BuildPresetLoad(id))
}

// SupportsRGBW queries /json/info once and caches the answer for the
// transport's lifetime.
func (c *Client) SupportsRGBW(ctx context.Context) bool {
	info := c.fetchInfo(ctx)
	return info != nil && info.RGBW
}

// LEDCount returns the strip length from /json/info, or 0 when the
// device hasn't answered. An unknown count must not prevent streaming;
// callers fall back to their own default.
func (c *Client) LEDCount(ctx context.Context) int {
	info := c.fetchInfo(ctx)
	if info == nil {
		return 0
	}
	return info.LEDCount
}

// UploadLEDMap sends an auxiliary map file through the device's
// file-style endpoint as a multipart body with data and path fields.
func (c *Client) UploadLEDMap(ctx context.Context, path string, data []byte) bool {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("path", path); err != nil {
		return false
	}
	part, err := w.CreateFormFile("data", path)
	if err != nil {
		return false
	}
	if _, err := part.Write(data); err != nil {
		return false
	}
	if err := w.Close(); err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadEndpoint, &buf)
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("wled: upload %s: %v", path, err)
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode < 400
}

// Reachable is the cheap liveness probe the transport selector uses.
func (c *Client) Reachable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, infoTimeout)
	defer cancel()
	_, err := c.Get(ctx, infoEndpoint)
	return err == nil
}

func (c *Client) post(ctx context.Context, endpoint string, body map[string]interface{}) bool {
	if _, err := c.Post(ctx, endpoint, body); err != nil {
		log.Printf("wled: post %s: %v", endpoint, err)
		return false
	}
	return true
}

// fetchInfo caches the first successful /json/info answer for the
// transport's lifetime; an unreachable device is retried on the next
// call rather than cached as "no capabilities".
func (c *Client) fetchInfo(ctx context.Context) *model.DeviceInfo {
	c.infoMu.Lock()
	defer c.infoMu.Unlock()
	if c.info != nil {
		return c.info
	}
	ctx, cancel := context.WithTimeout(ctx, infoTimeout)
	defer cancel()
	raw, err := c.Get(ctx, infoEndpoint)
	if err != nil {
		log.Printf("wled: get info: %v", err)
		return nil
	}
	c.info = model.InfoFromMap(raw)
	return c.info
}
