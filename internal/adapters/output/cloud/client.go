package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"lumina-core/internal/domain/model"
	"lumina-core/internal/domain/payload"
)

const (
	requestTimeout = 15 * time.Second

	// cacheTTL bounds the read-after-write approximation: GetState
	// serves the optimistically cached state for this long after a
	// write, then reports unknown again. A stricter guarantee would
	// require blocking on the backend's device-status channel.
	cacheTTL = 2 * time.Second
)

// Client forwards commands through the backend message-broker bridge.
// Writes are fire-and-forget toward the device; the backend reports
// device status through its own channel, so this transport keeps a
// short-lived local cache seeded from the payload just sent rather
// than waiting for an acknowledgment.
type Client struct {
	deviceID   string
	httpClient *http.Client

	mu    sync.RWMutex
	url   string
	token string

	cachedState map[string]interface{}
	cacheTime   time.Time
}

func NewClient(deviceID string) *Client {
	return &Client{
		deviceID:   deviceID,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// Configure sets the backend endpoint and the session token.
func (c *Client) Configure(url, token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.url = strings.TrimSuffix(url, "/")
	c.token = token
}

// IsAuthenticated checks the session gate locally: the token must be
// present, parse as a JWT, and not be past its expiry. No network call
// is made; the backend still authoritatively rejects stale sessions.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	url, token := c.url, c.token
	c.mu.RUnlock()
	if url == "" || token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.After(time.Now())
}

// sendWledState posts a raw state payload for the device.
func (c *Client) sendWledState(ctx context.Context, p map[string]interface{}) bool {
	return c.post(ctx, fmt.Sprintf("/api/devices/%s/wled-state", c.deviceID), p)
}

// sendCommand posts a typed action with its payload.
func (c *Client) sendCommand(ctx context.Context, action model.CommandType, p map[string]interface{}) bool {
	body := map[string]interface{}{
		"action":  string(action),
		"payload": p,
	}
	return c.post(ctx, fmt.Sprintf("/api/devices/%s/command", c.deviceID), body)
}

func (c *Client) post(ctx context.Context, path string, body map[string]interface{}) bool {
	if !c.IsAuthenticated() {
		return false
	}
	c.mu.RLock()
	url, token := c.url, c.token
	c.mu.RUnlock()

	data, err := json.Marshal(body)
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url+path, bytes.NewReader(data))
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("cloud: post %s: %v", path, err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Printf("cloud: post %s: HTTP %d", path, resp.StatusCode)
		return false
	}

	var out struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Printf("cloud: decode %s response: %v", path, err)
		return false
	}
	return out.Success
}

// GetState never blocks waiting for the device: it returns the cached
// optimistic state while fresh, nil otherwise. nil-on-unknown matches
// the other transports.
func (c *Client) GetState(ctx context.Context) *model.DeviceState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cachedState == nil || time.Since(c.cacheTime) >= cacheTTL {
		return nil
	}
	return model.StateFromMap(c.cachedState)
}

func (c *Client) SetState(ctx context.Context, update model.StateUpdate) bool {
	body := payload.BuildStateUpdate(update, false)
	if !c.sendWledState(ctx, body) {
		return false
	}
	c.rememberWrite(body)
	return true
}

func (c *Client) ApplyJSON(ctx context.Context, p map[string]interface{}) bool {
	body := payload.Normalize(p)
	if !c.sendWledState(ctx, body) {
		return false
	}
	c.rememberWrite(body)
	return true
}

// ApplyConfig is routed as a distinct command kind, mirroring the
// device's own state/config endpoint split.
func (c *Client) ApplyConfig(ctx context.Context, cfg map[string]interface{}) bool {
	return c.sendCommand(ctx, model.CommandSetConfig, cfg)
}

func (c *Client) FetchSegments(ctx context.Context) []model.Segment {
	st := c.GetState(ctx)
	if st == nil {
		return nil
	}
	return st.Segments
}

func (c *Client) RenameSegment(ctx context.Context, id int, name string) bool {
	return c.sendCommand(ctx, model.CommandRenameSegment, payload.BuildSegmentRename(id, name))
}

func (c *Client) ApplyToSegments(ctx context.Context, ids []int, seg map[string]interface{}) bool {
	if len(ids) == 0 {
		return false
	}
	body := payload.BuildSegmentApply(ids, seg)
	if !c.sendWledState(ctx, body) {
		return false
	}
	c.rememberWrite(body)
	return true
}

func (c *Client) SavePreset(ctx context.Context, id int, state map[string]interface{}, name string) bool {
	if !payload.ValidPresetID(id) {
		return false
	}
	return c.sendCommand(ctx, model.CommandSavePreset, payload.BuildPresetSave(id, state, name))
}

func (c *Client) LoadPreset(ctx context.Context, id int) bool {
	if !payload.ValidPresetID(id) {
		return false
	}
	return c.sendCommand(ctx, model.CommandLoadPreset, payload.BuildPresetLoad(id))
}

// The broker path cannot answer capability queries; degrade to the
// zero value rather than guessing.
func (c *Client) SupportsRGBW(ctx context.Context) bool { return false }
func (c *Client) LEDCount(ctx context.Context) int      { return 0 }

// UploadLEDMap cannot carry a file through the broker; fail fast.
func (c *Client) UploadLEDMap(ctx context.Context, path string, data []byte) bool {
	return false
}

// rememberWrite merges the payload just sent into the optimistic cache.
func (c *Client) rememberWrite(body map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cachedState == nil || time.Since(c.cacheTime) >= cacheTTL {
		c.cachedState = map[string]interface{}{}
	}
	for k, v := range body {
		c.cachedState[k] = v
	}
	c.cacheTime = time.Now()
}
