package ports

import "context"

// DeviceGateway is the raw JSON surface of one device, used by the
// executing-side bridge to proxy relay commands without reinterpreting
// their payloads. Endpoints are device-relative ("/json/state").
type DeviceGateway interface {
	Get(ctx context.Context, endpoint string) (map[string]interface{}, error)
	Post(ctx context.Context, endpoint string, body map[string]interface{}) (map[string]interface{}, error)
}
