package mosyle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Device is the vendor-defined attribute map for one enrolled device. The
// API does not publish a fixed schema, so fields are passed through
// unchanged.
type Device map[string]any

// SerialNumber returns the device serial number, empty when the field is
// absent or not a string.
func (d Device) SerialNumber() string {
	s, _ := d["serialnumber"].(string)
	return s
}

// rowCount tolerates the API reporting the total row count as either a
// JSON number or a string.
type rowCount int

func (r *rowCount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("row count %q: %w", s, err)
	}
	*r = rowCount(n)
	return nil
}

// devicePage is one page of the listdevices payload.
type devicePage struct {
	Devices []Device `json:"devices"`
	Rows    rowCount `json:"rows"`
}

// ListDevices retrieves devices of the given OS type (ios, macos or tvos),
// fetching pages until the server-reported total is reached.
//
// tags, when non-empty, restricts the listing to devices carrying those
// tags. maxResults bounds the result; a negative value means unlimited.
// additionalFilters are merged into the request options and may override
// the built-in ones; see the Mosyle API documentation for the available
// filters.
//
// The result may exceed maxResults by part of a page: pagination stops
// after the page that reaches the limit, without truncating it.
func (c *Client) ListDevices(ctx context.Context, osType string, tags []string, maxResults int, additionalFilters map[string]any) ([]Device, error) {
	options := map[string]any{
		"os":   osType,
		"page": 0,
	}
	for key, value := range additionalFilters {
		options[key] = value
	}
	if len(tags) > 0 {
		options["tags"] = tags
	}

	var devices []Device
	for page := 0; ; page++ {
		if maxResults >= 0 && len(devices) >= maxResults {
			break
		}
		options["page"] = page
		c.logger.Debug("Retrieving list of devices", zap.Int("page", page))

		payload, err := c.Execute(ctx, http.MethodPost, "listdevices", map[string]any{"options": options})
		if err != nil {
			return nil, err
		}

		var result devicePage
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, fmt.Errorf("decoding device list page %d: %w", page, err)
		}

		devices = append(devices, result.Devices...)
		if len(devices) >= int(result.Rows) {
			break
		}
	}

	return devices, nil
}

// GetDevice retrieves a single device by serial number. It returns a nil
// Device without an error when no such device exists.
func (c *Client) GetDevice(ctx context.Context, osType, serialNumber string) (Device, error) {
	filters := map[string]any{
		"serial_numbers": []string{serialNumber},
	}
	devices, err := c.ListDevices(ctx, osType, nil, 1, filters)
	if err != nil {
		return nil, err
	}
	if len(devices) != 1 {
		return nil, nil
	}
	return devices[0], nil
}

// UpdateDevice updates one or more attributes of a device and returns the
// device data after the update. The update endpoint keys on the serial
// number alone; osType is accepted for symmetry with the other device
// operations.
func (c *Client) UpdateDevice(ctx context.Context, osType, serialNumber string, attributes map[string]any) (Device, error) {
	element := map[string]any{
		"serialnumber": serialNumber,
	}
	for key, value := range attributes {
		element[key] = value
	}
	body := map[string]any{
		"elements": []map[string]any{element},
	}

	c.logger.Debug("Updating device",
		zap.String("serialNumber", serialNumber),
		zap.String("os", osType))

	payload, err := c.Execute(ctx, http.MethodPost, "devices", body)
	if err != nil {
		return nil, err
	}

	var updated []Device
	if err := json.Unmarshal(payload, &updated); err != nil {
		return nil, fmt.Errorf("decoding device update response: %w", err)
	}
	if len(updated) == 0 {
		return nil, &EmptyResponseError{Path: "devices"}
	}
	return updated[0], nil
}
