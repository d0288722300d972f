// Package storage persists per-device session attributes between
// invocations. It defines the AttributeStore interface and implementations
// backed by memory, local disk, Badger and S3.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/maauso/audiobook-skill/internal/session"
)

// ErrDeviceIDRequired is returned when a load or save names no device.
var ErrDeviceIDRequired = errors.New("storage: device ID is required")

// AttributeStore loads and saves the attributes of a device.
// A device that was never saved loads as zero Attributes.
type AttributeStore interface {
	// Load returns the stored attributes of deviceID.
	Load(ctx context.Context, deviceID string) (session.Attributes, error)

	// Save replaces the stored attributes of deviceID. The last save wins.
	Save(ctx context.Context, deviceID string, attrs session.Attributes) error
}

// deviceKey maps a device id to a stable name that is safe for file systems
// and object keys.
func deviceKey(deviceID string) string {
	sum := sha256.Sum256([]byte(deviceID))
	return hex.EncodeToString(sum[:])
}
