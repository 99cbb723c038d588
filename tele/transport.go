package tele

import (
	"context"

	"github.com/temoto/inputmon/log2"
	tele_config "github.com/temoto/inputmon/tele/config"
)

// Tele transport contract:
// - Init fails only with invalid config, ignores network errors
// - Publish is fire and forget, returns false when message was not queued
// - application may start without network available, transport reconnects in background
// - notifications may be lost, no persistence
type Transporter interface {
	Init(ctx context.Context, log *log2.Log, teleConfig tele_config.Config) error
	Publish(kind string, payload []byte) bool
	Close()
}
