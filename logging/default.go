package logging

import (
	"github.com/xmidt-org/sallust"
	"go.uber.org/zap"
)

// Default returns the fallback *zap.Logger every Options.Logger field in
// this repository uses when a caller leaves it nil, the same fallback the
// teacher's device.deviceOptions and adapter.Options use rather than a
// silently discarding no-op logger.
func Default() *zap.Logger {
	return sallust.Default()
}
