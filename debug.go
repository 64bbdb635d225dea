package atwinc1500

import (
	"context"

	"log/slog"
)

// levelTrace prints raw bus transactions. It is more verbose than
// slog.LevelDebug and off for any stock handler level.
const levelTrace slog.Level = slog.LevelDebug - 1

func logAttrs(l *slog.Logger, level slog.Level, msg string, attrs ...slog.Attr) {
	if l == nil {
		return
	}
	l.LogAttrs(context.Background(), level, msg, attrs...)
}

func (d *Device) logerr(msg string, attrs ...slog.Attr) {
	logAttrs(d.logger, slog.LevelError, msg, attrs...)
}

func (d *Device) warn(msg string, attrs ...slog.Attr) {
	logAttrs(d.logger, slog.LevelWarn, msg, attrs...)
}

func (d *Device) info(msg string, attrs ...slog.Attr) {
	logAttrs(d.logger, slog.LevelInfo, msg, attrs...)
}

func (d *Device) debug(msg string, attrs ...slog.Attr) {
	logAttrs(d.logger, slog.LevelDebug, msg, attrs...)
}

func (d *Device) trace(msg string, attrs ...slog.Attr) {
	logAttrs(d.logger, levelTrace, msg, attrs...)
}

func (b *spibus) trace(msg string, attrs ...slog.Attr) {
	logAttrs(b.logger, levelTrace, msg, attrs...)
}

func (h *hif) debug(msg string, attrs ...slog.Attr) {
	logAttrs(h.logger, slog.LevelDebug, msg, attrs...)
}

func (h *hif) trace(msg string, attrs ...slog.Attr) {
	logAttrs(h.logger, levelTrace, msg, attrs...)
}
