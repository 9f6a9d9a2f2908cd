package service

import (
	"context"
	"strconv"
	"strings"

	"routineTracker/internal/logger"

	"go.uber.org/zap"
)

const MinNoteCharsKey = "TASK_COMPLETION_MIN_CHARS"

// NoteLimit отдаёт минимальную длину комментария к выполнению.
// Значение из хранилища настроек перекрывает fallback; любая ошибка чтения
// или разбора молча возвращает fallback.
type NoteLimit struct {
	settings SettingsRepository
	fallback int
}

func NewNoteLimit(settings SettingsRepository, fallback int) *NoteLimit {
	return &NoteLimit{settings: settings, fallback: fallback}
}

func (l *NoteLimit) Fallback() int {
	return l.fallback
}

func (l *NoteLimit) Get(ctx context.Context) int {
	if l.settings == nil {
		return l.fallback
	}

	raw, err := l.settings.Get(ctx, MinNoteCharsKey)
	if err != nil {
		logger.Debug("Service: Настройка недоступна, используется значение по умолчанию",
			zap.String("key", MinNoteCharsKey),
			zap.Int("fallback", l.fallback),
			zap.Error(err))
		return l.fallback
	}

	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value < 0 {
		logger.Debug("Service: Некорректное значение настройки, используется значение по умолчанию",
			zap.String("key", MinNoteCharsKey),
			zap.String("value", raw),
			zap.Int("fallback", l.fallback))
		return l.fallback
	}
	return value
}
