package repository

import "errors"

var (
	ErrNotFound            = errors.New("запись не найдена")
	ErrDuplicateCompletion = errors.New("выполнение за этот период уже существует")
	ErrSettingNotFound     = errors.New("настройка не задана")
)
