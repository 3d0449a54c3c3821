package domain

import "errors"

var (
	// ErrFragmentSkipped — фрагмент не содержит обязательных данных
	// (например, числового id) и пропущен без прерывания пакета.
	ErrFragmentSkipped = errors.New("listing fragment skipped")

	// ErrAlreadySearching — поиск для подписчика уже запущен.
	ErrAlreadySearching = errors.New("search already started for subscriber")

	// ErrNotSearching — поиск для подписчика не запущен.
	ErrNotSearching = errors.New("search is not running for subscriber")
)
