package services

import "errors"

var (
	// ErrInventoryNotFound запись отсутствует или принадлежит другому клиенту
	ErrInventoryNotFound = errors.New("inventory not found")
	// ErrInvalidLocation кортеж местоположения не образует корректную цепочку иерархии
	ErrInvalidLocation = errors.New("invalid location")
	// ErrInvalidInput некорректные входные данные операции
	ErrInvalidInput = errors.New("invalid input")
	// ErrNoInventoryIDs не передано ни одного идентификатора для перемещения
	ErrNoInventoryIDs = errors.New("no inventory ids provided")
	// ErrNoItems не передано ни одного товара для размещения
	ErrNoItems = errors.New("no items provided")
	// ErrLocationUnresolved для потерянной единицы не задано место, а политика запрещает подстановку
	ErrLocationUnresolved = errors.New("detail location unresolved for missing item")
	// ErrNoFallbackLocation у клиента нет ни одного detail_location для подстановки
	ErrNoFallbackLocation = errors.New("no detail location available for fallback")
	// ErrRebuildInProgress перестроение проекции клиента уже выполняется
	ErrRebuildInProgress = errors.New("projection rebuild already in progress")
)
