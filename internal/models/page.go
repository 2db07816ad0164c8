package models

// Page - параметры постраничной выборки.
type Page struct {
	Limit  int
	Offset int
}

// ListResult - страница результатов вместе с общим количеством.
type ListResult[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}
