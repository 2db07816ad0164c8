package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/senyabanana/procurement-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrStale возвращается, когда условное обновление не затронуло ни одной строки:
// запись успела измениться между чтением и записью.
var ErrStale = errors.New("record changed concurrently")

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// whereBuilder собирает условия WHERE с позиционными параметрами.
type whereBuilder struct {
	filters []string
	args    []interface{}
}

// add добавляет условие; %d в expr заменяется номером параметра.
func (b *whereBuilder) add(expr string, arg interface{}) {
	b.args = append(b.args, arg)
	b.filters = append(b.filters, fmt.Sprintf(expr, len(b.args)))
}

func (b *whereBuilder) where() string {
	if len(b.filters) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.filters, " AND ")
}

// page добавляет LIMIT/OFFSET и возвращает итоговые аргументы.
func (b *whereBuilder) page(p models.Page) (string, []interface{}) {
	n := len(b.args)
	args := append(append([]interface{}{}, b.args...), p.Limit, p.Offset)
	return fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2), args
}

func toStrings[T ~string](in []T) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, string(v))
	}
	return out
}

// notFound переводит pgx.ErrNoRows в ошибку вида NotFound.
func notFound(err error, entity, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NotFound("%s %s not found", entity, id)
	}
	return err
}

// isUniqueViolation сообщает, нарушено ли ограничение уникальности.
func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return constraint == "" || pgErr.ConstraintName == constraint
	}
	return false
}

// isForeignKeyViolation сообщает, что на запись ссылаются другие строки
// или ссылка указывает на отсутствующую запись.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation
}

type rowScanner interface {
	Scan(dest ...any) error
}
