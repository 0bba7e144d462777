package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/servicehub-backend/internal/pkg/apperror"
)

// GetByID - универсальная функция для получения сущности по ID.
// notFoundErr возвращается как есть, остальные ошибки оборачиваются в DATABASE_ERROR.
func GetByID[T any](ctx context.Context, db sqlx.QueryerContext, table string, id interface{}, notFoundErr error) (*T, error) {
	return GetByField[T](ctx, db, table, "id", id, notFoundErr)
}

// GetByField - универсальная функция для получения сущности по любому полю.
func GetByField[T any](ctx context.Context, db sqlx.QueryerContext, table, field string, value interface{}, notFoundErr error) (*T, error) {
	var entity T
	query := fmt.Sprintf("SELECT * FROM %s WHERE %s = $1", table, field)

	if err := sqlx.GetContext(ctx, db, &entity, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, fmt.Sprintf("get by %s from %s", field, table))
	}

	return &entity, nil
}

// Exists проверяет наличие строки по произвольному условию.
func Exists(ctx context.Context, db sqlx.QueryerContext, query string, args ...interface{}) (bool, error) {
	var exists bool
	if err := sqlx.GetContext(ctx, db, &exists, "SELECT EXISTS("+query+")", args...); err != nil {
		return false, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "exists check")
	}
	return exists, nil
}
