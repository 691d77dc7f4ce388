package web

import (
	"context"

	"github.com/example/studylog/internal/records"
)

//go:generate mockgen -source=interfaces.go -destination=../mock/web.go -package=mock

type CredentialStore interface {
	Register(ctx context.Context, username, password string) (int64, error)
	Authenticate(ctx context.Context, username, password string) (int64, error)
	Username(ctx context.Context, userID int64) (string, error)
}

type RecordStore interface {
	Upsert(ctx context.Context, userID int64, date string, minutes int) error
	ListByUser(ctx context.Context, userID int64) ([]records.Record, error)
}
