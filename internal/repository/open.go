package repository

import (
	"context"
	"fmt"

	"postboard/internal/config"
	"postboard/internal/database"
)

// Open connects the backend selected by cfg.DBDriver and returns its store
// together with a function releasing the connection.
func Open(ctx context.Context, cfg *config.Config) (*Store, func(context.Context) error, error) {
	if cfg.DBDriver == "mongo" {
		db, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := EnsureIndexes(ctx, db); err != nil {
			_ = db.Client().Disconnect(ctx)
			return nil, nil, fmt.Errorf("failed to ensure indexes: %w", err)
		}
		return NewMongoStore(db), db.Client().Disconnect, nil
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return NewGormStore(db), closeFn, nil
}
