package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/gatekeeper"
	"github.com/MrEthical07/gatekeeper/userstore/migrations"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const queryTimeout = 5 * time.Second

const userColumns = `id, identifier, name, password_hash, role, permissions, verified, last_login_at, created_at, updated_at`

// Postgres stores users in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres opens a pool for connString and pings it.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 2
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. The caller keeps ownership of it.
func NewPostgresFromPool(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// Migrate applies the embedded schema.
func (p *Postgres) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(p.pool)
	defer db.Close()
	return Migrate(ctx, db)
}

// Migrate applies the embedded schema to db.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (p *Postgres) GetUserByIdentifier(ctx context.Context, identifier string) (gatekeeper.UserRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(identifier) = lower($1)`, identifier)
	return scanUser(row)
}

func (p *Postgres) GetUserByID(ctx context.Context, userID string) (gatekeeper.UserRecord, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return gatekeeper.UserRecord{}, gatekeeper.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	row := p.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

func (p *Postgres) CreateUser(ctx context.Context, in gatekeeper.CreateUserInput) (gatekeeper.UserRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	perms := in.Permissions
	if perms == nil {
		perms = []string{}
	}

	row := p.pool.QueryRow(ctx, `
		INSERT INTO users (id, identifier, name, password_hash, role, permissions)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		uuid.NewString(), in.Identifier, in.Name, in.PasswordHash, in.Role, perms,
	)
	u, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return gatekeeper.UserRecord{}, gatekeeper.ErrProviderDuplicateIdentifier
		}
		return gatekeeper.UserRecord{}, err
	}
	return u, nil
}

func (p *Postgres) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return p.exec(ctx, `UPDATE users SET last_login_at = $2, updated_at = NOW() WHERE id = $1`, userID, at.UTC())
}

func (p *Postgres) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	return p.exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, userID, hash)
}

// SetRole changes a user's role.
func (p *Postgres) SetRole(ctx context.Context, userID, role string) error {
	return p.exec(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, userID, role)
}

func (p *Postgres) exec(ctx context.Context, query string, args ...any) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return gatekeeper.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (gatekeeper.UserRecord, error) {
	var (
		u         gatekeeper.UserRecord
		id        uuid.UUID
		lastLogin *time.Time
	)
	err := row.Scan(
		&id, &u.Identifier, &u.Name, &u.PasswordHash, &u.Role, &u.Permissions,
		&u.Verified, &lastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return gatekeeper.UserRecord{}, gatekeeper.ErrUserNotFound
		}
		return gatekeeper.UserRecord{}, err
	}
	u.ID = id.String()
	if lastLogin != nil {
		u.LastLoginAt = *lastLogin
	}
	return u, nil
}
