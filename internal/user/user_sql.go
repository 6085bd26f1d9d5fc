package user

import (
	"context"
	"database/sql"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/driver"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/uuid"
)

type UserSQL struct {
	Conn          driver.ITransactionalDB
	UUIDGenerator uuid.Generator
}

var _ UserRepository = &UserSQL{}

func NewUserRepository(Conn driver.ITransactionalDB, UUIDGenerator uuid.Generator) *UserSQL {
	return &UserSQL{Conn, UUIDGenerator}
}

const userColumns = `id, username, email, password, full_name, login_retry, last_login, created_at`

func scanUser(rows driver.ISQLRows) (*UserModel, error) {
	user := new(UserModel)
	if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.Password,
		&user.FullName, &user.LoginRetry, &user.LastLogin, &user.CreatedAt); err != nil {
		return nil, err
	}
	return user, nil
}

func (repo *UserSQL) findOne(ctx context.Context, query string, args ...interface{}) (*UserModel, error) {
	rows, err := repo.Conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if rows.Next() {
		return scanUser(rows)
	}
	return nil, rows.Err()
}

// FindByCredential query user matching either username or email
func (repo *UserSQL) FindByCredential(ctx context.Context, username, email string) (*UserModel, error) {
	if username == "" {
		username = email
	}
	if email == "" {
		email = username
	}
	return repo.findOne(ctx, `SELECT `+userColumns+`
	FROM "users" WHERE username=$1 OR email=$2`, username, email)
}

func (repo *UserSQL) FindByID(ctx context.Context, id string) (*UserModel, error) {
	return repo.findOne(ctx, `SELECT `+userColumns+` FROM "users" WHERE id=$1`, id)
}

func (repo *UserSQL) SaveUser(ctx context.Context, post *UserModel) error {
	conn := repo.Conn
	// generate id
	UUIDGenerator := repo.UUIDGenerator
	if uuid, err := UUIDGenerator.Generate(); err == nil {
		post.ID = uuid
	} else {
		return err
	}

	_, err := conn.ExecContext(ctx, `INSERT INTO "users"(id, username, email, password, full_name, login_retry, last_login, created_at)
	VALUES($1,$2,$3,$4,$5,$6,$7,$8)`, post.ID, post.Username, post.Email, post.Password, post.FullName,
		post.LoginRetry, post.LastLogin, post.CreatedAt)
	if driver.IsUniqueViolation(err) {
		return ErrDuplicatedUser
	}
	return err
}

func (repo *UserSQL) UpdateLogin(ctx context.Context, post *UserModel) error {
	_, err := repo.Conn.ExecContext(ctx, `UPDATE "users"
	SET login_retry=$1,
			last_login=$2
	WHERE id=$3`, post.LoginRetry, post.LastLogin, post.ID)
	return err
}

func (repo *UserSQL) UpdateProfile(ctx context.Context, id string, profile *Profile) error {
	_, err := repo.Conn.ExecContext(ctx, `UPDATE "users"
	SET full_name=$1,
			email=$2
	WHERE id=$3`, profile.FullName, profile.Email, id)
	if driver.IsUniqueViolation(err) {
		return ErrDuplicatedUser
	}
	return err
}

func (repo *UserSQL) BeginTx(ctx context.Context) (driver.ITransactionalDB, error) {
	return repo.Conn.BeginTx(ctx, &driver.TxOptions{
		Isolation: sql.LevelDefault,
	})
}

// WithTx returns a repository bound to tx
func (repo *UserSQL) WithTx(tx driver.ITransactionalDB) UserRepository {
	return &UserSQL{tx, repo.UUIDGenerator}
}
