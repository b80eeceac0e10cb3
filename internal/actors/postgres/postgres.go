package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-pg/pg/v10"
	"github.com/go-pg/pg/v10/orm"
	"github.com/google/uuid"
	"github.com/rbroggi/clerksync/internal/core/model"
	"github.com/rbroggi/clerksync/internal/core/ports"
)

// PostgresDB is a postgres adapter for persistance.
type PostgresDB struct {
	db      *pg.DB
	nowFunc func() time.Time
}

// PostgresDBArgs are the mandatory arguments for the creation of a PostgresDB
type PostgresDBArgs struct {
	// DB is a postgres database handle
	DB *pg.DB
}

// PostgresDBOptArgs are the optional arguments for building a PostgresDB
type PostgresDBOptArgs = func(*PostgresDB)

// WithNowFunc can be used to override the nowFunc. Useful for testing.
func WithNowFunc(nowFunc func() time.Time) PostgresDBOptArgs {
	return func(p *PostgresDB) {
		p.nowFunc = nowFunc
	}
}

// NewPostgresDB creates a new PostgresDB.
func NewPostgresDB(args PostgresDBArgs, optArgs ...PostgresDBOptArgs) (*PostgresDB, error) {
	if args.DB == nil {
		return nil, errors.New("nil postgres handle")
	}
	pg := &PostgresDB{db: args.DB, nowFunc: func() time.Time { return time.Now().UTC() }}
	for _, opt := range optArgs {
		opt(pg)
	}
	return pg, nil
}

// SaveUser will save the user in the database.
func (p *PostgresDB) SaveUser(ctx context.Context, user *model.User) error {
	if user == nil {
		return errors.New("nil user passed to save method")
	}

	dbUser, err := p.toDBModel(user)
	if err != nil {
		return err
	}
	if _, err := p.db.ModelContext(ctx, dbUser).Insert(); err != nil {
		return fmt.Errorf("error inserting user [%s]: %w", user.ClerkID, err)
	}

	user.ID = dbUser.ID.String()
	user.CreatedAt = dbUser.CreatedAt
	user.UpdatedAt = dbUser.UpdatedAt
	return nil
}

// UpdateUser will overwrite the mutable fields of the user. It returns model.ErrNotFound if the user does not exist.
func (p *PostgresDB) UpdateUser(ctx context.Context, clerkID string, changes model.UserChanges) (*model.User, error) {
	var updated model.User
	err := p.inLiveUserTx(ctx, clerkID, func(tx *pg.Tx, existing *userDB) error {
		existing.Username = changes.Username
		existing.FirstName = changes.FirstName
		existing.LastName = changes.LastName
		existing.Photo = changes.Photo
		existing.UpdatedAt = p.nowFunc()
		if _, err := tx.ModelContext(ctx, existing).
			Column("username", "first_name", "last_name", "photo", "updated_at").
			WherePK().
			Update(); err != nil {
			return err
		}
		updated = translateDBToModel(*existing)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// GetUser returns the live user identified by clerkID.
func (p *PostgresDB) GetUser(ctx context.Context, clerkID string) (*model.User, error) {
	existing := new(userDB)
	if err := liveUser(p.db.ModelContext(ctx, existing), clerkID).Select(); err != nil {
		if errors.Is(err, pg.ErrNoRows) {
			return nil, model.ErrNotFound
		}
		return nil, err
	}
	user := translateDBToModel(*existing)
	return &user, nil
}

// DeleteUser will delete a user from the database and return the deleted record.
func (p *PostgresDB) DeleteUser(ctx context.Context, query ports.DeleteUserQuery) (*model.User, error) {
	var deleted model.User
	err := p.inLiveUserTx(ctx, query.ClerkID, func(tx *pg.Tx, existing *userDB) error {
		if query.HardDelete {
			if _, err := tx.ModelContext(ctx, existing).WherePK().Delete(); err != nil {
				return err
			}
		} else {
			existing.DeletedAt = p.nowFunc()
			existing.UpdatedAt = existing.DeletedAt
			if _, err := tx.ModelContext(ctx, existing).
				Column("deleted_at", "updated_at").
				WherePK().
				Update(); err != nil {
				return err
			}
		}
		deleted = translateDBToModel(*existing)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

// Ping checks the database is reachable.
func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.Ping(ctx)
}

// inLiveUserTx locks the live user identified by clerkID and runs fn within the same transaction.
func (p *PostgresDB) inLiveUserTx(ctx context.Context, clerkID string, fn func(tx *pg.Tx, existing *userDB) error) error {
	tx, err := p.db.BeginContext(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	existing := new(userDB)
	err = liveUser(tx.ModelContext(ctx, existing), clerkID).For("UPDATE").Select()
	if errors.Is(err, pg.ErrNoRows) {
		return model.ErrNotFound
	} else if err != nil {
		return err
	}

	if err := fn(tx, existing); err != nil {
		return err
	}
	return tx.Commit()
}

func liveUser(q *orm.Query, clerkID string) *orm.Query {
	return q.Where("clerk_id = ?", clerkID).Where("deleted_at IS NULL")
}

func (p *PostgresDB) toDBModel(user *model.User) (*userDB, error) {
	dbUser := &userDB{
		ClerkID:   user.ClerkID,
		Email:     user.Email,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Photo:     user.Photo,
	}
	if user.ID == "" {
		dbUser.ID = uuid.New()
	} else {
		id, err := uuid.Parse(user.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid user id [%s]: %w", user.ID, err)
		}
		dbUser.ID = id
	}
	if !user.CreatedAt.IsZero() {
		dbUser.CreatedAt = user.CreatedAt
	} else {
		dbUser.CreatedAt = p.nowFunc()
	}
	dbUser.UpdatedAt = p.nowFunc()
	return dbUser, nil
}

func translateDBToModel(dbUser userDB) model.User {
	return model.User{
		ID:        dbUser.ID.String(),
		ClerkID:   dbUser.ClerkID,
		Email:     dbUser.Email,
		Username:  dbUser.Username,
		FirstName: dbUser.FirstName,
		LastName:  dbUser.LastName,
		Photo:     dbUser.Photo,
		CreatedAt: dbUser.CreatedAt,
		UpdatedAt: dbUser.UpdatedAt,
		DeletedAt: dbUser.DeletedAt,
	}
}

type userDB struct {
	tableName struct{} `pg:"clerksync.users"`

	// ID unique identifier of the user.
	ID uuid.UUID `pg:"id,pk,type:uuid"`

	// ClerkID is the identity provider id, unique among users.
	ClerkID string `pg:"clerk_id,use_zero"`

	Email     string `pg:"email,use_zero"`
	Username  string `pg:"username,use_zero"`
	FirstName string `pg:"first_name,use_zero"`
	LastName  string `pg:"last_name,use_zero"`
	Photo     string `pg:"photo,use_zero"`

	// CreatedAt is the time at which the user was created in the system.
	CreatedAt time.Time `pg:"created_at"`

	// UpdatedAt is the time at which the user was last updated
	UpdatedAt time.Time `pg:"updated_at"`

	// DeletedAt is the time at which the user was soft-deleted. Zero values are stored as NULL.
	DeletedAt time.Time `pg:"deleted_at"`
}
