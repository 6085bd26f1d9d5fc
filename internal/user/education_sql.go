package user

import (
	"context"

	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/driver"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/uuid"
)

type EducationSQL struct {
	Conn          driver.ITransactionalDB
	UUIDGenerator uuid.Generator
}

var _ EducationRepository = &EducationSQL{}

func NewEducationRepository(Conn driver.ITransactionalDB, UUIDGenerator uuid.Generator) *EducationSQL {
	return &EducationSQL{Conn, UUIDGenerator}
}

func (repo *EducationSQL) ListByUser(ctx context.Context, userID string) ([]*EducationModel, error) {
	rows, err := repo.Conn.QueryContext(ctx, `SELECT id, user_id, institution, degree, field_of_study,
	start_date, end_date, description, created_at
	FROM "education_details" WHERE user_id=$1 ORDER BY start_date DESC, created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]*EducationModel, 0)
	for rows.Next() {
		item := new(EducationModel)
		if err := rows.Scan(&item.ID, &item.UserID, &item.Institution, &item.Degree, &item.FieldOfStudy,
			&item.StartDate, &item.EndDate, &item.Description, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (repo *EducationSQL) Save(ctx context.Context, post *EducationModel) error {
	id, err := repo.UUIDGenerator.Generate()
	if err != nil {
		return err
	}
	post.ID = id

	_, err = repo.Conn.ExecContext(ctx, `INSERT INTO "education_details"(id, user_id, institution, degree,
	field_of_study, start_date, end_date, description, created_at)
	VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9)`, post.ID, post.UserID, post.Institution, post.Degree,
		post.FieldOfStudy, post.StartDate, post.EndDate, post.Description, post.CreatedAt)
	return err
}

// Delete removes one entry owned by userID, reporting whether it existed
func (repo *EducationSQL) Delete(ctx context.Context, userID, id string) (bool, error) {
	res, err := repo.Conn.ExecContext(ctx, `DELETE FROM "education_details" WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
