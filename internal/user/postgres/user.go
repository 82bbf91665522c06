package postgres

import (
	"time"

	"gorm.io/gorm"

	"github.com/eyuksel/reimbursement-api/internal"
	usermodel "github.com/eyuksel/reimbursement-api/internal/core/datamodel/user"
)

// UserRepository implements user.Repository, auth.UserRepository and
// expenseform.UserDirectory on one GORM-backed type.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(u *usermodel.User) error {
	return r.db.Create(u).Error
}

func (r *UserRepository) GetByID(id string) (*usermodel.User, error) {
	var u usermodel.User
	err := r.db.Where("id = ?", id).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(email string) (*usermodel.User, error) {
	var u usermodel.User
	err := r.db.Where("LOWER(email) = LOWER(?)", email).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) List(limit, offset int) ([]*usermodel.User, error) {
	var users []*usermodel.User
	q := r.db.Order("name ASC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	err := q.Find(&users).Error
	return users, err
}

func (r *UserRepository) ListByRole(roles []string) ([]*usermodel.User, error) {
	var users []*usermodel.User
	err := r.db.Where("role IN ? AND is_active = ?", roles, true).Find(&users).Error
	return users, err
}

func (r *UserRepository) Update(u *usermodel.User) error {
	u.UpdatedAt = time.Now()
	return r.db.Save(u).Error
}

func (r *UserRepository) TouchLastSubmission(id string, at time.Time) error {
	return r.db.Model(&usermodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_submission_date": at,
			"updated_at":           time.Now(),
		}).Error
}
