package repository

import (
	"context"
	"errors"
	"time"

	"inventory-core/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReservationRepo interface {
	// UpsertForSession создаёт резервацию или обновляет количество и срок
	// существующей записи того же ключа (session, product, variant) —
	// идемпотентность повторного «добавить в корзину».
	UpsertForSession(ctx context.Context, res *models.Reservation) error

	GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error)
	GetForSession(ctx context.Context, sessionID string, productID uuid.UUID, variantKey string) (*models.Reservation, error)

	// Оба удаления идемпотентны: отсутствие записи — не ошибка
	DeleteByID(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)

	// Суммы считают только активные записи: expires_at > now.
	// Истёкшие, но ещё не выметенные sweep'ом резервации не должны
	// занижать доступность ни в одном пути чтения.
	SumActive(ctx context.Context, productID uuid.UUID, variantKey string, now time.Time) (int32, error)
	SumActiveExcludingSession(ctx context.Context, productID uuid.UUID, variantKey, sessionID string, now time.Time) (int32, error)

	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type reservationRepo struct {
	db *gorm.DB
}

func NewReservationRepo(db *gorm.DB) ReservationRepo { return &reservationRepo{db: db} }

func (r *reservationRepo) UpsertForSession(ctx context.Context, res *models.Reservation) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "product_id"}, {Name: "variant_key"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   res.Quantity,
				"expires_at": res.ExpiresAt,
				"user_id":    res.UserID,
			}),
		}).
		Omit("id", "created_at").
		Create(res).Error
}

func (r *reservationRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).First(&res, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepo) GetForSession(ctx context.Context, sessionID string, productID uuid.UUID, variantKey string) (*models.Reservation, error) {
	var res models.Reservation
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND product_id = ? AND variant_key = ?", sessionID, productID, variantKey).
		First(&res).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *reservationRepo) DeleteByID(ctx context.Context, id uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).Delete(&models.Reservation{}, "id = ?", id)
	return tx.RowsAffected > 0, tx.Error
}

func (r *reservationRepo) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	tx := r.db.WithContext(ctx).Delete(&models.Reservation{}, "session_id = ?", sessionID)
	return tx.RowsAffected, tx.Error
}

func (r *reservationRepo) SumActive(ctx context.Context, productID uuid.UUID, variantKey string, now time.Time) (int32, error) {
	return r.sumActive(ctx, productID, variantKey, "", now)
}

func (r *reservationRepo) SumActiveExcludingSession(ctx context.Context, productID uuid.UUID, variantKey, sessionID string, now time.Time) (int32, error) {
	return r.sumActive(ctx, productID, variantKey, sessionID, now)
}

func (r *reservationRepo) sumActive(ctx context.Context, productID uuid.UUID, variantKey, excludeSessionID string, now time.Time) (int32, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("product_id = ? AND expires_at > ?", productID, now)
	if variantKey != "" {
		q = q.Where("variant_key = ?", variantKey)
	}
	if excludeSessionID != "" {
		q = q.Where("session_id <> ?", excludeSessionID)
	}
	var total int64
	err := q.Select("COALESCE(SUM(quantity), 0)").Scan(&total).Error
	return int32(total), err
}

func (r *reservationRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).Delete(&models.Reservation{}, "expires_at < ?", now)
	return tx.RowsAffected, tx.Error
}
