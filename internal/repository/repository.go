package repository

import "gorm.io/gorm"

type Repository struct {
	DB           *gorm.DB
	Products     ProductRepo
	Variants     VariantRepo
	Reservations ReservationRepo
	History      HistoryRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:           db,
		Products:     NewProductRepo(db),
		Variants:     NewVariantRepo(db),
		Reservations: NewReservationRepo(db),
		History:      NewHistoryRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// WithTx выполняет fn в одной транзакции на весь набор репо.
// Без подключённой БД (собранный вручную Repository в тестах) fn выполняется
// напрямую — деградированный режим без отката, только для фейков.
func (r *Repository) WithTx(fn func(tx *Repository) error) error {
	if r.DB == nil {
		return fn(r)
	}
	return r.DB.Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}
