package migrate

import (
	"context"

	"inventory-core/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto
	CreateChecks           bool // CHECK-constraint'ы
	CreateIndexes          bool // индексы и UNIQUE
	CreateFKsViaSQL        bool // FK через Exec после AutoMigrate
	CreateUpdatedAtTrigger bool // триггеры updated_at
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
	}
}

func MigrateInventoryDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("Начало миграции базы склада")

	if opt.CreateExtensions {
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
			log.Error("pgcrypto error", zap.Error(err))
			return err
		}
	}

	log.Info("Создание таблиц: products, variants, reservations, inventory_history")
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Variant{},
		&models.Reservation{},
		&models.InventoryHistory{},
	); err != nil {
		log.Error("AutoMigrate error", zap.Error(err))
		return err
	}

	if opt.CreateUpdatedAtTrigger {
		if err := db.Exec(`
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_products_updated ON products;
CREATE TRIGGER trg_products_updated BEFORE UPDATE ON products
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_variants_updated ON variants;
CREATE TRIGGER trg_variants_updated BEFORE UPDATE ON variants
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`).Error; err != nil {
			log.Error("triggers error", zap.Error(err))
			return err
		}
	}

	if opt.CreateChecks {
		log.Info("Создание CHECK-ограничений")

		// Остаток не может уйти в минус ни при какой последовательности операций
		if err := db.Exec(`
ALTER TABLE variants
	DROP CONSTRAINT IF EXISTS chk_variants_inventory_non_negative,
	ADD CONSTRAINT chk_variants_inventory_non_negative
	CHECK (inventory >= 0);
`).Error; err != nil {
			log.Error("chk variants.inventory", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE variants
	DROP CONSTRAINT IF EXISTS chk_variants_price_non_negative,
	ADD CONSTRAINT chk_variants_price_non_negative
	CHECK (price_cents >= 0);
`).Error; err != nil {
			log.Error("chk variants.price", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE reservations
	DROP CONSTRAINT IF EXISTS chk_reservations_quantity_gt_zero,
	ADD CONSTRAINT chk_reservations_quantity_gt_zero
	CHECK (quantity > 0);
`).Error; err != nil {
			log.Error("chk reservations.qty", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE inventory_history
	DROP CONSTRAINT IF EXISTS chk_history_reason_allowed,
	ADD CONSTRAINT chk_history_reason_allowed
	CHECK (reason IN ('restock','sale','adjustment','return','damage'));
`).Error; err != nil {
			log.Error("chk history.reason", zap.Error(err))
			return err
		}
	}

	if opt.CreateIndexes {
		log.Info("Создание индексов и уникальностей")

		// Ключ варианта уникален в рамках товара
		if err := db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS ux_variants_product_key
ON variants (product_id, key);
`).Error; err != nil {
			log.Error("ux variants product_key", zap.Error(err))
			return err
		}

		// SKU глобально уникален, когда задан. Уникальность обеспечивает
		// именно индекс, а не проверка на уровне сервиса — иначе два
		// конкурентных создания с одним SKU проходят pre-check одновременно.
		if err := db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS ux_variants_sku
ON variants (lower(sku)) WHERE sku IS NOT NULL;
`).Error; err != nil {
			log.Error("ux variants sku", zap.Error(err))
			return err
		}

		// Идемпотентность reserve: одна запись на (session, product, variant)
		if err := db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS ux_reservations_session_product_variant
ON reservations (session_id, product_id, variant_key);
`).Error; err != nil {
			log.Error("ux reservations session_product_variant", zap.Error(err))
			return err
		}

		// Агрегации активных резерваций и sweep истёкших
		if err := db.Exec(`
CREATE INDEX IF NOT EXISTS ix_reservations_product_expires
ON reservations (product_id, variant_key, expires_at);
`).Error; err != nil {
			log.Error("ix reservations product_expires", zap.Error(err))
			return err
		}

		if err := db.Exec(`
CREATE INDEX IF NOT EXISTS ix_history_product_created
ON inventory_history (product_id, created_at DESC);
`).Error; err != nil {
			log.Error("ix history product_created", zap.Error(err))
			return err
		}
	}

	if opt.CreateFKsViaSQL {
		log.Info("Создание внешних ключей")

		if err := db.Exec(`
ALTER TABLE variants
  DROP CONSTRAINT IF EXISTS fk_variants_product,
  ADD CONSTRAINT fk_variants_product
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE;
`).Error; err != nil {
			log.Error("fk variants.product_id", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE reservations
  DROP CONSTRAINT IF EXISTS fk_reservations_product,
  ADD CONSTRAINT fk_reservations_product
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE;
`).Error; err != nil {
			log.Error("fk reservations.product_id", zap.Error(err))
			return err
		}

		// Без каскада: товар с историей движений удалить нельзя
		if err := db.Exec(`
ALTER TABLE inventory_history
  DROP CONSTRAINT IF EXISTS fk_history_product,
  ADD CONSTRAINT fk_history_product
    FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE NO ACTION;
`).Error; err != nil {
			log.Error("fk history.product_id", zap.Error(err))
			return err
		}
	}

	log.Info("Миграция базы склада успешно завершена")
	return nil
}
