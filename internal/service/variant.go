package service

import (
	"inventory-core/internal/models"
)

// MatchMode определяет, как разрешается идентификатор варианта из запроса.
// Исторически поведение управлялось флагами окружения прямо в бизнес-логике;
// здесь режим фиксируется при конструировании сервиса, и оба легаси-режима —
// просто две конфигурации одной чистой функции.
type MatchMode string

const (
	// MatchByKey — только канонический ключ варианта
	MatchByKey MatchMode = "key"
	// MatchByLabel — ключ, затем label, затем «голая» строка размера,
	// которую старые вызыватели передавали на месте variantId
	MatchByLabel MatchMode = "label"
	// MatchByAttributes — ключ, затем поиск по значению среди attributes
	MatchByAttributes MatchMode = "attributes"
)

func ParseMatchMode(s string) MatchMode {
	switch MatchMode(s) {
	case MatchByLabel, MatchByAttributes:
		return MatchMode(s)
	default:
		return MatchByKey
	}
}

// resolveVariant — единственная точка сопоставления варианта.
// Пустой селектор допустим только для товара с одним вариантом.
// Возвращает nil, если ничего не подошло.
func resolveVariant(variants []models.Variant, selector string, mode MatchMode) *models.Variant {
	if len(variants) == 0 {
		return nil
	}

	if selector == "" {
		if len(variants) == 1 {
			return &variants[0]
		}
		// Неявный вариант по умолчанию, если он есть
		for i := range variants {
			if variants[i].Key == models.DefaultVariantKey {
				return &variants[i]
			}
		}
		return nil
	}

	// Канонический ключ всегда первый
	for i := range variants {
		if variants[i].Key == selector {
			return &variants[i]
		}
	}

	switch mode {
	case MatchByLabel:
		for i := range variants {
			if variants[i].Label != "" && variants[i].Label == selector {
				return &variants[i]
			}
		}
		for i := range variants {
			if variants[i].Size != "" && variants[i].Size == selector {
				return &variants[i]
			}
		}
	case MatchByAttributes:
		for i := range variants {
			for _, v := range variants[i].Attributes {
				if v == selector {
					return &variants[i]
				}
			}
		}
	}

	return nil
}

// stockStatus — производный статус для витрины.
func stockStatus(available, lowStockThreshold int32, allowBackorder bool) models.StockStatus {
	switch {
	case available <= 0 && allowBackorder:
		return models.StockStatusBackordered
	case available <= 0:
		return models.StockStatusOutOfStock
	case available <= lowStockThreshold:
		return models.StockStatusLowStock
	default:
		return models.StockStatusInStock
	}
}

func clampNonNegative(v int32) int32 {
	if v < 0 {
		return 0
	}
	return v
}
