package service

import (
	"testing"

	"inventory-core/internal/models"
)

func TestResolveVariant_EmptySelector(t *testing.T) {
	single := []models.Variant{{Key: "only"}}
	if v := resolveVariant(single, "", MatchByKey); v == nil || v.Key != "only" {
		t.Fatalf("expected single variant, got %+v", v)
	}

	// Несколько вариантов без селектора — только неявный default
	multi := []models.Variant{{Key: "a"}, {Key: models.DefaultVariantKey}, {Key: "b"}}
	if v := resolveVariant(multi, "", MatchByKey); v == nil || v.Key != models.DefaultVariantKey {
		t.Fatalf("expected default variant, got %+v", v)
	}

	noDefault := []models.Variant{{Key: "a"}, {Key: "b"}}
	if v := resolveVariant(noDefault, "", MatchByKey); v != nil {
		t.Fatalf("expected nil without default, got %+v", v)
	}

	if v := resolveVariant(nil, "", MatchByKey); v != nil {
		t.Fatalf("expected nil for empty list, got %+v", v)
	}
}

func TestResolveVariant_KeyAlwaysWins(t *testing.T) {
	variants := []models.Variant{
		{Key: "m", Label: "l"},
		{Key: "l", Label: "Large"},
	}
	// Селектор "l" совпадает и с ключом, и с label другого варианта:
	// канонический ключ первый во всех режимах
	for _, mode := range []MatchMode{MatchByKey, MatchByLabel, MatchByAttributes} {
		v := resolveVariant(variants, "l", mode)
		if v == nil || v.Key != "l" {
			t.Fatalf("mode %s: expected key match, got %+v", mode, v)
		}
	}
}

func TestResolveVariant_LabelMode(t *testing.T) {
	variants := []models.Variant{
		{Key: "shirt-m", Label: "Medium", Size: "M"},
		{Key: "shirt-l", Label: "Large", Size: "L"},
	}

	if v := resolveVariant(variants, "Large", MatchByLabel); v == nil || v.Key != "shirt-l" {
		t.Fatalf("expected label match, got %+v", v)
	}
	if v := resolveVariant(variants, "M", MatchByLabel); v == nil || v.Key != "shirt-m" {
		t.Fatalf("expected size fallback, got %+v", v)
	}
	// В режиме key label не срабатывает
	if v := resolveVariant(variants, "Large", MatchByKey); v != nil {
		t.Fatalf("expected nil in key mode, got %+v", v)
	}
	if v := resolveVariant(variants, "XXL", MatchByLabel); v != nil {
		t.Fatalf("expected nil for unknown selector, got %+v", v)
	}
}

func TestResolveVariant_AttributesMode(t *testing.T) {
	variants := []models.Variant{
		{Key: "red", Attributes: map[string]string{"color": "Red", "material": "Cotton"}},
		{Key: "blue", Attributes: map[string]string{"color": "Blue"}},
	}

	if v := resolveVariant(variants, "Blue", MatchByAttributes); v == nil || v.Key != "blue" {
		t.Fatalf("expected attribute value match, got %+v", v)
	}
	if v := resolveVariant(variants, "Cotton", MatchByAttributes); v == nil || v.Key != "red" {
		t.Fatalf("expected match on any attribute, got %+v", v)
	}
	if v := resolveVariant(variants, "Blue", MatchByLabel); v != nil {
		t.Fatalf("expected nil in label mode, got %+v", v)
	}
}

func TestParseMatchMode(t *testing.T) {
	if m := ParseMatchMode("label"); m != MatchByLabel {
		t.Fatalf("expected label, got %s", m)
	}
	if m := ParseMatchMode("attributes"); m != MatchByAttributes {
		t.Fatalf("expected attributes, got %s", m)
	}
	// Неизвестное значение — каноничный режим
	if m := ParseMatchMode("whatever"); m != MatchByKey {
		t.Fatalf("expected key fallback, got %s", m)
	}
	if m := ParseMatchMode(""); m != MatchByKey {
		t.Fatalf("expected key for empty, got %s", m)
	}
}

func TestStockStatus(t *testing.T) {
	cases := []struct {
		available      int32
		threshold      int32
		allowBackorder bool
		want           models.StockStatus
	}{
		{100, 5, false, models.StockStatusInStock},
		{6, 5, false, models.StockStatusInStock},
		{5, 5, false, models.StockStatusLowStock},
		{1, 5, false, models.StockStatusLowStock},
		{0, 5, false, models.StockStatusOutOfStock},
		{0, 5, true, models.StockStatusBackordered},
	}
	for _, tc := range cases {
		got := stockStatus(tc.available, tc.threshold, tc.allowBackorder)
		if got != tc.want {
			t.Fatalf("stockStatus(%d, %d, %v): expected %s, got %s",
				tc.available, tc.threshold, tc.allowBackorder, tc.want, got)
		}
	}
}

func TestClampNonNegative(t *testing.T) {
	if clampNonNegative(-3) != 0 {
		t.Fatal("expected 0 for negative")
	}
	if clampNonNegative(7) != 7 {
		t.Fatal("expected passthrough for positive")
	}
}
