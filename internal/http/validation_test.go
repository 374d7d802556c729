package http

import (
	"errors"
	"strings"
	"testing"

	"github.com/fjod/products-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    map[string]any
		wantErr bool
	}{
		{name: "empty", in: "", want: map[string]any{}},
		{name: "whitespace", in: "  \n", want: map[string]any{}},
		{name: "null", in: "null", want: map[string]any{}},
		{name: "object", in: `{"title":"t","price":1}`, want: map[string]any{"title": "t", "price": float64(1)}},
		{name: "array", in: `[1,2]`, wantErr: true},
		{name: "truncated", in: `{"title":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeBody(strings.NewReader(tt.in))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCreate(t *testing.T) {
	got, err := parseCreate(map[string]any{
		"title":       "lamp",
		"description": true,
		"price":       float64(0),
		"phone":       "5550100",
		"extra":       "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ProductFields{
		Title:       "lamp",
		Description: "true",
		Price:       0,
		Phone:       5550100,
	}, got)
}

func TestParseCreate_ReportsEveryPathInOrder(t *testing.T) {
	_, err := parseCreate(map[string]any{
		"phone": "x",
		"title": []any{"a"},
	})

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Product validation failed", verr.ShortReason)
	assert.Len(t, verr.Errors, 4)
	assert.Equal(t, "string", verr.Errors["title"].Kind)
	assert.Equal(t, "required", verr.Errors["description"].Kind)
	assert.Equal(t, "required", verr.Errors["price"].Kind)
	assert.Equal(t, "Number", verr.Errors["phone"].Kind)

	parts := strings.Split(strings.TrimPrefix(verr.Message, "Product validation failed: "), ", ")
	require.Len(t, parts, 4)
	for i, path := range productFieldOrder {
		assert.True(t, strings.HasPrefix(parts[i], path+": "), parts[i])
	}
}

func TestParseUpdate(t *testing.T) {
	tests := []struct {
		name    string
		body    map[string]any
		check   func(t *testing.T, u domain.ProductUpdate)
		wantErr bool
	}{
		{
			name: "empty",
			body: map[string]any{},
			check: func(t *testing.T, u domain.ProductUpdate) {
				assert.True(t, u.IsEmpty())
			},
		},
		{
			name: "nulls are skipped",
			body: map[string]any{"title": nil, "price": nil},
			check: func(t *testing.T, u domain.ProductUpdate) {
				assert.True(t, u.IsEmpty())
			},
		},
		{
			name: "partial",
			body: map[string]any{"description": "new", "phone": "12"},
			check: func(t *testing.T, u domain.ProductUpdate) {
				assert.Nil(t, u.Title)
				require.NotNil(t, u.Description)
				assert.Equal(t, "new", *u.Description)
				assert.Nil(t, u.Price)
				require.NotNil(t, u.Phone)
				assert.Equal(t, float64(12), *u.Phone)
			},
		},
		{
			name: "empty string title is kept",
			body: map[string]any{"title": ""},
			check: func(t *testing.T, u domain.ProductUpdate) {
				require.NotNil(t, u.Title)
				assert.Equal(t, "", *u.Title)
			},
		},
		{
			name: "empty string price is skipped",
			body: map[string]any{"price": ""},
			check: func(t *testing.T, u domain.ProductUpdate) {
				assert.Nil(t, u.Price)
			},
		},
		{
			name: "blank and padded numbers",
			body: map[string]any{"price": "   ", "phone": " 42 "},
			check: func(t *testing.T, u domain.ProductUpdate) {
				require.NotNil(t, u.Price)
				assert.Equal(t, 0.0, *u.Price)
				require.NotNil(t, u.Phone)
				assert.Equal(t, 42.0, *u.Phone)
			},
		},
		{name: "word price", body: map[string]any{"price": "twelve"}, wantErr: true},
		{name: "object price", body: map[string]any{"price": map[string]any{}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := parseUpdate(tt.body)
			if tt.wantErr {
				var ce *CastError
				assert.True(t, errors.As(err, &ce))
				return
			}
			require.NoError(t, err)
			tt.check(t, u)
		})
	}
}

func TestCastNumber(t *testing.T) {
	tests := []struct {
		in      any
		want    float64
		wantErr bool
	}{
		{in: float64(12.5), want: 12.5},
		{in: "12.5", want: 12.5},
		{in: "  7 ", want: 7},
		{in: "  ", want: 0},
		{in: true, want: 1},
		{in: "abc", wantErr: true},
		{in: []any{1}, wantErr: true},
	}

	for _, tt := range tests {
		got, err := castNumber("price", tt.in)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.in)
			continue
		}
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, *got, "%v", tt.in)
	}
}

func TestParseCreate_BlankNumberIsZero(t *testing.T) {
	got, err := parseCreate(map[string]any{
		"title":       "lamp",
		"description": "d",
		"price":       "  ",
		"phone":       "1",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Price)
}
