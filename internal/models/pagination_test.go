package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnrollmentFilterNormalize(t *testing.T) {
	cases := []struct {
		name     string
		in       EnrollmentFilter
		wantPage int
		wantSize int
	}{
		{name: "defaults", in: EnrollmentFilter{}, wantPage: 1, wantSize: 10},
		{name: "within bounds", in: EnrollmentFilter{Page: 3, PageSize: 25}, wantPage: 3, wantSize: 25},
		{name: "at maximum", in: EnrollmentFilter{Page: 1, PageSize: 100}, wantPage: 1, wantSize: 100},
		{name: "above maximum clamps", in: EnrollmentFilter{Page: 2, PageSize: 500}, wantPage: 2, wantSize: 100},
		{name: "negative values", in: EnrollmentFilter{Page: -1, PageSize: -5}, wantPage: 1, wantSize: 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := tc.in
			f.Normalize()
			assert.Equal(t, tc.wantPage, f.Page)
			assert.Equal(t, tc.wantSize, f.PageSize)
		})
	}
}

func TestPageBoundsClampsToMaximum(t *testing.T) {
	page, size, offset := PageBounds(2, 1000, 20)
	assert.Equal(t, 2, page)
	assert.Equal(t, 100, size)
	assert.Equal(t, 100, offset)

	page, size, offset = PageBounds(0, 0, 20)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)
	assert.Equal(t, 0, offset)
}
