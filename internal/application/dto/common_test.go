package dto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/SG-DATA-TECH-SOLUTIONS/macanudo-backend/internal/application/dto"
)

func TestPageRequest_DefaultPage(t *testing.T) {
	cases := []struct {
		in, want dto.PageRequest
	}{
		{dto.PageRequest{}, dto.PageRequest{Limit: 20}},
		{dto.PageRequest{Limit: 500, Offset: 3}, dto.PageRequest{Limit: 100, Offset: 3}},
		{dto.PageRequest{Limit: 5, Offset: -2}, dto.PageRequest{Limit: 5}},
	}
	for _, tc := range cases {
		got := tc.in
		got.DefaultPage()
		assert.Equal(t, tc.want, got)
	}
}
