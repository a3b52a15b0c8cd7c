package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetailBundle_Set(t *testing.T) {
	t.Parallel()

	var d DetailBundle
	assert.True(t, d.IsEmpty())

	d.Set(DetailTitle, "CEO")
	d.Set(DetailCompanyStaffCount, "11-50")
	d.Set("favourite_colour", "teal")
	d.Set(DetailWebsite, "")

	assert.Equal(t, "CEO", d.Title)
	assert.Equal(t, "11-50", d.CompanyStaffCount)
	assert.Equal(t, map[string]string{"favourite_colour": "teal"}, d.Extra)
	assert.Empty(t, d.Website)
	assert.False(t, d.IsEmpty())
}

func TestDetailBundle_IsEmpty(t *testing.T) {
	t.Parallel()

	assert.False(t, DetailBundle{AvatarURL: "x"}.IsEmpty())
	assert.False(t, DetailBundle{Extra: map[string]string{"a": "b"}}.IsEmpty())
	assert.True(t, DetailBundle{Extra: map[string]string{}}.IsEmpty())
}
