package finalscout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modalHTML = `<div id="contact_detail_modal___BV_modal_body_">
  <span class="b-avatar"><span class="b-avatar-img"><img src="https://cdn.finalscout.com/a/jane.png"></span></span>
  <dl>
    <dt>First Name:</dt><dd>Jane</dd>
    <dt>Last Name</dt><dd> Doe </dd>
    <dt>EMAIL</dt><dd>jane@beanthere.com</dd>
    <dt>LinkedIn</dt><dd><a href="https://www.linkedin.com/in/jane-doe">View profile</a></dd>
    <dt>Source</dt><dd>Chrome Extension</dd>
    <dt>Privacy</dt><dd>Normal</dd>
    <dt>Company Staff Count</dt><dd>11-50</dd>
    <dt>Created At:</dt><dd>2024-03-01 10:00</dd>
    <dt>Latest Update</dt><dd>2024-04-01 09:00</dd>
    <dt>Favourite  Coffee</dt><dd>Flat white</dd>
    <dt>Orphan label</dt>
  </dl>
</div>`

func TestParseModal(t *testing.T) {
	d, err := ParseModal(modalHTML)
	require.NoError(t, err)

	assert.Equal(t, "Jane", d.FirstName)
	assert.Equal(t, "Doe", d.LastName)
	assert.Equal(t, "jane@beanthere.com", d.Email)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe", d.LinkedIn)
	assert.Equal(t, "Chrome Extension", d.Source)
	assert.Equal(t, "Normal", d.Privacy)
	assert.Equal(t, "11-50", d.CompanyStaffCount)
	assert.Equal(t, "2024-03-01 10:00", d.CreatedAt)
	assert.Equal(t, "2024-04-01 09:00", d.UpdatedAt)
	assert.Equal(t, "https://cdn.finalscout.com/a/jane.png", d.AvatarURL)
	assert.Equal(t, map[string]string{"favourite_coffee": "Flat white"}, d.Extra)
}

func TestParseModal_BackgroundAvatar(t *testing.T) {
	tests := []struct {
		name  string
		style string
		want  string
	}{
		{"double quoted", `background-image: url(&quot;https://cdn/x.png&quot;)`, "https://cdn/x.png"},
		{"single quoted", `width:40px; BACKGROUND-IMAGE:url('https://cdn/y.png')`, "https://cdn/y.png"},
		{"bare", `background-image:url(https://cdn/z.png)`, "https://cdn/z.png"},
		{"initials only", `background-color: #ccc`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := `<div><span class="b-avatar" style="` + tt.style + `"><span>JD</span></span></div>`
			d, err := ParseModal(html)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.AvatarURL)
		})
	}
}

func TestParseModal_Empty(t *testing.T) {
	d, err := ParseModal(`<div id="contact_detail_modal___BV_modal_body_"></div>`)
	require.NoError(t, err)
	assert.True(t, d.IsEmpty())
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "first name", normalizeLabel("  First Name: "))
	assert.Equal(t, "company postal code", normalizeLabel("Company\n Postal   Code::"))
	assert.Equal(t, "", normalizeLabel(":"))
}

func TestLabelKey(t *testing.T) {
	assert.Equal(t, "source_detail", labelKey("source"))
	assert.Equal(t, "contact_created_at_ts", labelKey("created at"))
	assert.Equal(t, "phone_number", labelKey("phone number"))
}
