package identity

import (
	"testing"

	"albumscan/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		locator  string
		expected string
	}{
		{
			name:     "drops cdn query",
			locator:  "https://scontent.example.net/v/t39/123_456_n.jpg?stp=dst-jpg&_nc_ht=abc&oh=00",
			expected: "/v/t39/123_456_n.jpg",
		},
		{
			name:     "same path different host params",
			locator:  "https://scontent-2.example.net/v/t39/123_456_n.jpg?_nc_cat=7",
			expected: "/v/t39/123_456_n.jpg",
		},
		{
			name:     "unparseable returns original",
			locator:  "http://[::1]:namedport/x.jpg",
			expected: "http://[::1]:namedport/x.jpg",
		},
		{
			name:     "data uri has no path",
			locator:  "data:image/png;base64,AAAA",
			expected: "data:image/png;base64,AAAA",
		},
		{
			name:     "empty",
			locator:  "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.locator))
		})
	}
}

func TestWeakKeyFromURL(t *testing.T) {
	e := New("")
	assert.Equal(t, "fbid", e.Param)

	assert.Equal(t, "10158", e.WeakKeyFromURL("https://www.example.com/photo/?fbid=10158&set=a.1"))
	assert.Empty(t, e.WeakKeyFromURL("https://www.example.com/photo/"))
	assert.Empty(t, e.WeakKeyFromURL("%zz"))

	custom := New("photo_id")
	assert.Equal(t, "9", custom.WeakKeyFromURL("https://host/view?photo_id=9&fbid=1"))
}

func TestIdentity(t *testing.T) {
	e := New("")

	id := e.Identity("42", &models.Element{Src: "https://cdn/img/a.jpg?x=1"})
	assert.Equal(t, models.ItemIdentity{WeakKey: "42", StrongKey: "/img/a.jpg"}, id)

	none := e.Identity("42", nil)
	assert.Equal(t, "42", none.WeakKey)
	assert.Empty(t, none.StrongKey)
}

func TestIdentityChanged(t *testing.T) {
	before := models.ItemIdentity{WeakKey: "1", StrongKey: "/a.jpg"}

	assert.True(t, before.Changed(models.ItemIdentity{WeakKey: "2", StrongKey: "/a.jpg"}))
	assert.True(t, before.Changed(models.ItemIdentity{WeakKey: "1", StrongKey: "/b.jpg"}))
	assert.False(t, before.Changed(models.ItemIdentity{WeakKey: "1", StrongKey: ""}))
	assert.False(t, before.Changed(before))
}
