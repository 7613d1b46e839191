package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"":                 "/",
		"/":                "/",
		"/user/info":       "/user/info",
		"/user/info/":      "/user/info",
		"/roles/:id":       "/roles/{}",
		"/roles/{role_id}": "/roles/{}",
		"/files/*":         "/files/{}",
		"/a/:x/b/:y":       "/a/{}/b/{}",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, "GET:/user/info", MethodCode("get", "/user/info"))
	assert.Equal(t, "GET:POST:/roles/{}", Code([]string{"GET", "POST"}, "/roles/:id"))
}
